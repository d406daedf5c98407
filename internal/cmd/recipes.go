package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadRecipes reads the recipes config key, falling back to the built-in set.
func loadRecipes() ([]pipeline.Recipe, error) {
	if !viper.IsSet("recipes") {
		return pipeline.DefaultRecipes(), nil
	}
	var recipes []pipeline.Recipe
	if err := viper.UnmarshalKey("recipes", &recipes); err != nil {
		return nil, fmt.Errorf("failed to read recipes from config: %w", err)
	}
	if len(recipes) == 0 {
		return pipeline.DefaultRecipes(), nil
	}
	return recipes, nil
}

// addMapFlags registers the output size and encoding flags shared by every
// command that renders maps, bound under prefix.
func addMapFlags(cmd *cobra.Command, prefix string) {
	cmd.Flags().Int("width", 256, "Map width in field cells")
	cmd.Flags().Int("height", 256, "Map height in field cells")
	cmd.Flags().Int("upscale", 1, "Output pixels per field cell")
	cmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{prefix + ".width", "width"},
		{prefix + ".height", "height"},
		{prefix + ".upscale", "upscale"},
		{prefix + ".png_compression", "png-compression"},
	}
	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, cmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func mapOptions(prefix string) pipeline.GeneratorOptions {
	return pipeline.GeneratorOptions{
		Width:          viper.GetInt(prefix + ".width"),
		Height:         viper.GetInt(prefix + ".height"),
		Upscale:        viper.GetInt(prefix + ".upscale"),
		PNGCompression: viper.GetString(prefix + ".png_compression"),
	}
}

// maxSeeds bounds the number of seeds one list may expand to.
const maxSeeds = 1 << 20

// parseSeeds parses a seed list such as "1-4,42" into [1 2 3 4 42].
func parseSeeds(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty seed list")
	}

	var seeds []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)

		// A leading '-' belongs to the first number, not the range.
		sep := strings.Index(strings.TrimPrefix(part, "-"), "-")
		if sep < 0 {
			seed, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid seed %q: %w", part, err)
			}
			if len(seeds) >= maxSeeds {
				return nil, fmt.Errorf("seed list expands to more than %d seeds", maxSeeds)
			}
			seeds = append(seeds, seed)
			continue
		}
		if strings.HasPrefix(part, "-") {
			sep++
		}

		lo, err := strconv.ParseInt(strings.TrimSpace(part[:sep]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed range %q: %w", part, err)
		}
		hi, err := strconv.ParseInt(strings.TrimSpace(part[sep+1:]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed range %q: %w", part, err)
		}
		if lo > hi {
			return nil, fmt.Errorf("invalid seed range %q: start > end", part)
		}
		// hi-lo can overflow int64; the unsigned difference cannot.
		if uint64(hi)-uint64(lo) >= uint64(maxSeeds-len(seeds)) {
			return nil, fmt.Errorf("seed range %q expands to more than %d seeds", part, maxSeeds)
		}
		for seed := lo; ; seed++ {
			seeds = append(seeds, seed)
			if seed == hi {
				break
			}
		}
	}
	return seeds, nil
}
