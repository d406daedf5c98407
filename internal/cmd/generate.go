package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/noisemap/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const customRecipe = "custom"

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single noise map",
	Long: `Generate one noise map PNG, either from a named recipe (--recipe) or from
the noise, mask and post-processing flags.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("recipe", "", "Named recipe to render (overrides the noise flags)")
	generateCmd.Flags().Int64("seed", 1337, "Seed for the random source")
	generateCmd.Flags().StringP("output", "o", "", "Output PNG path (default: <output-dir>/<recipe>_s<seed>.png)")

	generateCmd.Flags().String("noise", "layered", "Noise: perlin, static, ridged, terrain, river, layered or classic")
	generateCmd.Flags().Int("scale", 0, "Gradient lattice nodes per axis (0 uses the default)")
	generateCmd.Flags().Int("layers", 4, "Octaves for layered and classic noise")
	generateCmd.Flags().Float64("persistence", 0, "Amplitude falloff per octave in (0,1] (0 uses the default)")
	generateCmd.Flags().String("mask", "", "Mask to combine with the noise (e.g. island, edge-falloff)")
	generateCmd.Flags().Float64("mask-value", 0, "Mask shape parameter (solid value, edge margin, checker size; unset uses the default)")
	generateCmd.Flags().String("combine", "product", "Operation used to combine noise and mask")
	generateCmd.Flags().Float64("blur", 0, "Gaussian blur sigma applied after combining")
	generateCmd.Flags().Float64("shore", 0, "Shore distance radius in cells (0 disables)")
	generateCmd.Flags().Float64("sea-level", 0.5, "Level below which cells count as water for --shore")
	generateCmd.Flags().Float64("threshold", -1, "Threshold in [0,1] producing a binary map (negative disables)")
	generateCmd.Flags().Bool("invert", false, "Invert the final map")

	addMapFlags(generateCmd, "generate")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"generate.recipe", "recipe"},
		{"generate.seed", "seed"},
		{"generate.output", "output"},
		{"generate.noise", "noise"},
		{"generate.scale", "scale"},
		{"generate.layers", "layers"},
		{"generate.persistence", "persistence"},
		{"generate.mask", "mask"},
		{"generate.mask_value", "mask-value"},
		{"generate.combine", "combine"},
		{"generate.shore", "shore"},
		{"generate.sea_level", "sea-level"},
		{"generate.blur", "blur"},
		{"generate.threshold", "threshold"},
		{"generate.invert", "invert"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, generateCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	recipeName := viper.GetString("generate.recipe")
	seed := viper.GetInt64("generate.seed")
	output := viper.GetString("generate.output")
	opts := mapOptions("generate")

	var recipes []pipeline.Recipe
	if recipeName == "" {
		recipeName = customRecipe
		recipes = []pipeline.Recipe{recipeFromFlags()}
	} else {
		var err error
		if recipes, err = loadRecipes(); err != nil {
			return err
		}
	}

	gen, err := pipeline.NewGenerator(recipes, logger, opts)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}
	if !gen.Has(recipeName) {
		return fmt.Errorf("unknown recipe %q (available: %v)", recipeName, gen.Recipes())
	}

	if output == "" {
		output = filepath.Join(viper.GetString("output-dir"), fmt.Sprintf("%s_s%d.png", recipeName, seed))
	}

	logger.Info("Starting map generation",
		"recipe", recipeName,
		"seed", seed,
		"width", opts.Width,
		"height", opts.Height,
		"upscale", opts.Upscale,
		"output", output,
	)

	data, err := gen.Generate(context.Background(), recipeName, seed)
	if err != nil {
		return fmt.Errorf("failed to generate map: %w", err)
	}
	if err := writeFile(output, data); err != nil {
		return err
	}

	logger.Info("Map generated", "path", output, "bytes", len(data))
	return nil
}

func recipeFromFlags() pipeline.Recipe {
	r := pipeline.Recipe{
		Name:        customRecipe,
		Noise:       viper.GetString("generate.noise"),
		Scale:       viper.GetInt("generate.scale"),
		Layers:      viper.GetInt("generate.layers"),
		Persistence: viper.GetFloat64("generate.persistence"),
		Mask:        viper.GetString("generate.mask"),
		Combine:     viper.GetString("generate.combine"),
		Blur:        float32(viper.GetFloat64("generate.blur")),
		Shore:       viper.GetFloat64("generate.shore"),
		Invert:      viper.GetBool("generate.invert"),
	}
	// Like the mask command, an explicit 0 is a value, so only pass it when set.
	if viper.IsSet("generate.mask_value") {
		v := viper.GetFloat64("generate.mask_value")
		r.MaskValue = &v
	}
	if r.Shore > 0 && viper.IsSet("generate.sea_level") {
		level := viper.GetFloat64("generate.sea_level")
		r.SeaLevel = &level
	}
	if t := viper.GetFloat64("generate.threshold"); t >= 0 {
		r.Threshold = &t
	}
	return r
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
