package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/noisemap/internal/atlas"
	"github.com/MeKo-Tech/noisemap/internal/mapdir"
	"github.com/MeKo-Tech/noisemap/internal/pipeline"
	"github.com/MeKo-Tech/noisemap/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"gopkg.in/src-d/go-billy.v4/osfs"
)

// mapSink receives finished maps. Both the atlas writer and the folder store
// satisfy it.
type mapSink interface {
	WriteMap(recipe string, seed int64, data []byte) error
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate many maps across recipes and seeds",
	Long: `Generate every combination of the selected recipes and seeds with a worker
pool, writing PNG files into the output directory or into an atlas database.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringSlice("recipes", nil, "Recipes to render (default: all configured recipes)")
	batchCmd.Flags().String("seeds", "1-16", "Seeds to render, e.g. \"1-16,42\"")
	batchCmd.Flags().IntP("workers", "w", 1, "Number of parallel workers")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some maps fail")
	batchCmd.Flags().String("format", "folder", "Output format: folder or atlas")
	batchCmd.Flags().String("output-file", "", "Atlas database path (required for --format=atlas)")
	batchCmd.Flags().String("name", "noisemap", "Atlas name stored in metadata")
	batchCmd.Flags().String("description", "Seeded noise maps", "Atlas description stored in metadata")

	addMapFlags(batchCmd, "batch")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"batch.recipes", "recipes"},
		{"batch.seeds", "seeds"},
		{"batch.workers", "workers"},
		{"batch.progress", "progress"},
		{"batch.allow_failures", "allow-failures"},
		{"batch.format", "format"},
		{"batch.output_file", "output-file"},
		{"batch.name", "name"},
		{"batch.description", "description"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, batchCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	recipeNames := viper.GetStringSlice("batch.recipes")
	seedsStr := viper.GetString("batch.seeds")
	workers := viper.GetInt("batch.workers")
	showProgress := viper.GetBool("batch.progress")
	allowFailures := viper.GetBool("batch.allow_failures")
	format := viper.GetString("batch.format")
	outputFile := viper.GetString("batch.output_file")
	outputDir := viper.GetString("output-dir")
	opts := mapOptions("batch")

	if format != "folder" && format != "atlas" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'atlas'", format)
	}
	if format == "atlas" && outputFile == "" {
		return fmt.Errorf("--output-file is required when using --format=atlas")
	}

	seeds, err := parseSeeds(seedsStr)
	if err != nil {
		return fmt.Errorf("invalid seeds: %w", err)
	}

	recipes, err := loadRecipes()
	if err != nil {
		return err
	}
	gen, err := pipeline.NewGenerator(recipes, logger, opts)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	if len(recipeNames) == 0 {
		recipeNames = gen.Recipes()
	}
	for _, name := range recipeNames {
		if !gen.Has(name) {
			return fmt.Errorf("unknown recipe %q (available: %v)", name, gen.Recipes())
		}
	}

	tasks := buildTasks(recipeNames, seeds)

	logger.Info("Starting batch map generation",
		"recipes", strings.Join(recipeNames, ","),
		"seeds", len(seeds),
		"maps", len(tasks),
		"workers", workers,
		"format", format,
	)

	var (
		sink        mapSink
		atlasWriter *atlas.Writer
	)
	if format == "atlas" {
		atlasWriter, err = atlas.New(outputFile, atlas.Metadata{
			Name:        viper.GetString("batch.name"),
			Format:      "png",
			Description: viper.GetString("batch.description"),
			Version:     "1.0",
			Width:       opts.Width,
			Height:      opts.Height,
			Upscale:     opts.Upscale,
		})
		if err != nil {
			return fmt.Errorf("failed to create atlas writer: %w", err)
		}
		sink = atlasWriter
	} else {
		sink = mapdir.New(osfs.New(outputDir))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	progress := worker.NewProgress(tasks, showProgress)
	pool := worker.New(worker.Config{
		Workers:   workers,
		Generator: gen,
		Observer:  progress,
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var storeErr error
	for _, r := range results {
		if r.Err != nil {
			logger.Error("Map generation failed", "map", r.Task.Key(), "error", r.Err)
			continue
		}
		if storeErr = storeResult(r, sink); storeErr != nil {
			break
		}
	}

	if atlasWriter != nil {
		if err := atlasWriter.Close(); err != nil {
			storeErr = multierr.Append(storeErr, fmt.Errorf("failed to finalize atlas: %w", err))
		}
	}
	if storeErr != nil {
		return storeErr
	}

	logger.Info(progress.Summary())

	if failed := progress.Failures(); len(failed) > 0 {
		if allowFailures {
			logger.Warn("Some maps failed to generate, but continuing due to --allow-failures flag", "failed_count", len(failed))
			return nil
		}
		return fmt.Errorf("%d maps failed to generate (first: %s)", len(failed), failed[0])
	}
	return nil
}

func buildTasks(recipes []string, seeds []int64) []worker.Task {
	tasks := make([]worker.Task, 0, len(recipes)*len(seeds))
	for _, recipe := range recipes {
		for _, seed := range seeds {
			tasks = append(tasks, worker.Task{Recipe: recipe, Seed: seed})
		}
	}
	return tasks
}

func storeResult(r worker.Result, sink mapSink) error {
	if err := sink.WriteMap(r.Task.Recipe, r.Task.Seed, r.Data); err != nil {
		return fmt.Errorf("failed to store %s: %w", r.Task.Key(), err)
	}
	return nil
}
