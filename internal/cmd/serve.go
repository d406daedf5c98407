package cmd

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/MeKo-Tech/noisemap/internal/atlas"
	"github.com/MeKo-Tech/noisemap/internal/mapdir"
	"github.com/MeKo-Tech/noisemap/internal/pipeline"
	"github.com/MeKo-Tech/noisemap/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/src-d/go-billy.v4/osfs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve maps over HTTP (optionally generating missing maps on-demand)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("atlas", "", "Atlas database to serve pre-rendered maps from")
	serveCmd.Flags().String("maps-dir", "", "Directory of <recipe>/<seed>.png maps written by batch --format=folder")
	serveCmd.Flags().Bool("generate-missing", true, "Generate maps missing from the store on-demand")
	serveCmd.Flags().Int("max-concurrent-generations", runtime.NumCPU(), "Max concurrent map generations (default: number of CPUs)")
	serveCmd.Flags().Duration("generation-timeout", 30*time.Second, "Timeout per map generation")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for served maps")

	addMapFlags(serveCmd, "serve")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.atlas", "atlas")
	mustBind("serve.maps_dir", "maps-dir")
	mustBind("serve.generate_missing", "generate-missing")
	mustBind("serve.max_concurrent_generations", "max-concurrent-generations")
	mustBind("serve.generation_timeout", "generation-timeout")
	mustBind("serve.cache_control", "cache-control")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	atlasPath := viper.GetString("serve.atlas")
	mapsDir := viper.GetString("serve.maps_dir")
	generateMissing := viper.GetBool("serve.generate_missing")
	maxConc := viper.GetInt("serve.max_concurrent_generations")
	genTimeout := viper.GetDuration("serve.generation_timeout")
	cacheControl := viper.GetString("serve.cache_control")

	if atlasPath != "" && mapsDir != "" {
		return fmt.Errorf("--atlas and --maps-dir are mutually exclusive")
	}

	recipes, err := loadRecipes()
	if err != nil {
		return err
	}
	gen, err := pipeline.NewGenerator(recipes, logger, mapOptions("serve"))
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	var store server.MapStore
	switch {
	case atlasPath != "":
		reader, err := atlas.OpenReader(atlasPath)
		if err != nil {
			return fmt.Errorf("failed to open atlas: %w", err)
		}
		defer reader.Close()
		store = reader
	case mapsDir != "":
		store = mapdir.New(osfs.New(mapsDir))
	}

	maps, err := server.NewMaps(gen, store, server.MapsConfig{
		CacheControl:             cacheControl,
		MaxConcurrentGenerations: maxConc,
		GenerationTimeout:        genTimeout,
		GenerateMissing:          generateMissing,
	}, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/status", maps.StatusHandler())
	mux.Handle("/maps/", maps.Handler())

	logger.Info("Map server listening",
		"addr", addr,
		"atlas", atlasPath,
		"maps_dir", mapsDir,
		"recipes", gen.Recipes(),
		"generate_missing", generateMissing,
		"max_concurrent_generations", maxConc,
	)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}
