package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/MeKo-Tech/noisemap/internal/mask"
	"github.com/MeKo-Tech/noisemap/internal/noisemap"
	"github.com/MeKo-Tech/noisemap/internal/render"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var maskCmd = &cobra.Command{
	Use:   "mask [kind]",
	Short: "Render a mask field",
	Long: `Render one of the deterministic mask shapes (gradient, solid, island,
edge-falloff, vertical-gradient, horizontal-gradient, checkerboard) as a PNG.`,
	Args: cobra.ExactArgs(1),
	RunE: runMask,
}

func init() {
	rootCmd.AddCommand(maskCmd)

	maskCmd.Flags().Float64("value", 0, "Shape parameter (solid value, edge margin, checker size; 0 uses the default)")
	maskCmd.Flags().StringP("output", "o", "", "Output PNG path (default: <output-dir>/mask_<kind>.png)")

	addMapFlags(maskCmd, "mask")

	if err := viper.BindPFlag("mask.output", maskCmd.Flags().Lookup("output")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runMask(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	kind, err := mask.ParseKind(args[0])
	if err != nil {
		return err
	}

	var opts []mask.Option
	// The solid mask treats an explicit 0 as a value, so only pass it when set.
	if cmd.Flags().Changed("value") {
		value, _ := cmd.Flags().GetFloat64("value")
		opts = append(opts, mask.WithValue(value))
	}

	mo := mapOptions("mask")
	f, err := noisemap.New(0, logger).CreateNoiseMask(kind, mo.Width, mo.Height, opts...)
	if err != nil {
		return fmt.Errorf("failed to build mask: %w", err)
	}

	upscale := mo.Upscale
	if upscale <= 0 {
		upscale = 1
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, render.Upscale(render.Render(f), upscale), mo.PNGCompression); err != nil {
		return err
	}

	output := viper.GetString("mask.output")
	if output == "" {
		output = filepath.Join(viper.GetString("output-dir"), fmt.Sprintf("mask_%s.png", kind))
	}
	if err := writeFile(output, buf.Bytes()); err != nil {
		return err
	}

	logger.Info("Mask generated", "kind", kind.String(), "path", output)
	return nil
}
