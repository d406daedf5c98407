package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/algebra"
	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/mask"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/noisemap"
)

const (
	// NoiseLayered selects the octave sum instead of a single noise kind.
	NoiseLayered = "layered"
	// NoiseClassic selects the permutation-table Perlin implementation.
	NoiseClassic = "classic"
)

// Recipe describes how one named map is built:
// noise, then an optional mask combined into it, then optional blur,
// shore distance, threshold and inversion, in that order.
type Recipe struct {
	Name        string   `mapstructure:"name"`
	Noise       string   `mapstructure:"noise"`
	Mask        string   `mapstructure:"mask"`
	Combine     string   `mapstructure:"combine"`
	MaskValue   *float64 `mapstructure:"mask_value"`
	Threshold   *float64 `mapstructure:"threshold"`
	Scale       int      `mapstructure:"scale"`
	Layers      int      `mapstructure:"layers"`
	Persistence float64  `mapstructure:"persistence"`
	Blur        float32  `mapstructure:"blur"`
	// Shore replaces every cell above SeaLevel (default 0.5) with its distance
	// to the nearest cell below it, in cells, scaled by 1/Shore.
	Shore    float64  `mapstructure:"shore"`
	SeaLevel *float64 `mapstructure:"sea_level"`
	Invert   bool     `mapstructure:"invert"`
}

// DefaultRecipes are available when the config file defines none.
func DefaultRecipes() []Recipe {
	threshold := 0.35
	return []Recipe{
		{Name: "terrain", Noise: NoiseLayered, Layers: 5, Scale: 4},
		{Name: "islands", Noise: NoiseLayered, Layers: 4, Scale: 5, Mask: "island", Combine: "product"},
		{Name: "archipelago", Noise: NoiseLayered, Layers: 4, Scale: 6, Mask: "island", Combine: "product", Threshold: &threshold, Blur: 1},
		{Name: "ridges", Noise: "ridged", Scale: 6},
		{Name: "rivers", Noise: "river", Scale: 5, Blur: 0.8},
		{Name: "plateaus", Noise: "terrain", Scale: 4, Mask: "edge-falloff", Combine: "intersection"},
		{Name: "static", Noise: "static"},
		{Name: "classic", Noise: NoiseClassic, Layers: 3, Scale: 6},
		{Name: "coasts", Noise: NoiseLayered, Layers: 4, Scale: 5, Mask: "island", Combine: "product", Shore: 12},
	}
}

type compiled struct {
	recipe    Recipe
	kind      noise.Kind
	maskKind  mask.Kind
	op        algebra.Op
	hasMask   bool
	noiseOpts []noise.Option
	maskOpts  []mask.Option
}

func compile(r Recipe) (*compiled, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("%w: recipe name is empty", field.ErrInvalidParameter)
	}
	if r.Blur < 0 {
		return nil, fmt.Errorf("%w: recipe %s: blur must not be negative", field.ErrInvalidParameter, r.Name)
	}
	if r.Shore < 0 {
		return nil, fmt.Errorf("%w: recipe %s: shore must not be negative", field.ErrInvalidParameter, r.Name)
	}

	c := &compiled{recipe: r}
	c.noiseOpts = []noise.Option{noise.WithScale(r.Scale), noise.WithPersistence(r.Persistence)}

	switch strings.ToLower(r.Noise) {
	case NoiseLayered, NoiseClassic:
		if r.Layers < 1 {
			return nil, fmt.Errorf("%w: recipe %s: %s noise needs layers >= 1", field.ErrInvalidParameter, r.Name, r.Noise)
		}
	default:
		kind, err := noise.ParseKind(r.Noise)
		if err != nil {
			return nil, fmt.Errorf("recipe %s: %w", r.Name, err)
		}
		c.kind = kind
	}

	if r.Mask != "" {
		kind, err := mask.ParseKind(r.Mask)
		if err != nil {
			return nil, fmt.Errorf("recipe %s: %w", r.Name, err)
		}
		c.maskKind = kind
		c.hasMask = true
		if r.MaskValue != nil {
			c.maskOpts = append(c.maskOpts, mask.WithValue(*r.MaskValue))
		}

		opName := r.Combine
		if opName == "" {
			opName = algebra.Product.String()
		}
		op, err := algebra.ParseOp(opName)
		if err != nil {
			return nil, fmt.Errorf("recipe %s: %w", r.Name, err)
		}
		c.op = op
	}

	return c, nil
}

// build runs the recipe against g. ctx is checked between steps.
func (c *compiled) build(ctx context.Context, g *noisemap.Generator, width, height int) (*field.Field, error) {
	r := c.recipe

	var (
		f   *field.Field
		err error
	)
	switch strings.ToLower(r.Noise) {
	case NoiseLayered:
		f, err = g.CreateLayeredNoiseMap(width, height, r.Layers, c.noiseOpts...)
	case NoiseClassic:
		f, err = g.CreateClassicNoiseMap(width, height, r.Layers, c.noiseOpts...)
	default:
		f, err = g.CreateNoiseMap(c.kind, width, height, c.noiseOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("noise step: %w", err)
	}

	steps := []struct {
		name    string
		enabled bool
		apply   func(*field.Field) (*field.Field, error)
	}{
		{"mask", c.hasMask, func(in *field.Field) (*field.Field, error) {
			m, err := g.CreateNoiseMask(c.maskKind, width, height, c.maskOpts...)
			if err != nil {
				return nil, err
			}
			return g.CombineNoiseMaps(in, m, c.op)
		}},
		{"blur", r.Blur > 0, func(in *field.Field) (*field.Field, error) {
			return g.BlurField(in, r.Blur)
		}},
		{"shore", r.Shore > 0, func(in *field.Field) (*field.Field, error) {
			level := 0.5
			if r.SeaLevel != nil {
				level = *r.SeaLevel
			}
			return g.DistanceField(in, level, r.Shore)
		}},
		{"threshold", r.Threshold != nil, func(in *field.Field) (*field.Field, error) {
			return g.ThresholdField(in, *r.Threshold)
		}},
		{"invert", r.Invert, g.InvertField},
	}

	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f, err = step.apply(f); err != nil {
			return nil, fmt.Errorf("%s step: %w", step.name, err)
		}
	}
	return f, nil
}
