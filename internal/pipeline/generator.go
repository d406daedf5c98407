// Package pipeline turns named recipes into rendered map images.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/noisemap"
	"github.com/MeKo-Tech/noisemap/internal/render"
)

// GeneratorOptions configures output size and encoding.
type GeneratorOptions struct {
	PNGCompression string
	Width          int
	Height         int
	// Upscale is the number of output pixels per field cell (default 1).
	Upscale int
}

// Generator renders recipes. It is safe for concurrent use: every call builds
// its own noisemap.Generator from the requested seed.
type Generator struct {
	recipes map[string]*compiled
	logger  *slog.Logger
	opts    GeneratorOptions
}

// NewGenerator validates recipes and prepares a generator.
func NewGenerator(recipes []Recipe, logger *slog.Logger, opts GeneratorOptions) (*Generator, error) {
	if err := field.ValidateSize(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	if opts.Upscale <= 0 {
		opts.Upscale = 1
	}
	if _, err := render.CompressionLevel(opts.PNGCompression); err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		recipes = DefaultRecipes()
	}

	compiledRecipes := make(map[string]*compiled, len(recipes))
	for _, r := range recipes {
		c, err := compile(r)
		if err != nil {
			return nil, err
		}
		if _, dup := compiledRecipes[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate recipe %q", field.ErrInvalidParameter, r.Name)
		}
		compiledRecipes[r.Name] = c
	}

	return &Generator{
		recipes: compiledRecipes,
		logger:  logger,
		opts:    opts,
	}, nil
}

// Recipes returns the known recipe names in sorted order.
func (g *Generator) Recipes() []string {
	names := make([]string, 0, len(g.recipes))
	for name := range g.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether recipe is known.
func (g *Generator) Has(recipe string) bool {
	_, ok := g.recipes[recipe]
	return ok
}

// Field builds the raw field for recipe and seed.
func (g *Generator) Field(ctx context.Context, recipe string, seed int64) (*field.Field, error) {
	c, ok := g.recipes[recipe]
	if !ok {
		return nil, fmt.Errorf("%w: unknown recipe %q", field.ErrInvalidParameter, recipe)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := c.build(ctx, noisemap.New(seed, g.logger), g.opts.Width, g.opts.Height)
	if err != nil {
		return nil, fmt.Errorf("recipe %s (seed %d): %w", recipe, seed, err)
	}
	return f, nil
}

// Generate builds, renders and PNG-encodes recipe for seed.
func (g *Generator) Generate(ctx context.Context, recipe string, seed int64) ([]byte, error) {
	f, err := g.Field(ctx, recipe, seed)
	if err != nil {
		return nil, err
	}

	img := render.Upscale(render.Render(f), g.opts.Upscale)

	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img, g.opts.PNGCompression); err != nil {
		return nil, fmt.Errorf("recipe %s (seed %d): %w", recipe, seed, err)
	}

	g.log().Debug("Map generated", "recipe", recipe, "seed", seed, "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
