// Package noisemap is the entry point for generating and combining noise maps.
//
// A Generator owns one generation context: the current random source and the
// gradient lattice of its last coherent-noise call. Calls reuse the current
// source unless a per-call noise.WithSource option overrides it.
package noisemap

import (
	"log/slog"

	"github.com/MeKo-Tech/noisemap/internal/algebra"
	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/mask"
	"github.com/MeKo-Tech/noisemap/internal/noise"
	"github.com/MeKo-Tech/noisemap/internal/rng"
)

// Generator is not safe for concurrent use. Give each goroutine its own.
type Generator struct {
	ctx    *noise.Context
	logger *slog.Logger
}

// New returns a generator whose source is seeded with seed.
func New(seed int64, logger *slog.Logger) *Generator {
	return &Generator{
		ctx:    noise.NewContext(rng.New(seed)),
		logger: logger,
	}
}

// SetSeed makes src the current random source for later calls.
func (g *Generator) SetSeed(src rng.Source) {
	g.ctx.SetSource(src)
	g.log().Debug("Random source replaced")
}

// CreateNoiseMap synthesizes a single-octave map of the given kind.
func (g *Generator) CreateNoiseMap(kind noise.Kind, width, height int, opts ...noise.Option) (*field.Field, error) {
	f, err := g.ctx.Synthesize(kind, width, height, opts...)
	if err != nil {
		return nil, err
	}
	g.log().Debug("Noise map created", "kind", kind.String(), "width", width, "height", height)
	return f, nil
}

// CreateLayeredNoiseMap synthesizes a fractal sum of Perlin octaves.
func (g *Generator) CreateLayeredNoiseMap(width, height, layers int, opts ...noise.Option) (*field.Field, error) {
	f, err := g.ctx.SynthesizeLayered(width, height, layers, opts...)
	if err != nil {
		return nil, err
	}
	g.log().Debug("Layered noise map created", "width", width, "height", height, "layers", layers)
	return f, nil
}

// CreateClassicNoiseMap synthesizes octave noise with the permutation-table
// Perlin implementation.
func (g *Generator) CreateClassicNoiseMap(width, height, octaves int, opts ...noise.Option) (*field.Field, error) {
	f, err := g.ctx.Classic(width, height, octaves, opts...)
	if err != nil {
		return nil, err
	}
	g.log().Debug("Classic noise map created", "width", width, "height", height, "octaves", octaves)
	return f, nil
}

// CreateNoiseMask synthesizes a closed-form mask. Masks do not draw from the
// random source.
func (g *Generator) CreateNoiseMask(kind mask.Kind, width, height int, opts ...mask.Option) (*field.Field, error) {
	f, err := mask.Synthesize(kind, width, height, opts...)
	if err != nil {
		return nil, err
	}
	g.log().Debug("Mask created", "kind", kind.String(), "width", width, "height", height)
	return f, nil
}

// CombineNoiseMaps applies op cell by cell over the shared region of a and b.
func (g *Generator) CombineNoiseMaps(a, b *field.Field, op algebra.Op) (*field.Field, error) {
	f, err := algebra.Combine(a, b, op)
	if err != nil {
		return nil, err
	}
	if a.Width() != b.Width() || a.Height() != b.Height() {
		g.log().Debug("Combined maps cropped to shared region",
			"op", op.String(), "width", f.Width(), "height", f.Height())
	}
	return f, nil
}

// InvertField returns 1 - v for every cell.
func (g *Generator) InvertField(a *field.Field) (*field.Field, error) {
	return algebra.Invert(a)
}

// ThresholdField returns 1 where v > t and 0 elsewhere.
func (g *Generator) ThresholdField(a *field.Field, t float64) (*field.Field, error) {
	return algebra.Threshold(a, t)
}

// BlurField smooths a field with a Gaussian of the given sigma.
func (g *Generator) BlurField(a *field.Field, sigma float32) (*field.Field, error) {
	return algebra.Blur(a, sigma)
}

// DistanceField maps every cell above level to its distance from the nearest
// cell at or below it, scaled by radius and capped at 1.
func (g *Generator) DistanceField(a *field.Field, level, radius float64) (*field.Field, error) {
	return algebra.Distance(a, level, radius)
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
