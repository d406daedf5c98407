// Package noise builds coherent-noise fields from a seeded random source.
package noise

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/rng"
)

const (
	// DefaultScale is the gradient lattice size used when no scale is given.
	DefaultScale = 4
	// DefaultPersistence is the octave amplitude falloff used when none is given.
	DefaultPersistence = 0.5
)

type options struct {
	src         rng.Source
	scale       int
	persistence float64
}

// Option tunes a single synthesis call.
type Option func(*options)

// WithScale sets the gradient lattice size. Zero means DefaultScale; it is
// not a valid lattice size and is never passed through.
func WithScale(scale int) Option {
	return func(o *options) { o.scale = scale }
}

// WithPersistence sets the amplitude ratio between successive octaves.
// Zero means DefaultPersistence.
func WithPersistence(p float64) Option {
	return func(o *options) { o.persistence = p }
}

// WithSource draws from src for this call instead of the context source.
func WithSource(src rng.Source) Option {
	return func(o *options) { o.src = src }
}

func (c *Context) resolve(opts []Option) (options, error) {
	o := options{src: c.src}
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case o.scale == 0:
		o.scale = DefaultScale
	case o.scale < 2:
		return o, fmt.Errorf("%w: scale must be at least 2, got %d", field.ErrInvalidParameter, o.scale)
	}

	switch {
	case o.persistence == 0:
		o.persistence = DefaultPersistence
	case math.IsNaN(o.persistence) || o.persistence < 0 || o.persistence > 1:
		return o, fmt.Errorf("%w: persistence must be within (0,1], got %v", field.ErrInvalidParameter, o.persistence)
	}

	if o.src == nil {
		return o, fmt.Errorf("%w: no random source", field.ErrInvalidParameter)
	}
	return o, nil
}

// Context carries the random source and the most recent gradient lattice of
// one logical caller. It is not safe for concurrent use: one generation must
// finish before the next starts.
type Context struct {
	src  rng.Source
	grad *GradientField
}

// NewContext returns a context drawing from src.
func NewContext(src rng.Source) *Context {
	return &Context{src: src}
}

// SetSource replaces the context's random source.
func (c *Context) SetSource(src rng.Source) {
	c.src = src
	c.grad = nil
}

func (c *Context) regenerate(nodes int, src rng.Source) (*GradientField, error) {
	g, err := NewGradientField(nodes, src)
	if err != nil {
		return nil, err
	}
	c.grad = g
	return g, nil
}

// Synthesize produces a width x height field of the given kind.
func (c *Context) Synthesize(kind Kind, width, height int, opts ...Option) (*field.Field, error) {
	if err := field.ValidateSize(width, height); err != nil {
		return nil, err
	}
	o, err := c.resolve(opts)
	if err != nil {
		return nil, err
	}

	var transform func(float64) float64
	switch kind {
	case Static:
		return field.Generate(width, height, func(_, _ int) float64 {
			return rng.Float(o.src)
		})
	case Perlin:
		transform = nil
	case Ridged:
		transform = Ridge
	case Terrain:
		transform = Plateau
	case River:
		transform = Trough
	default:
		return nil, fmt.Errorf("%w: unknown noise kind %v", field.ErrInvalidParameter, kind)
	}

	g, err := c.regenerate(o.scale, o.src)
	if err != nil {
		return nil, err
	}

	span := float64(o.scale - 1)
	return field.Generate(width, height, func(x, y int) float64 {
		v := g.Evaluate(float64(x)/float64(width)*span, float64(y)/float64(height)*span)
		if transform != nil {
			v = transform(v)
		}
		return v
	})
}

// SynthesizeLayered sums layers octaves of Perlin noise.
//
// Octave i draws a fresh lattice of the same size and samples it at 2^i times
// the base frequency, weighted by persistence^i. The sum is divided by the
// total weight, so a single layer equals plain Perlin synthesis.
func (c *Context) SynthesizeLayered(width, height, layers int, opts ...Option) (*field.Field, error) {
	if err := field.ValidateSize(width, height); err != nil {
		return nil, err
	}
	if layers < 1 {
		return nil, fmt.Errorf("%w: layers must be positive, got %d", field.ErrInvalidParameter, layers)
	}
	o, err := c.resolve(opts)
	if err != nil {
		return nil, err
	}

	sums := make([]float64, width*height)
	span := float64(o.scale - 1)
	amplitude := 1.0
	total := 0.0
	frequency := 1.0

	for i := 0; i < layers; i++ {
		g, err := c.regenerate(o.scale, o.src)
		if err != nil {
			return nil, err
		}
		for y := 0; y < height; y++ {
			sy := float64(y) / float64(height) * span * frequency
			for x := 0; x < width; x++ {
				sx := float64(x) / float64(width) * span * frequency
				sums[y*width+x] += amplitude * g.Evaluate(sx, sy)
			}
		}
		total += amplitude
		amplitude *= o.persistence
		frequency *= 2
	}

	for i := range sums {
		sums[i] /= total
	}
	return field.FromValues(width, height, sums)
}
