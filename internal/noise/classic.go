package noise

import (
	"fmt"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/aquilax/go-perlin"
)

// Classic renders octave Perlin noise through the permutation-table
// implementation of github.com/aquilax/go-perlin. The library seed is drawn
// from the context source, so results follow the context seed.
//
// Scale is the sampling span across the field and persistence the octave
// amplitude ratio, matching SynthesizeLayered.
func (c *Context) Classic(width, height, octaves int, opts ...Option) (*field.Field, error) {
	if err := field.ValidateSize(width, height); err != nil {
		return nil, err
	}
	if octaves < 1 {
		return nil, fmt.Errorf("%w: octaves must be positive, got %d", field.ErrInvalidParameter, octaves)
	}
	o, err := c.resolve(opts)
	if err != nil {
		return nil, err
	}

	seed := int64(o.src.Next())<<16 | int64(o.src.Next())
	// alpha divides the amplitude per octave, beta multiplies the frequency.
	p := perlin.NewPerlin(1/o.persistence, 2, int32(octaves), seed)

	span := float64(o.scale)
	return field.Generate(width, height, func(x, y int) float64 {
		nx := float64(x) / float64(width) * span
		ny := float64(y) / float64(height) * span
		return field.Clamp01((p.Noise2D(nx, ny) + 1) / 2)
	})
}
