package mask

import (
	"fmt"
	"math"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Kind selects a closed-form mask shape.
type Kind int

const (
	Gradient Kind = iota
	Solid
	Island
	EdgeFalloff
	VerticalGradient
	HorizontalGradient
	Checkerboard
)

// Kinds lists every mask kind in declaration order.
var Kinds = []Kind{Gradient, Solid, Island, EdgeFalloff, VerticalGradient, HorizontalGradient, Checkerboard}

const (
	// DefaultSolidValue is the Solid fill when no value is given.
	DefaultSolidValue = 1.0
	// DefaultCheckerSize is the Checkerboard square size when no value is given.
	DefaultCheckerSize = 8.0
)

func (k Kind) String() string {
	switch k {
	case Gradient:
		return "gradient"
	case Solid:
		return "solid"
	case Island:
		return "island"
	case EdgeFalloff:
		return "edge-falloff"
	case VerticalGradient:
		return "vertical-gradient"
	case HorizontalGradient:
		return "horizontal-gradient"
	case Checkerboard:
		return "checkerboard"
	}
	return fmt.Sprintf("mask(%d)", int(k))
}

// ParseKind maps a name such as "island" to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mask kind %q", field.ErrInvalidParameter, name)
}

type options struct {
	value float64
	set   bool
}

// Option tunes a mask.
type Option func(*options)

// WithValue supplies the kind's parameter: the fill for Solid, the margin in
// pixels for EdgeFalloff and the square size for Checkerboard. Other kinds
// ignore it. For margin and size, zero means the default.
func WithValue(v float64) Option {
	return func(o *options) {
		o.value = v
		o.set = true
	}
}

// Synthesize produces a width x height mask of the given kind.
func Synthesize(kind Kind, width, height int, opts ...Option) (*field.Field, error) {
	if err := field.ValidateSize(width, height); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	w := float64(width)
	h := float64(height)
	center := orb.Point{w / 2, h / 2}

	switch kind {
	case Gradient:
		maxDist := planar.Distance(center, orb.Point{0, 0})
		return field.Generate(width, height, func(x, y int) float64 {
			d := planar.Distance(orb.Point{float64(x), float64(y)}, center)
			return field.Clamp01(1 - d/maxDist)
		})

	case Solid:
		v := DefaultSolidValue
		if o.set {
			v = o.value
		}
		return field.Generate(width, height, func(_, _ int) float64 { return v })

	case Island:
		radius := math.Min(w, h) / 2
		return field.Generate(width, height, func(x, y int) float64 {
			d := planar.Distance(orb.Point{float64(x), float64(y)}, center)
			return math.Max(0, 1-d/radius)
		})

	case EdgeFalloff:
		margin, err := sizeParam(o, math.Max(1, math.Min(w, h)/4), "margin")
		if err != nil {
			return nil, err
		}
		return field.Generate(width, height, func(x, y int) float64 {
			d := math.Min(math.Min(float64(x), float64(y)), math.Min(w-1-float64(x), h-1-float64(y)))
			return math.Min(1, d/margin)
		})

	case VerticalGradient:
		return field.Generate(width, height, func(_, y int) float64 {
			return ramp(y, height)
		})

	case HorizontalGradient:
		return field.Generate(width, height, func(x, _ int) float64 {
			return ramp(x, width)
		})

	case Checkerboard:
		size, err := sizeParam(o, DefaultCheckerSize, "checker size")
		if err != nil {
			return nil, err
		}
		return field.Generate(width, height, func(x, y int) float64 {
			cell := int(math.Floor(float64(x)/size) + math.Floor(float64(y)/size))
			if cell%2 == 0 {
				return 1
			}
			return 0
		})
	}

	return nil, fmt.Errorf("%w: unknown mask kind %v", field.ErrInvalidParameter, kind)
}

func sizeParam(o options, def float64, name string) (float64, error) {
	if !o.set || o.value == 0 {
		return def, nil
	}
	if o.value < 0 || math.IsNaN(o.value) || math.IsInf(o.value, 0) {
		return 0, fmt.Errorf("%w: %s must be positive, got %v", field.ErrInvalidParameter, name, o.value)
	}
	return o.value, nil
}

// ramp maps i in [0, n) onto [0,1]. A single-cell extent is 0.
func ramp(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}
