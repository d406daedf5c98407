// Package algebra combines and transforms scalar fields pointwise.
package algebra

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/disintegration/gift"
)

// Op is a binary pointwise operator.
type Op int

const (
	Product Op = iota
	Average
	Difference
	Union
	Intersection
	Quotient
)

// Ops lists every binary operator in declaration order.
var Ops = []Op{Product, Average, Difference, Union, Intersection, Quotient}

func (op Op) String() string {
	switch op {
	case Product:
		return "product"
	case Average:
		return "average"
	case Difference:
		return "difference"
	case Union:
		return "union"
	case Intersection:
		return "intersection"
	case Quotient:
		return "quotient"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// ParseOp maps a name such as "union" to its Op.
func ParseOp(name string) (Op, error) {
	for _, op := range Ops {
		if strings.EqualFold(name, op.String()) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown combine op %q", field.ErrInvalidParameter, name)
}

func (op Op) apply() (func(a, b float64) float64, error) {
	switch op {
	case Product:
		return func(a, b float64) float64 { return math.Sqrt(a * b) }, nil
	case Average:
		return func(a, b float64) float64 { return (a + b) / 2 }, nil
	case Difference:
		return func(a, b float64) float64 { return field.Clamp01(a - b + 0.5) }, nil
	case Union:
		return math.Max, nil
	case Intersection:
		return math.Min, nil
	case Quotient:
		// b == 0 yields ±Inf or NaN; callers clamp or threshold afterwards.
		return func(a, b float64) float64 { return a / b }, nil
	}
	return nil, fmt.Errorf("%w: unknown combine op %v", field.ErrInvalidParameter, op)
}

// Combine applies op cell by cell.
//
// Fields of different sizes are cropped to their shared top-left region of
// min(width) x min(height); nothing is resampled.
func Combine(a, b *field.Field, op Op) (*field.Field, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil field", field.ErrInvalidParameter)
	}
	fn, err := op.apply()
	if err != nil {
		return nil, err
	}

	w := min(a.Width(), b.Width())
	h := min(a.Height(), b.Height())
	return field.Generate(w, h, func(x, y int) float64 {
		return fn(a.At(x, y), b.At(x, y))
	})
}

// Invert returns 1 - v for every cell.
func Invert(a *field.Field) (*field.Field, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil field", field.ErrInvalidParameter)
	}
	return field.Generate(a.Width(), a.Height(), func(x, y int) float64 {
		return 1 - a.At(x, y)
	})
}

// Threshold returns 1 where v > t and 0 elsewhere.
func Threshold(a *field.Field, t float64) (*field.Field, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil field", field.ErrInvalidParameter)
	}
	return field.Generate(a.Width(), a.Height(), func(x, y int) float64 {
		if a.At(x, y) > t {
			return 1
		}
		return 0
	})
}

// Blur applies a Gaussian blur with the given sigma. The field passes through
// a 16-bit grayscale image, so values are clamped to [0,1] and quantized.
func Blur(a *field.Field, sigma float32) (*field.Field, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil field", field.ErrInvalidParameter)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("%w: blur sigma must not be negative, got %v", field.ErrInvalidParameter, sigma)
	}

	src := a.ToGray16()
	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewGray16(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	return field.FromGray16(dst)
}
