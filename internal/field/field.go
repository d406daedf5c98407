// Package field provides the immutable scalar grid shared by the noise, mask
// and algebra packages.
package field

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// ErrInvalidParameter is returned (wrapped) when a caller supplies a width,
// height, node count, scale or similar parameter outside its valid range.
var ErrInvalidParameter = errors.New("invalid parameter")

// Field is a Width x Height grid of values stored row-major.
// Values are nominally in [0,1], but not every operator enforces that.
// A Field is never modified after construction.
type Field struct {
	values []float64
	width  int
	height int
}

// ValidateSize reports an ErrInvalidParameter for non-positive dimensions.
func ValidateSize(width, height int) error {
	if width <= 0 {
		return fmt.Errorf("%w: width must be positive, got %d", ErrInvalidParameter, width)
	}
	if height <= 0 {
		return fmt.Errorf("%w: height must be positive, got %d", ErrInvalidParameter, height)
	}
	return nil
}

// Generate builds a field by calling fn once per cell.
// Cells are visited row by row (y outer, x inner); samplers that consume a
// random source depend on that order.
func Generate(width, height int, fn func(x, y int) float64) (*Field, error) {
	if err := ValidateSize(width, height); err != nil {
		return nil, err
	}

	f := &Field{
		width:  width,
		height: height,
		values: make([]float64, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.values[y*width+x] = fn(x, y)
		}
	}
	return f, nil
}

// FromValues copies values into a new field.
func FromValues(width, height int, values []float64) (*Field, error) {
	if err := ValidateSize(width, height); err != nil {
		return nil, err
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("%w: expected %d values for %dx%d, got %d",
			ErrInvalidParameter, width*height, width, height, len(values))
	}

	f := &Field{width: width, height: height, values: make([]float64, len(values))}
	copy(f.values, values)
	return f, nil
}

func (f *Field) Width() int  { return f.width }
func (f *Field) Height() int { return f.height }

// At returns the value at (x, y). It panics when the cell is out of range.
func (f *Field) At(x, y int) float64 {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		panic(fmt.Sprintf("field: cell (%d,%d) outside %dx%d", x, y, f.width, f.height))
	}
	return f.values[y*f.width+x]
}

// Values returns a row-major copy of the cells.
func (f *Field) Values() []float64 {
	out := make([]float64, len(f.values))
	copy(out, f.values)
	return out
}

// Equal reports whether both fields have the same shape and bit-identical cells.
func (f *Field) Equal(o *Field) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.width != o.width || f.height != o.height {
		return false
	}
	for i, v := range f.values {
		if math.Float64bits(v) != math.Float64bits(o.values[i]) {
			return false
		}
	}
	return true
}

// ToGray16 converts the field into a 16-bit grayscale image.
// Values are clamped to [0,1]; NaN maps to black.
func (f *Field) ToGray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.width, f.height))
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			v := Clamp01(f.values[y*f.width+x])
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * 0xffff))})
		}
	}
	return img
}

// FromGray16 reads a grayscale image back into a field.
func FromGray16(img *image.Gray16) (*Field, error) {
	b := img.Bounds()
	return Generate(b.Dx(), b.Dy(), func(x, y int) float64 {
		return float64(img.Gray16At(b.Min.X+x, b.Min.Y+y).Y) / 0xffff
	})
}

// Clamp01 limits v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
