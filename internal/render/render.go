// Package render turns normalized fields into paletted images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"golang.org/x/image/draw"
)

// Levels is the number of palette entries.
const Levels = 16

// Palette runs from deep water through sand and grass to rock and snow.
var Palette = color.Palette{
	color.RGBA{R: 12, G: 24, B: 74, A: 255},
	color.RGBA{R: 20, G: 44, B: 110, A: 255},
	color.RGBA{R: 30, G: 70, B: 150, A: 255},
	color.RGBA{R: 46, G: 104, B: 184, A: 255},
	color.RGBA{R: 74, G: 142, B: 206, A: 255},
	color.RGBA{R: 214, G: 200, B: 140, A: 255},
	color.RGBA{R: 190, G: 178, B: 108, A: 255},
	color.RGBA{R: 112, G: 164, B: 74, A: 255},
	color.RGBA{R: 84, G: 142, B: 56, A: 255},
	color.RGBA{R: 60, G: 118, B: 44, A: 255},
	color.RGBA{R: 44, G: 94, B: 36, A: 255},
	color.RGBA{R: 96, G: 88, B: 70, A: 255},
	color.RGBA{R: 120, G: 110, B: 96, A: 255},
	color.RGBA{R: 150, G: 144, B: 136, A: 255},
	color.RGBA{R: 206, G: 204, B: 202, A: 255},
	color.RGBA{R: 250, G: 250, B: 252, A: 255},
}

// Level maps v to its 1-based palette level, floor(v*15)+1.
// v is clamped to [0,1] first and NaN counts as 0.
func Level(v float64) int {
	return int(math.Floor(field.Clamp01(v)*(Levels-1))) + 1
}

// Render maps every cell of f onto Palette.
func Render(f *field.Field) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, f.Width(), f.Height()), Palette)
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			img.SetColorIndex(x, y, uint8(Level(f.At(x, y))-1))
		}
	}
	return img
}

// Upscale enlarges img by an integer factor with nearest-neighbour sampling,
// keeping the hard palette steps visible.
func Upscale(img *image.Paletted, factor int) *image.Paletted {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor), img.Palette)
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// CompressionLevel parses the png-compression flag values
// (default, speed, best, none).
func CompressionLevel(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	}
	return 0, fmt.Errorf("%w: unknown png compression %q", field.ErrInvalidParameter, name)
}

// EncodePNG writes img as PNG using the named compression level.
func EncodePNG(w io.Writer, img image.Image, compression string) error {
	level, err := CompressionLevel(compression)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
