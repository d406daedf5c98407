package algebra

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/noisemap/internal/field"
)

// Distance returns, for every cell above level, its Euclidean distance to the
// nearest cell at or below level, divided by radius and capped at 1. Cells at
// or below level are 0. A field with no such cells is 1 everywhere.
//
// The transform is the separable squared distance transform of Felzenszwalb &
// Huttenlocher: one 1D pass per row, then one per column.
func Distance(a *field.Field, level, radius float64) (*field.Field, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil field", field.ErrInvalidParameter)
	}
	if !(radius > 0) {
		return nil, fmt.Errorf("%w: distance radius must be positive, got %v", field.ErrInvalidParameter, radius)
	}

	w, h := a.Width(), a.Height()
	sq := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if a.At(x, y) > level {
				sq[y*w+x] = math.Inf(1)
			}
		}
	}

	row := make([]float64, w)
	rowOut := make([]float64, w)
	for y := 0; y < h; y++ {
		copy(row, sq[y*w:(y+1)*w])
		distanceTransform1D(row, rowOut)
		copy(sq[y*w:(y+1)*w], rowOut)
	}

	col := make([]float64, h)
	colOut := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = sq[y*w+x]
		}
		distanceTransform1D(col, colOut)
		for y := 0; y < h; y++ {
			sq[y*w+x] = colOut[y]
		}
	}

	return field.Generate(w, h, func(x, y int) float64 {
		return math.Min(1, math.Sqrt(sq[y*w+x])/radius)
	})
}

// distanceTransform1D writes the squared distance transform of f into out
// using the lower envelope of parabolas rooted at each sample.
func distanceTransform1D(f, out []float64) {
	n := len(f)
	v := make([]int, 0, n)
	z := make([]float64, 0, n+1)

	for q := 0; q < n; q++ {
		if math.IsInf(f[q], 1) {
			continue
		}
		var s float64
		for len(v) > 0 {
			p := v[len(v)-1]
			s = ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*(q-p))
			if s > z[len(z)-1] {
				break
			}
			v = v[:len(v)-1]
			z = z[:len(z)-1]
		}
		if len(v) == 0 {
			s = math.Inf(-1)
		}
		v = append(v, q)
		z = append(z, s)
	}

	if len(v) == 0 {
		for q := range out {
			out[q] = math.Inf(1)
		}
		return
	}

	k := 0
	for q := 0; q < n; q++ {
		for k+1 < len(v) && z[k+1] < float64(q) {
			k++
		}
		dx := float64(q - v[k])
		out[q] = dx*dx + f[v[k]]
	}
}
