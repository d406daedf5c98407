package noise

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/rng"
)

type vec2 struct {
	x float64
	y float64
}

// GradientField is a nodes x nodes lattice of unit vectors.
// It is regenerated wholesale, never mutated.
type GradientField struct {
	vecs  []vec2
	nodes int
}

// NewGradientField draws nodes*nodes unit vectors from src, row by row.
// Each angle is Float(src) * 2π.
func NewGradientField(nodes int, src rng.Source) (*GradientField, error) {
	if nodes < 2 {
		return nil, fmt.Errorf("%w: gradient lattice needs at least 2 nodes, got %d", field.ErrInvalidParameter, nodes)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil random source", field.ErrInvalidParameter)
	}

	g := &GradientField{nodes: nodes, vecs: make([]vec2, nodes*nodes)}
	for i := range g.vecs {
		theta := rng.Float(src) * 2 * math.Pi
		g.vecs[i] = vec2{x: math.Cos(theta), y: math.Sin(theta)}
	}
	return g, nil
}

// Nodes returns the lattice size along one axis.
func (g *GradientField) Nodes() int { return g.nodes }

// Gradient returns the vector stored at lattice point (i, j).
// Indices wrap modulo Nodes, so the lattice is periodic.
func (g *GradientField) Gradient(i, j int) (x, y float64) {
	v := g.vecs[wrap(j, g.nodes)*g.nodes+wrap(i, g.nodes)]
	return v.x, v.y
}

// Evaluate returns coherent noise at (x, y) in [0,1].
//
// The four corner dot products are blended with the quintic curve
// 6t^5 - 15t^4 + 10t^3 and remapped from [-1,1] via (v+1)/2. At an exact
// lattice point only that point's own (zero) displacement contributes.
func (g *GradientField) Evaluate(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix := int(x0)
	iy := int(y0)

	d00 := g.dot(ix, iy, fx, fy)
	d10 := g.dot(ix+1, iy, fx-1, fy)
	d01 := g.dot(ix, iy+1, fx, fy-1)
	d11 := g.dot(ix+1, iy+1, fx-1, fy-1)

	u := fade(fx)
	v := fade(fy)
	top := lerp(d00, d10, u)
	bottom := lerp(d01, d11, u)
	return (lerp(top, bottom, v) + 1) / 2
}

func (g *GradientField) dot(i, j int, dx, dy float64) float64 {
	gx, gy := g.Gradient(i, j)
	return gx*dx + gy*dy
}

// fade is the quintic smoothing curve 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
