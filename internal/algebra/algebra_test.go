package algebra

import (
	"math"
	"math/rand"
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomField(t *testing.T, r *rand.Rand, w, h int) *field.Field {
	t.Helper()
	f, err := field.Generate(w, h, func(_, _ int) float64 { return r.Float64() })
	require.NoError(t, err)
	return f
}

func mustValues(t *testing.T, w, h int, values ...float64) *field.Field {
	t.Helper()
	f, err := field.FromValues(w, h, values)
	require.NoError(t, err)
	return f
}

func TestUnionAndIntersectionRandom(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	for i := 0; i < 10; i++ {
		a := randomField(t, r, 16, 12)
		b := randomField(t, r, 16, 12)

		u, err := Combine(a, b, Union)
		require.NoError(t, err)
		n, err := Combine(a, b, Intersection)
		require.NoError(t, err)

		av, bv := a.Values(), b.Values()
		for j, v := range u.Values() {
			require.Equal(t, math.Max(av[j], bv[j]), v)
		}
		for j, v := range n.Values() {
			require.Equal(t, math.Min(av[j], bv[j]), v)
		}
	}
}

func TestCombineOps(t *testing.T) {
	a := mustValues(t, 3, 1, 0.25, 0.9, 0.1)
	b := mustValues(t, 3, 1, 1.0, 0.1, 0.8)

	tests := []struct {
		op   Op
		want []float64
	}{
		{Product, []float64{0.5, math.Sqrt(0.9 * 0.1), math.Sqrt(0.1 * 0.8)}},
		{Average, []float64{0.625, 0.5, 0.45}},
		{Difference, []float64{0, 1, 0}},
		{Union, []float64{1.0, 0.9, 0.8}},
		{Intersection, []float64{0.25, 0.1, 0.1}},
		{Quotient, []float64{0.25, 9, 0.125}},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := Combine(a, b, tt.op)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got.Values(), 1e-12)
		})
	}
}

func TestCombineCropsToSharedRegion(t *testing.T) {
	a := mustValues(t, 3, 2,
		0.1, 0.2, 0.3,
		0.4, 0.5, 0.6)
	b := mustValues(t, 2, 3,
		1, 1,
		1, 1,
		1, 1)

	got, err := Combine(a, b, Intersection)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Width())
	assert.Equal(t, 2, got.Height())
	assert.Equal(t, []float64{0.1, 0.2, 0.4, 0.5}, got.Values())
}

func TestQuotientByZeroPassesThrough(t *testing.T) {
	a := mustValues(t, 2, 1, 0.5, 0)
	b := mustValues(t, 2, 1, 0, 0)

	got, err := Combine(a, b, Quotient)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.At(0, 0), 1))
	assert.True(t, math.IsNaN(got.At(1, 0)))

	clamped, err := Threshold(got, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, clamped.Values())
}

func TestCombineUnknownOp(t *testing.T) {
	a := mustValues(t, 1, 1, 0.5)
	_, err := Combine(a, a, Op(77))
	assert.ErrorIs(t, err, field.ErrInvalidParameter)

	_, err = Combine(nil, a, Union)
	assert.ErrorIs(t, err, field.ErrInvalidParameter)
}

func TestInvertIsInvolution(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	// Dyadic values keep 1-(1-v) exact.
	a, err := field.Generate(8, 8, func(_, _ int) float64 {
		return float64(r.Intn(1024)) / 1024
	})
	require.NoError(t, err)

	once, err := Invert(a)
	require.NoError(t, err)
	twice, err := Invert(once)
	require.NoError(t, err)

	assert.True(t, a.Equal(twice))
	assert.Equal(t, 1-a.At(3, 4), once.At(3, 4))
}

func TestThreshold(t *testing.T) {
	a := mustValues(t, 4, 1, 0.2, 0.5, 0.50001, 1)
	got, err := Threshold(a, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1}, got.Values())
}

func TestBlurSoftensEdges(t *testing.T) {
	a, err := field.Generate(21, 21, func(x, _ int) float64 {
		if x < 10 {
			return 0
		}
		return 1
	})
	require.NoError(t, err)

	b, err := Blur(a, 2)
	require.NoError(t, err)
	assert.Equal(t, 21, b.Width())
	assert.Equal(t, 21, b.Height())

	edge := b.At(10, 10)
	assert.Greater(t, edge, 0.0)
	assert.Less(t, edge, 1.0)
	assert.InDelta(t, 0.0, b.At(0, 10), 1e-3)
	assert.InDelta(t, 1.0, b.At(20, 10), 1e-3)

	_, err = Blur(a, -1)
	assert.ErrorIs(t, err, field.ErrInvalidParameter)
}

func TestParseOp(t *testing.T) {
	for _, op := range Ops {
		got, err := ParseOp(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	_, err := ParseOp("xor")
	assert.ErrorIs(t, err, field.ErrInvalidParameter)
}
