package noise

import (
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func synth(t *testing.T, seed int64, kind Kind, opts ...Option) *field.Field {
	t.Helper()
	f, err := NewContext(rng.New(seed)).Synthesize(kind, 48, 32, opts...)
	require.NoError(t, err)
	return f
}

func assertInUnitRange(t *testing.T, f *field.Field) {
	t.Helper()
	for i, v := range f.Values() {
		require.GreaterOrEqual(t, v, 0.0, "cell %d", i)
		require.LessOrEqual(t, v, 1.0, "cell %d", i)
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(kind.String(), func(t *testing.T) {
			a := synth(t, 2024, kind, WithScale(6))
			b := synth(t, 2024, kind, WithScale(6))
			assert.True(t, a.Equal(b), "same seed must give bit-identical fields")
			assertInUnitRange(t, a)
		})
	}
}

func TestSynthesizeSeedsDiffer(t *testing.T) {
	a := synth(t, 1, Perlin)
	b := synth(t, 2, Perlin)
	assert.False(t, a.Equal(b))
}

func TestStaticMatchesSourceSequence(t *testing.T) {
	ctx := NewContext(rng.New(1234))
	f, err := ctx.Synthesize(Static, 4, 4)
	require.NoError(t, err)

	draws := []int{
		30146, 5515, 10221, 34916, 32084, 38196, 47044, 18787,
		25974, 44086, 39579, 64965, 8652, 37952, 28427, 54348,
	}
	want := make([]float64, len(draws))
	for i, d := range draws {
		want[i] = float64(d) / 65536
	}
	assert.Equal(t, want, f.Values())
}

func TestDerivedKindsFollowPerlin(t *testing.T) {
	base := synth(t, 77, Perlin).Values()
	ridged := synth(t, 77, Ridged).Values()
	terrain := synth(t, 77, Terrain).Values()
	river := synth(t, 77, River).Values()

	for i, v := range base {
		assert.Equal(t, Ridge(v), ridged[i])
		assert.Equal(t, Plateau(v), terrain[i])
		assert.Equal(t, 1-ridged[i], river[i])
	}
}

func TestRidgeExtremes(t *testing.T) {
	assert.Equal(t, 1.0, Ridge(0))
	assert.Equal(t, 1.0, Ridge(1))
	assert.Equal(t, 0.0, Ridge(0.5))
	assert.Less(t, Ridge(0.4), 1.0)
	assert.Greater(t, Ridge(0.4), 0.0)

	assert.Equal(t, 0.0, Trough(0))
	assert.Equal(t, 1.0, Trough(0.5))
	assert.InDelta(t, 0.125, Plateau(0.25), 1e-12)
}

func TestDefaultScaleSubstitution(t *testing.T) {
	implicit := synth(t, 5, Perlin)
	zero := synth(t, 5, Perlin, WithScale(0))
	explicit := synth(t, 5, Perlin, WithScale(DefaultScale))
	assert.True(t, implicit.Equal(explicit))
	assert.True(t, zero.Equal(explicit))
}

func TestSynthesizeRegeneratesGradients(t *testing.T) {
	ctx := NewContext(rng.New(8))
	_, err := ctx.Synthesize(Perlin, 8, 8, WithScale(5))
	require.NoError(t, err)
	first := ctx.grad
	require.NotNil(t, first)
	assert.Equal(t, 5, first.Nodes())

	_, err = ctx.Synthesize(Perlin, 8, 8, WithScale(3))
	require.NoError(t, err)
	assert.NotSame(t, first, ctx.grad)
	assert.Equal(t, 3, ctx.grad.Nodes())
}

func TestWithSourceLeavesContextSource(t *testing.T) {
	ctx := NewContext(rng.New(10))
	_, err := ctx.Synthesize(Static, 4, 4, WithSource(rng.New(11)))
	require.NoError(t, err)

	f, err := ctx.Synthesize(Static, 4, 4)
	require.NoError(t, err)
	fresh, err := NewContext(rng.New(10)).Synthesize(Static, 4, 4)
	require.NoError(t, err)
	assert.True(t, f.Equal(fresh), "override must not consume context draws")
}

func TestSynthesizeValidation(t *testing.T) {
	ctx := NewContext(rng.New(1))
	tests := []struct {
		name string
		run  func() error
	}{
		{"zero width", func() error { _, err := ctx.Synthesize(Perlin, 0, 4); return err }},
		{"negative height", func() error { _, err := ctx.Synthesize(Perlin, 4, -4); return err }},
		{"scale one", func() error { _, err := ctx.Synthesize(Perlin, 4, 4, WithScale(1)); return err }},
		{"negative scale", func() error { _, err := ctx.Synthesize(Ridged, 4, 4, WithScale(-3)); return err }},
		{"unknown kind", func() error { _, err := ctx.Synthesize(Kind(99), 4, 4); return err }},
		{"persistence above one", func() error { _, err := ctx.SynthesizeLayered(4, 4, 2, WithPersistence(1.5)); return err }},
		{"negative persistence", func() error { _, err := ctx.SynthesizeLayered(4, 4, 2, WithPersistence(-0.1)); return err }},
		{"zero layers", func() error { _, err := ctx.SynthesizeLayered(4, 4, 0); return err }},
		{"nil source", func() error { _, err := NewContext(nil).Synthesize(Static, 4, 4); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), field.ErrInvalidParameter)
		})
	}
}

func TestLayeredSingleOctaveEqualsPerlin(t *testing.T) {
	perlin, err := NewContext(rng.New(31)).Synthesize(Perlin, 40, 24, WithScale(5))
	require.NoError(t, err)
	layered, err := NewContext(rng.New(31)).SynthesizeLayered(40, 24, 1, WithScale(5))
	require.NoError(t, err)
	assert.True(t, perlin.Equal(layered))
}

func TestLayeredRangeAndDeterminism(t *testing.T) {
	a, err := NewContext(rng.New(64)).SynthesizeLayered(64, 64, 5, WithPersistence(0.6))
	require.NoError(t, err)
	b, err := NewContext(rng.New(64)).SynthesizeLayered(64, 64, 5, WithPersistence(0.6))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assertInUnitRange(t, a)
	assert.Equal(t, 64, a.Width())
	assert.Equal(t, 64, a.Height())
}

func TestLayeredOctavesAddDetail(t *testing.T) {
	one, err := NewContext(rng.New(3)).SynthesizeLayered(32, 32, 1)
	require.NoError(t, err)
	four, err := NewContext(rng.New(3)).SynthesizeLayered(32, 32, 4)
	require.NoError(t, err)
	assert.False(t, one.Equal(four))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind("RIDGED")
	require.NoError(t, err)
	assert.Equal(t, Ridged, got)

	_, err = ParseKind("simplex")
	assert.ErrorIs(t, err, field.ErrInvalidParameter)
	assert.Equal(t, "kind(42)", Kind(42).String())
}
