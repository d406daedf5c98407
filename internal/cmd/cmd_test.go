package cmd

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/atlas"
	"github.com/MeKo-Tech/noisemap/internal/pipeline"
	"github.com/MeKo-Tech/noisemap/internal/render"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper clears global config for the test. Flag bindings made in init
// are lost, so tests set every key they read.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestParseSeeds(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{name: "single", input: "42", want: []int64{42}},
		{name: "range", input: "1-4", want: []int64{1, 2, 3, 4}},
		{name: "mixed with spaces", input: "1-2, 7", want: []int64{1, 2, 7}},
		{name: "negative single", input: "-3", want: []int64{-3}},
		{name: "negative range", input: "-2-1", want: []int64{-2, -1, 0, 1}},
		{name: "both negative", input: "-5--4", want: []int64{-5, -4}},
		{name: "range ending at max int", input: "9223372036854775806-9223372036854775807", want: []int64{math.MaxInt64 - 1, math.MaxInt64}},
		{name: "range starting at min int", input: "-9223372036854775808--9223372036854775807", want: []int64{math.MinInt64, math.MinInt64 + 1}},
		{name: "reversed range", input: "4-1", wantErr: true},
		{name: "range too large", input: "1-10000000000", wantErr: true},
		{name: "full int64 range", input: "-9223372036854775808-9223372036854775807", wantErr: true},
		{name: "list too large", input: "5,1-1048576", wantErr: true},
		{name: "invalid number", input: "abc", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSeeds(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildTasks(t *testing.T) {
	tasks := buildTasks([]string{"islands", "rivers"}, []int64{1, 2})
	require.Len(t, tasks, 4)
	assert.Equal(t, "islands_s1", tasks[0].Key())
	assert.Equal(t, "rivers_s2", tasks[3].Key())
}

func TestLoadRecipes(t *testing.T) {
	t.Run("defaults without config", func(t *testing.T) {
		resetViper(t)

		recipes, err := loadRecipes()
		require.NoError(t, err)
		assert.Equal(t, pipeline.DefaultRecipes(), recipes)
	})

	t.Run("from config", func(t *testing.T) {
		resetViper(t)

		config := `
recipes:
  - name: dunes
    noise: ridged
    scale: 8
  - name: atolls
    noise: layered
    layers: 3
    mask: island
    combine: intersection
    threshold: 0.4
`
		viper.SetConfigType("yaml")
		require.NoError(t, viper.ReadConfig(strings.NewReader(config)))

		recipes, err := loadRecipes()
		require.NoError(t, err)
		require.Len(t, recipes, 2)

		assert.Equal(t, "dunes", recipes[0].Name)
		assert.Equal(t, "ridged", recipes[0].Noise)
		assert.Equal(t, 8, recipes[0].Scale)
		assert.Nil(t, recipes[0].Threshold)

		assert.Equal(t, "island", recipes[1].Mask)
		assert.Equal(t, "intersection", recipes[1].Combine)
		require.NotNil(t, recipes[1].Threshold)
		assert.InDelta(t, 0.4, *recipes[1].Threshold, 1e-9)
	})
}

func TestRecipeFromFlags(t *testing.T) {
	resetViper(t)
	viper.Set("generate.noise", "terrain")
	viper.Set("generate.mask", "island")
	viper.Set("generate.combine", "average")
	viper.Set("generate.threshold", -1.0)

	r := recipeFromFlags()
	assert.Equal(t, customRecipe, r.Name)
	assert.Equal(t, "terrain", r.Noise)
	assert.Equal(t, "average", r.Combine)
	assert.Nil(t, r.Threshold)

	assert.Nil(t, r.MaskValue)
	assert.Nil(t, r.SeaLevel)
	assert.Zero(t, r.Shore)

	viper.Set("generate.threshold", 0.5)
	r = recipeFromFlags()
	require.NotNil(t, r.Threshold)
	assert.Equal(t, 0.5, *r.Threshold)

	viper.Set("generate.mask", "solid")
	viper.Set("generate.mask_value", 0.0)
	viper.Set("generate.shore", 6.0)
	viper.Set("generate.sea_level", 0.3)
	r = recipeFromFlags()
	require.NotNil(t, r.MaskValue)
	assert.Equal(t, 0.0, *r.MaskValue)
	assert.Equal(t, 6.0, r.Shore)
	require.NotNil(t, r.SeaLevel)
	assert.Equal(t, 0.3, *r.SeaLevel)
}

func TestRunGenerate_SolidMaskValueFromFlags(t *testing.T) {
	resetViper(t)
	out := filepath.Join(t.TempDir(), "solid.png")

	setMapOptions("generate", 6, 4)
	viper.Set("generate.output", out)
	viper.Set("generate.noise", "perlin")
	viper.Set("generate.mask", "solid")
	viper.Set("generate.mask_value", 0.0)
	viper.Set("generate.combine", "product")
	viper.Set("generate.threshold", -1.0)

	require.NoError(t, runGenerate(nil, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	wr, wg, wb, _ := render.Palette[0].RGBA()
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r != wr || g != wg || b != wb {
				t.Fatalf("pixel (%d,%d) is not the lowest palette level", x, y)
			}
		}
	}
}

func setMapOptions(prefix string, width, height int) {
	viper.Set(prefix+".width", width)
	viper.Set(prefix+".height", height)
	viper.Set(prefix+".upscale", 2)
	viper.Set(prefix+".png_compression", "speed")
}

func TestRunGenerate(t *testing.T) {
	resetViper(t)
	out := filepath.Join(t.TempDir(), "nested", "map.png")

	setMapOptions("generate", 12, 8)
	viper.Set("generate.recipe", "islands")
	viper.Set("generate.seed", 9)
	viper.Set("generate.output", out)

	require.NoError(t, runGenerate(nil, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 24, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestRunGenerate_UnknownRecipe(t *testing.T) {
	resetViper(t)
	setMapOptions("generate", 8, 8)
	viper.Set("generate.recipe", "volcano")

	assert.Error(t, runGenerate(nil, nil))
}

func TestRunBatch_Atlas(t *testing.T) {
	resetViper(t)
	dbPath := filepath.Join(t.TempDir(), "maps.atlas")

	setMapOptions("batch", 8, 8)
	viper.Set("batch.recipes", []string{"terrain", "ridges"})
	viper.Set("batch.seeds", "1-3")
	viper.Set("batch.workers", 2)
	viper.Set("batch.format", "atlas")
	viper.Set("batch.output_file", dbPath)
	viper.Set("batch.name", "test")

	require.NoError(t, runBatch(nil, nil))

	r, err := atlas.OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()

	seeds, err := r.Seeds("ridges")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seeds)

	meta, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "test", meta.Name)
	assert.Equal(t, 2, meta.Upscale)
	assert.Equal(t, []string{"ridges", "terrain"}, meta.Recipes)
	assert.Equal(t, 6, meta.Maps)
}

func TestRunBatch_Folder(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()

	setMapOptions("batch", 8, 8)
	viper.Set("output-dir", dir)
	viper.Set("batch.recipes", []string{"static"})
	viper.Set("batch.seeds", "5")
	viper.Set("batch.format", "folder")

	require.NoError(t, runBatch(nil, nil))
	assert.FileExists(t, filepath.Join(dir, "static", "5.png"))
}

func TestRunBatch_Validation(t *testing.T) {
	resetViper(t)
	setMapOptions("batch", 8, 8)
	viper.Set("batch.seeds", "1")

	viper.Set("batch.format", "zip")
	assert.Error(t, runBatch(nil, nil))

	viper.Set("batch.format", "atlas")
	assert.Error(t, runBatch(nil, nil), "atlas format needs an output file")

	viper.Set("batch.format", "folder")
	viper.Set("batch.recipes", []string{"volcano"})
	viper.Set("output-dir", t.TempDir())
	assert.Error(t, runBatch(nil, nil))
}
