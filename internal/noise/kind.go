package noise

import (
	"fmt"
	"math"
	"strings"

	"github.com/MeKo-Tech/noisemap/internal/field"
)

// Kind selects the transform applied to, or in place of, coherent noise.
type Kind int

const (
	Perlin Kind = iota
	Static
	Ridged
	Terrain
	River
)

// Kinds lists every noise kind in declaration order.
var Kinds = []Kind{Perlin, Static, Ridged, Terrain, River}

func (k Kind) String() string {
	switch k {
	case Perlin:
		return "perlin"
	case Static:
		return "static"
	case Ridged:
		return "ridged"
	case Terrain:
		return "terrain"
	case River:
		return "river"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a name such as "ridged" to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown noise kind %q", field.ErrInvalidParameter, name)
}

// Ridge folds v around its midpoint: 0 and 1 map to 1, 0.5 maps to 0.
func Ridge(v float64) float64 {
	return math.Abs(2*v - 1)
}

// Plateau compresses low values and stretches high ones (v^1.5).
func Plateau(v float64) float64 {
	return math.Pow(v, 1.5)
}

// Trough is the complement of Ridge.
func Trough(v float64) float64 {
	return 1 - Ridge(v)
}
