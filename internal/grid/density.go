// Settlement-density field used when clustering households around district
// centers. Layered simplex noise gives each cell a build suitability in [0,1],
// so districts grow along plausible contours instead of perfect circles.
package grid

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Density is a deterministic per-cell suitability field.
type Density struct {
	coarse opensimplex.Noise
	fine   opensimplex.Noise
}

// NewDensity creates a density field from a seed. The same seed always yields
// the same field.
func NewDensity(seed int64) *Density {
	return &Density{
		coarse: opensimplex.NewNormalized(seed),
		fine:   opensimplex.NewNormalized(seed + 1),
	}
}

// At returns the suitability of a cell in [0,1]. Two octaves: broad
// neighborhood structure plus block-level variation.
func (d *Density) At(c Cell) float64 {
	x := float64(c.X)
	y := float64(c.Y)
	v := 0.7*d.coarse.Eval2(x*0.05, y*0.05) + 0.3*d.fine.Eval2(x*0.2, y*0.2)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
