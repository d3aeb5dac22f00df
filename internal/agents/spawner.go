package agents

import (
	"fmt"
	"math/rand"

	"github.com/mlucero/segsim/internal/entropy"
	"github.com/mlucero/segsim/internal/grid"
)

// Spawner generates the starting population. Households cluster around their
// district center with noise-weighted jitter so settlement follows the
// density field instead of forming perfect discs.
type Spawner struct {
	rng     *rand.Rand
	density *grid.Density
	nextID  HouseholdID
}

// Cluster spread around the district center, in cells.
const clusterSigma = 5.0

// Candidate placements tried per household; the densest wins.
const placementTries = 3

// NewSpawner creates a spawner for a scenario seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:     entropy.Derive(seed, entropy.StreamSpawner),
		density: grid.NewDensity(seed + entropy.StreamDensity),
		nextID:  1,
	}
}

// SpawnHouseholds creates and places count households for a district.
// initialCompliance is the fraction starting out compliant; compliant
// households begin with a supportive attitude, the rest skeptical.
func (s *Spawner) SpawnHouseholds(g *grid.Grid, count int, regionID uint64, center grid.Cell, initialCompliance float64, params *BehaviorParams) ([]*Household, error) {
	out := make([]*Household, 0, count)
	for i := 0; i < count; i++ {
		h, err := NewHousehold(s.nextID, regionID, s.rollIncome(), params)
		if err != nil {
			return nil, fmt.Errorf("spawn region %d: %w", regionID, err)
		}
		s.nextID++

		h.Compliant = s.rng.Float64() < initialCompliance
		base := 0.3
		if h.Compliant {
			base = 0.66
		}
		h.Attitude = clampRange(base+s.rng.NormFloat64()*0.05, 0.05, 0.95)
		h.SocialNorm = 0.5
		h.Control = clampRange(0.7+s.rng.NormFloat64()*0.1, 0.2, 1.0)

		h.Position = s.pickCell(g, center)
		if err := g.Place(h, h.Position); err != nil {
			return nil, fmt.Errorf("spawn region %d: %w", regionID, err)
		}
		out = append(out, h)
	}
	return out, nil
}

// rollIncome draws an income tier at roughly 50/30/20.
func (s *Spawner) rollIncome() IncomeTier {
	r := s.rng.Float64()
	switch {
	case r < 0.5:
		return IncomeLow
	case r < 0.8:
		return IncomeMid
	default:
		return IncomeHigh
	}
}

// pickCell jitters a few candidates around the center and keeps the one with
// the highest settlement density.
func (s *Spawner) pickCell(g *grid.Grid, center grid.Cell) grid.Cell {
	best := center
	bestScore := -1.0
	for i := 0; i < placementTries; i++ {
		c := grid.Cell{
			X: center.X + int(s.rng.NormFloat64()*clusterSigma),
			Y: center.Y + int(s.rng.NormFloat64()*clusterSigma),
		}
		c = clampCell(g, c)
		if score := s.density.At(c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func clampCell(g *grid.Grid, c grid.Cell) grid.Cell {
	if c.X < 0 {
		c.X = 0
	}
	if c.X >= g.Width {
		c.X = g.Width - 1
	}
	if c.Y < 0 {
		c.Y = 0
	}
	if c.Y >= g.Height {
		c.Y = g.Height - 1
	}
	return c
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
