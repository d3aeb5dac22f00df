package agents

import (
	"math/rand"

	"github.com/mlucero/segsim/internal/grid"
)

// Stepper is an agent activated once per simulation step.
type Stepper interface {
	Step(env *Env)
}

// Space is the slice of grid capability agents need: local queries and
// single-step movement. Concretely *grid.Grid.
type Space interface {
	Neighbors(center grid.Cell, radius int) []grid.Occupant
	LegalMoves(c grid.Cell) []grid.Cell
	Move(o grid.Occupant, c grid.Cell)
	At(o grid.Occupant) (grid.Cell, bool)
}

// RegionView is what an agent may read from its region's current policy,
// plus the one write path a household has: claiming an incentive.
type RegionView interface {
	EducationIntensity() float64
	EnforcementIntensity() float64
	IncentiveValue() float64 // per-capita reward amount, pesos
	FineAmount() float64
	// GiveReward pays out of the region's incentive cash pool. Returns
	// false without side effects when the pool can't cover the amount.
	GiveReward(amount float64) bool
}

// FineSink receives fine revenue as units issue citations.
type FineSink interface {
	RecordFine(amount float64)
}

// Env carries everything an agent may touch during one step. The ledger
// builds one per agent activation so region lookups happen exactly once.
type Env struct {
	Grid   Space
	Rand   *rand.Rand
	Region RegionView
	Fines  FineSink

	// Violators lists the currently non-compliant households of the
	// agent's region, ordered by ID. Only enforcement units read it.
	Violators []*Household
}
