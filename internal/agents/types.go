// Package agents provides the two stepping agent kinds of the simulation:
// households deciding whether to comply with the segregation ordinance, and
// enforcement units patrolling for violators.
package agents

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mlucero/segsim/internal/grid"
)

// HouseholdID is a unique identifier for a household.
type HouseholdID uint64

// IncomeTier is an ordinal income class. Lower tiers are more sensitive to
// fines and incentives.
type IncomeTier uint8

const (
	IncomeLow  IncomeTier = iota // ~50% of population
	IncomeMid                    // ~30%
	IncomeHigh                   // ~20%
)

// Household is a resident decision agent. Behavioral state follows the Theory
// of Planned Behavior: attitude, subjective norm, and perceived behavioral
// control, all in [0,1], combined with a net monetary cost into a utility
// score each step.
type Household struct {
	ID       HouseholdID `json:"id"`
	RegionID uint64      `json:"region_id"`
	Income   IncomeTier  `json:"income"`
	Position grid.Cell   `json:"position"`

	Attitude   float64 `json:"attitude"`
	SocialNorm float64 `json:"social_norm"`
	Control    float64 `json:"control"` // perceived behavioral control, fixed after spawn
	Utility    float64 `json:"utility"`
	Compliant  bool    `json:"compliant"`

	// Redeemed marks that this quarter's incentive has been claimed; it
	// resets at each quarter boundary.
	Redeemed bool `json:"redeemed"`

	params *BehaviorParams
	key    string
}

// NewHousehold constructs a household with validated behavioral parameters.
func NewHousehold(id HouseholdID, regionID uint64, income IncomeTier, params *BehaviorParams) (*Household, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("household %d: %w", id, err)
	}
	return &Household{
		ID:       id,
		RegionID: regionID,
		Income:   income,
		params:   params,
		key:      fmt.Sprintf("h%08d", id),
	}, nil
}

// Key implements grid.Occupant. Zero-padded so lexical and numeric order agree.
func (h *Household) Key() string { return h.key }

// Params returns the household's behavioral parameter set.
func (h *Household) Params() *BehaviorParams { return h.params }

// TargetingMode selects how an enforcement unit picks movement targets.
type TargetingMode uint8

const (
	// ModePursuit chases the nearest currently non-compliant household in
	// patrol range, falling back to a random walk.
	ModePursuit TargetingMode = iota
	// ModeSweep walks toward the nearest not-yet-visited household
	// regardless of compliance, clearing its memory once every household
	// in the region has been visited.
	ModeSweep
)

// Unit is an enforcement officer patrolling one region. Units are hired and
// retired as quarterly enforcement funding changes, so identity is a UUID
// rather than a dense counter.
type Unit struct {
	ID       uuid.UUID     `json:"id"`
	RegionID uint64        `json:"region_id"`
	Position grid.Cell     `json:"position"`
	Mode     TargetingMode `json:"mode"`

	PatrolRange int `json:"patrol_range"`
	CatchRadius int `json:"catch_radius"`

	// Sweep-mode memory of households already visited.
	visited map[HouseholdID]bool
	key     string
}

// NewUnit creates an enforcement unit for a region.
func NewUnit(regionID uint64, mode TargetingMode, patrolRange, catchRadius int) *Unit {
	id := uuid.New()
	return &Unit{
		ID:          id,
		RegionID:    regionID,
		Mode:        mode,
		PatrolRange: patrolRange,
		CatchRadius: catchRadius,
		visited:     make(map[HouseholdID]bool),
		key:         "u-" + id.String(),
	}
}

// Key implements grid.Occupant.
func (u *Unit) Key() string { return u.key }
