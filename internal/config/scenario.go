// Package config loads and validates the YAML scenario file describing a
// simulation run: the district roster, budget, behavioral parameters, and
// cost rates.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mlucero/segsim/internal/agents"
	"github.com/mlucero/segsim/internal/grid"
	"github.com/mlucero/segsim/internal/policy"
)

// District describes one district at spawn time.
type District struct {
	Name              string    `yaml:"name"`
	Households        int       `yaml:"households"`
	InitialCompliance float64   `yaml:"initial_compliance"`
	Center            grid.Cell `yaml:"center"`
}

// Split is the status quo education/enforcement/incentive proportion applied
// when no controller posts an allocation.
type Split struct {
	Edu float64 `yaml:"edu"`
	Enf float64 `yaml:"enf"`
	Inc float64 `yaml:"inc"`
}

// Capital holds the political capital drift rates.
type Capital struct {
	Alpha float64 `yaml:"alpha"` // erosion per step at full enforcement
	Beta  float64 `yaml:"beta"`  // recovery per step with no enforcement
}

// Scenario is the full run description.
type Scenario struct {
	Seed int64 `yaml:"seed"`

	GridWidth  int `yaml:"grid_width"`
	GridHeight int `yaml:"grid_height"`

	QuarterLength   uint64  `yaml:"quarter_length"` // steps per quarter
	MaxQuarters     int     `yaml:"max_quarters"`
	QuarterlyBudget float64 `yaml:"quarterly_budget"` // pesos

	FineAmount    float64 `yaml:"fine_amount"`
	TargetingMode string  `yaml:"targeting_mode"` // "pursuit" or "sweep"

	DefaultSplit Split   `yaml:"default_split"`
	Capital      Capital `yaml:"capital"`

	Behavior agents.BehaviorParams `yaml:"behavior"`
	Costs    policy.Costs          `yaml:"costs"`

	Districts []District `yaml:"districts"`
}

// Default returns the built-in scenario: seven districts of a mid-sized
// city, a dense low-trust urban core and smaller higher-trust districts
// around it, on a three-year horizon.
func Default() Scenario {
	return Scenario{
		Seed:            42,
		GridWidth:       120,
		GridHeight:      120,
		QuarterLength:   90,
		MaxQuarters:     12,
		QuarterlyBudget: 2_500_000,
		FineAmount:      500,
		TargetingMode:   "pursuit",
		DefaultSplit:    Split{Edu: 0.4, Enf: 0.4, Inc: 0.2},
		Capital:         Capital{Alpha: 0.004, Beta: 0.0004},
		Behavior:        agents.DefaultBehaviorParams(),
		Costs:           policy.DefaultCosts(),
		Districts: []District{
			{Name: "Poblacion", Households: 400, InitialCompliance: 0.20, Center: grid.Cell{X: 60, Y: 60}},
			{Name: "San Isidro", Households: 220, InitialCompliance: 0.35, Center: grid.Cell{X: 30, Y: 30}},
			{Name: "Riverside", Households: 180, InitialCompliance: 0.25, Center: grid.Cell{X: 90, Y: 30}},
			{Name: "Bayanihan", Households: 150, InitialCompliance: 0.45, Center: grid.Cell{X: 30, Y: 90}},
			{Name: "Mabini", Households: 160, InitialCompliance: 0.40, Center: grid.Cell{X: 90, Y: 90}},
			{Name: "Del Pilar", Households: 120, InitialCompliance: 0.50, Center: grid.Cell{X: 60, Y: 20}},
			{Name: "Santa Cruz", Households: 100, InitialCompliance: 0.55, Center: grid.Cell{X: 20, Y: 60}},
		},
	}
}

// Load reads a scenario file. Fields left out fall back to the defaults.
func Load(path string) (Scenario, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// TargetMode maps the scenario string to an agent targeting mode.
func (s Scenario) TargetMode() (agents.TargetingMode, error) {
	switch s.TargetingMode {
	case "", "pursuit":
		return agents.ModePursuit, nil
	case "sweep":
		return agents.ModeSweep, nil
	default:
		return 0, fmt.Errorf("unknown targeting_mode %q", s.TargetingMode)
	}
}

// Validate rejects scenarios that cannot run.
func (s Scenario) Validate() error {
	if s.GridWidth < 1 || s.GridHeight < 1 {
		return fmt.Errorf("grid %dx%d too small", s.GridWidth, s.GridHeight)
	}
	if s.QuarterLength == 0 {
		return fmt.Errorf("quarter_length must be positive")
	}
	if s.MaxQuarters < 1 {
		return fmt.Errorf("max_quarters %d must be at least 1", s.MaxQuarters)
	}
	if s.QuarterlyBudget < 0 {
		return fmt.Errorf("quarterly_budget %.2f negative", s.QuarterlyBudget)
	}
	if s.FineAmount < 0 {
		return fmt.Errorf("fine_amount %.2f negative", s.FineAmount)
	}
	if s.DefaultSplit.Edu < 0 || s.DefaultSplit.Enf < 0 || s.DefaultSplit.Inc < 0 {
		return fmt.Errorf("default_split weights must be non-negative")
	}
	if s.Capital.Alpha < 0 || s.Capital.Beta < 0 {
		return fmt.Errorf("capital rates must be non-negative")
	}
	if _, err := s.TargetMode(); err != nil {
		return err
	}
	if err := s.Behavior.Validate(); err != nil {
		return err
	}
	if err := s.Costs.Validate(); err != nil {
		return err
	}
	if len(s.Districts) == 0 {
		return fmt.Errorf("at least one district required")
	}
	seen := make(map[string]bool, len(s.Districts))
	for i, d := range s.Districts {
		if d.Name == "" {
			return fmt.Errorf("district %d has no name", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate district name %q", d.Name)
		}
		seen[d.Name] = true
		if d.Households < 0 {
			return fmt.Errorf("district %q: negative household count", d.Name)
		}
		if d.InitialCompliance < 0 || d.InitialCompliance > 1 {
			return fmt.Errorf("district %q: initial_compliance %.2f outside [0,1]", d.Name, d.InitialCompliance)
		}
		if d.Center.X < 0 || d.Center.X >= s.GridWidth || d.Center.Y < 0 || d.Center.Y >= s.GridHeight {
			return fmt.Errorf("district %q: center (%d,%d) off the grid", d.Name, d.Center.X, d.Center.Y)
		}
	}
	return nil
}
