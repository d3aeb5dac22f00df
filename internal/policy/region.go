// Package policy models a district under the segregation ordinance: its
// quarterly fund pools, the program intensities they buy, the enforcement
// headcount they sustain, and the incentive cash pool households draw from.
package policy

import (
	"fmt"
	"math"
	"sort"

	"github.com/mlucero/segsim/internal/agents"
	"github.com/mlucero/segsim/internal/grid"
)

// Costs are the conversion rates from pesos to program capacity.
type Costs struct {
	// EduCostPerHead is the quarterly spend per resident household at
	// which the education campaign saturates.
	EduCostPerHead float64 `yaml:"edu_cost_per_head" json:"edu_cost_per_head"`
	// EnfSaturation is the quarterly enforcement spend at which perceived
	// enforcement intensity reaches 1.
	EnfSaturation float64 `yaml:"enf_saturation" json:"enf_saturation"`
	// UnitCostPerQuarter is the fully loaded cost of one enforcement unit.
	UnitCostPerQuarter float64 `yaml:"unit_cost_per_quarter" json:"unit_cost_per_quarter"`
}

// DefaultCosts returns the calibrated baseline rates.
func DefaultCosts() Costs {
	return Costs{
		EduCostPerHead:     650,
		EnfSaturation:      375000,
		UnitCostPerQuarter: 75000,
	}
}

// Validate rejects rates that would divide by zero or hire for free.
func (c Costs) Validate() error {
	if c.EduCostPerHead <= 0 || c.EnfSaturation <= 0 || c.UnitCostPerQuarter <= 0 {
		return fmt.Errorf("costs: all rates must be positive, got %+v", c)
	}
	return nil
}

// Treasury receives fine revenue and incentive payouts as they happen, so
// the ledger can keep municipal totals alongside the per-region counters.
type Treasury interface {
	RecordFine(amount float64)
	RecordIncentive(amount float64)
}

// Region is one district. It owns its households and enforcement units and
// exposes the read-only policy view agents step against.
type Region struct {
	ID     uint64    `json:"id"`
	Name   string    `json:"name"`
	Center grid.Cell `json:"center"`

	Households []*agents.Household `json:"-"`
	Units      []*agents.Unit      `json:"-"`

	EduFund float64 `json:"edu_fund"`
	EnfFund float64 `json:"enf_fund"`
	IncFund float64 `json:"inc_fund"`

	// CashOnHand is what remains of the quarter's incentive fund.
	CashOnHand float64 `json:"cash_on_hand"`

	FineAmt float64 `json:"fine_amount"`

	// Running totals for the current quarter, zeroed by UpdatePolicy.
	QuarterFines      float64 `json:"quarter_fines"`
	QuarterIncentives float64 `json:"quarter_incentives"`

	eduIntensity    float64
	enfIntensity    float64
	perCapIncentive float64

	costs    Costs
	treasury Treasury
	mode     agents.TargetingMode
}

// NewRegion creates an empty district.
func NewRegion(id uint64, name string, center grid.Cell, fineAmount float64, costs Costs, treasury Treasury, mode agents.TargetingMode) (*Region, error) {
	if err := costs.Validate(); err != nil {
		return nil, fmt.Errorf("region %q: %w", name, err)
	}
	if fineAmount < 0 {
		return nil, fmt.Errorf("region %q: negative fine amount %.2f", name, fineAmount)
	}
	return &Region{
		ID:       id,
		Name:     name,
		Center:   center,
		FineAmt:  fineAmount,
		costs:    costs,
		treasury: treasury,
		mode:     mode,
	}, nil
}

// UpdatePolicy applies the quarter's fund split. Intensities saturate rather
// than grow without bound, and the incentive cash pool resets to the new
// fund; unspent incentive money does not roll over.
func (r *Region) UpdatePolicy(eduFund, enfFund, incFund float64) {
	r.EduFund = eduFund
	r.EnfFund = enfFund
	r.IncFund = incFund

	pop := float64(len(r.Households))
	if pop > 0 {
		r.eduIntensity = math.Min(1, eduFund/(pop*r.costs.EduCostPerHead))
		r.perCapIncentive = incFund / pop
	} else {
		r.eduIntensity = 0
		r.perCapIncentive = 0
	}
	r.enfIntensity = math.Min(1, enfFund/r.costs.EnfSaturation)
	r.CashOnHand = incFund
	r.QuarterFines = 0
	r.QuarterIncentives = 0
}

// AdjustUnits hires or retires enforcement units to match what the quarter's
// enforcement fund can pay for. New units start at the district center;
// retirement is newest-first so veteran positions persist.
func (r *Region) AdjustUnits(g *grid.Grid, params *agents.BehaviorParams) (hired, retired int, err error) {
	target := int(math.Floor(r.EnfFund / r.costs.UnitCostPerQuarter))

	for len(r.Units) < target {
		u := agents.NewUnit(r.ID, r.mode, params.PatrolRange, params.CatchRadius)
		u.Position = r.Center
		if err := g.Place(u, r.Center); err != nil {
			return hired, retired, fmt.Errorf("region %q hire: %w", r.Name, err)
		}
		r.Units = append(r.Units, u)
		hired++
	}
	for len(r.Units) > target {
		u := r.Units[len(r.Units)-1]
		r.Units = r.Units[:len(r.Units)-1]
		g.Remove(u)
		retired++
	}
	return hired, retired, nil
}

// ComplianceRate returns the compliant fraction of households. Pure; an
// empty district reads as fully non-compliant.
func (r *Region) ComplianceRate() float64 {
	if len(r.Households) == 0 {
		return 0
	}
	n := 0
	for _, h := range r.Households {
		if h.Compliant {
			n++
		}
	}
	return float64(n) / float64(len(r.Households))
}

// Violators returns the currently non-compliant households ordered by ID.
func (r *Region) Violators() []*agents.Household {
	var out []*agents.Household
	for _, h := range r.Households {
		if !h.Compliant {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResetRedemptions reopens incentive claims at the quarter boundary.
func (r *Region) ResetRedemptions() {
	for _, h := range r.Households {
		h.Redeemed = false
	}
}

// EducationIntensity implements agents.RegionView.
func (r *Region) EducationIntensity() float64 { return r.eduIntensity }

// EnforcementIntensity implements agents.RegionView.
func (r *Region) EnforcementIntensity() float64 { return r.enfIntensity }

// IncentiveValue implements agents.RegionView.
func (r *Region) IncentiveValue() float64 { return r.perCapIncentive }

// FineAmount implements agents.RegionView.
func (r *Region) FineAmount() float64 { return r.FineAmt }

// GiveReward pays an incentive claim from cash on hand. Claims that exceed
// the pool, and non-positive claims, fail without side effects.
func (r *Region) GiveReward(amount float64) bool {
	if amount <= 0 || amount > r.CashOnHand {
		return false
	}
	r.CashOnHand -= amount
	r.QuarterIncentives += amount
	if r.treasury != nil {
		r.treasury.RecordIncentive(amount)
	}
	return true
}

// RecordFine implements agents.FineSink, tallying citation revenue for the
// district before forwarding it to the municipal ledger.
func (r *Region) RecordFine(amount float64) {
	r.QuarterFines += amount
	if r.treasury != nil {
		r.treasury.RecordFine(amount)
	}
}
