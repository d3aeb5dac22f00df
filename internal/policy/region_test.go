package policy

import (
	"testing"

	"github.com/mlucero/segsim/internal/agents"
	"github.com/mlucero/segsim/internal/grid"
)

type stubTreasury struct {
	fines      float64
	incentives float64
}

func (s *stubTreasury) RecordFine(a float64)      { s.fines += a }
func (s *stubTreasury) RecordIncentive(a float64) { s.incentives += a }

func testRegion(t *testing.T, treasury Treasury) *Region {
	t.Helper()
	r, err := NewRegion(1, "Poblacion", grid.Cell{X: 10, Y: 10}, 500, DefaultCosts(), treasury, agents.ModePursuit)
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	return r
}

func addHouseholds(t *testing.T, r *Region, n int, compliant int) {
	t.Helper()
	params := agents.DefaultBehaviorParams()
	for i := 0; i < n; i++ {
		h, err := agents.NewHousehold(agents.HouseholdID(i+1), r.ID, agents.IncomeMid, &params)
		if err != nil {
			t.Fatalf("new household: %v", err)
		}
		h.Compliant = i < compliant
		r.Households = append(r.Households, h)
	}
}

func TestNewRegionValidation(t *testing.T) {
	if _, err := NewRegion(1, "x", grid.Cell{}, -1, DefaultCosts(), nil, agents.ModePursuit); err == nil {
		t.Fatal("negative fine accepted")
	}
	bad := DefaultCosts()
	bad.UnitCostPerQuarter = 0
	if _, err := NewRegion(1, "x", grid.Cell{}, 500, bad, nil, agents.ModePursuit); err == nil {
		t.Fatal("zero unit cost accepted")
	}
}

func TestUpdatePolicyIntensities(t *testing.T) {
	r := testRegion(t, nil)
	addHouseholds(t, r, 100, 0)

	// 100 households * 650/head = 65000 saturates education.
	r.UpdatePolicy(65_000, 375_000, 10_000)
	if r.EducationIntensity() != 1.0 {
		t.Fatalf("edu intensity %f, want 1.0", r.EducationIntensity())
	}
	if r.EnforcementIntensity() != 1.0 {
		t.Fatalf("enf intensity %f, want 1.0", r.EnforcementIntensity())
	}
	if r.IncentiveValue() != 100 {
		t.Fatalf("per-capita incentive %f, want 100", r.IncentiveValue())
	}
	if r.CashOnHand != 10_000 {
		t.Fatalf("cash on hand %f, want 10000", r.CashOnHand)
	}

	// Overfunding clamps at 1, never beyond.
	r.UpdatePolicy(1_000_000, 1_000_000, 0)
	if r.EducationIntensity() != 1.0 || r.EnforcementIntensity() != 1.0 {
		t.Fatal("intensities exceeded saturation")
	}

	// Half funding scales linearly.
	r.UpdatePolicy(32_500, 187_500, 0)
	if r.EducationIntensity() != 0.5 {
		t.Fatalf("edu intensity %f, want 0.5", r.EducationIntensity())
	}
	if r.EnforcementIntensity() != 0.5 {
		t.Fatalf("enf intensity %f, want 0.5", r.EnforcementIntensity())
	}
}

func TestUpdatePolicyEmptyRegion(t *testing.T) {
	r := testRegion(t, nil)
	r.UpdatePolicy(10_000, 10_000, 10_000)

	if r.EducationIntensity() != 0 {
		t.Fatalf("edu intensity %f for empty region, want 0", r.EducationIntensity())
	}
	if r.IncentiveValue() != 0 {
		t.Fatalf("incentive %f for empty region, want 0", r.IncentiveValue())
	}
	if r.ComplianceRate() != 0 {
		t.Fatalf("compliance %f for empty region, want 0", r.ComplianceRate())
	}
}

func TestAdjustUnitsMatchesFunding(t *testing.T) {
	r := testRegion(t, nil)
	g := grid.New(30, 30)
	params := agents.DefaultBehaviorParams()

	// 187500 / 75000 = 2.5 units of funding buys exactly 2.
	r.UpdatePolicy(0, 187_500, 0)
	hired, retired, err := r.AdjustUnits(g, &params)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if hired != 2 || retired != 0 || len(r.Units) != 2 {
		t.Fatalf("hired=%d retired=%d units=%d, want 2/0/2", hired, retired, len(r.Units))
	}
	for _, u := range r.Units {
		if u.Position != r.Center {
			t.Fatalf("new unit at %v, want center %v", u.Position, r.Center)
		}
	}

	veteran := r.Units[0]

	// More money hires more.
	r.UpdatePolicy(0, 300_000, 0)
	hired, retired, _ = r.AdjustUnits(g, &params)
	if hired != 2 || retired != 0 || len(r.Units) != 4 {
		t.Fatalf("hired=%d retired=%d units=%d, want 2/0/4", hired, retired, len(r.Units))
	}

	// A cut retires newest first, keeping the veteran.
	r.UpdatePolicy(0, 75_000, 0)
	hired, retired, _ = r.AdjustUnits(g, &params)
	if hired != 0 || retired != 3 || len(r.Units) != 1 {
		t.Fatalf("hired=%d retired=%d units=%d, want 0/3/1", hired, retired, len(r.Units))
	}
	if r.Units[0].ID != veteran.ID {
		t.Fatal("retirement did not keep the oldest unit")
	}

	// Defunding clears the roster and the grid.
	r.UpdatePolicy(0, 0, 0)
	r.AdjustUnits(g, &params)
	if len(r.Units) != 0 || g.Count() != 0 {
		t.Fatalf("units=%d grid=%d after defunding, want 0/0", len(r.Units), g.Count())
	}
}

func TestGiveReward(t *testing.T) {
	treasury := &stubTreasury{}
	r := testRegion(t, treasury)
	addHouseholds(t, r, 10, 0)
	r.UpdatePolicy(0, 0, 100)

	if !r.GiveReward(60) {
		t.Fatal("claim within pool refused")
	}
	if r.CashOnHand != 40 {
		t.Fatalf("cash %f, want 40", r.CashOnHand)
	}

	// Overdraw fails and leaves the pool untouched.
	if r.GiveReward(60) {
		t.Fatal("overdraw succeeded")
	}
	if r.CashOnHand != 40 {
		t.Fatalf("cash %f changed by failed claim", r.CashOnHand)
	}

	if r.GiveReward(0) {
		t.Fatal("zero claim succeeded")
	}
	if r.GiveReward(-5) {
		t.Fatal("negative claim succeeded")
	}

	if treasury.incentives != 60 {
		t.Fatalf("treasury recorded %f, want 60", treasury.incentives)
	}
	if r.QuarterIncentives != 60 {
		t.Fatalf("quarter incentives %f, want 60", r.QuarterIncentives)
	}
}

func TestRecordFineForwards(t *testing.T) {
	treasury := &stubTreasury{}
	r := testRegion(t, treasury)

	r.RecordFine(500)
	r.RecordFine(500)

	if r.QuarterFines != 1000 {
		t.Fatalf("quarter fines %f, want 1000", r.QuarterFines)
	}
	if treasury.fines != 1000 {
		t.Fatalf("treasury fines %f, want 1000", treasury.fines)
	}

	// New quarter resets the district counter, not the municipal total.
	r.UpdatePolicy(0, 0, 0)
	if r.QuarterFines != 0 {
		t.Fatalf("quarter fines %f after reset, want 0", r.QuarterFines)
	}
	if treasury.fines != 1000 {
		t.Fatalf("treasury fines %f, want 1000", treasury.fines)
	}
}

func TestComplianceRatePure(t *testing.T) {
	r := testRegion(t, nil)
	addHouseholds(t, r, 10, 4)

	first := r.ComplianceRate()
	if first != 0.4 {
		t.Fatalf("compliance %f, want 0.4", first)
	}
	for i := 0; i < 5; i++ {
		if r.ComplianceRate() != first {
			t.Fatal("repeated reads changed the rate")
		}
	}
}

func TestViolatorsSortedByID(t *testing.T) {
	r := testRegion(t, nil)
	addHouseholds(t, r, 15, 5)

	v := r.Violators()
	if len(v) != 10 {
		t.Fatalf("%d violators, want 10", len(v))
	}
	for i := 1; i < len(v); i++ {
		if v[i-1].ID >= v[i].ID {
			t.Fatalf("violators out of order at %d", i)
		}
	}
}

func TestResetRedemptions(t *testing.T) {
	r := testRegion(t, nil)
	addHouseholds(t, r, 5, 5)
	for _, h := range r.Households {
		h.Redeemed = true
	}
	r.ResetRedemptions()
	for _, h := range r.Households {
		if h.Redeemed {
			t.Fatal("redemption flag survived reset")
		}
	}
}
