package engine

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/mlucero/segsim/internal/agents"
	"github.com/mlucero/segsim/internal/entropy"
	"github.com/mlucero/segsim/internal/grid"
	"github.com/mlucero/segsim/internal/policy"
)

// Ledger is the simulation aggregate: districts, grid, the municipal budget,
// and the political standing of the program. It advances one day per Step and
// re-budgets at quarter boundaries from whatever allocation a controller has
// posted, falling back to the status quo split.
type Ledger struct {
	RunID   uuid.UUID
	Grid    *grid.Grid
	Regions []*policy.Region

	Steps         uint64
	QuarterLength uint64
	MaxQuarters   int

	// Money, in pesos. CashBalance starts at the full program budget and
	// drains as quarterly allocations amortize day by day; fine revenue
	// flows back in.
	QuarterlyBudget float64
	TotalBudget     float64
	CashBalance     float64
	FinesCollected  float64
	IncentivesPaid  float64
	EduSpend        float64
	EnfSpend        float64
	IncSpend        float64

	// PoliticalCapital erodes with visible enforcement pressure and
	// recovers slowly without it.
	PoliticalCapital float64
	CapitalAlpha     float64
	CapitalBeta      float64

	DefaultPolicy  Split
	LastAllocation Allocation

	Reports []QuarterReport

	// OnQuarterEnd receives the finished quarter's district reports.
	OnQuarterEnd func(reports []QuarterReport)

	params *agents.BehaviorParams
	rng    *rand.Rand

	recentFines    float64
	quarterExpense float64

	// pending is the only field a controller goroutine writes.
	mu      sync.Mutex
	pending *Allocation
}

// NewLedger wires a built world into a runnable ledger. The full program
// budget is quarterly budget times horizon; political capital starts at 1.
func NewLedger(g *grid.Grid, regions []*policy.Region, params *agents.BehaviorParams, seed int64, quarterLength uint64, maxQuarters int, quarterlyBudget float64, split Split, alpha, beta float64) *Ledger {
	total := quarterlyBudget * float64(maxQuarters)
	return &Ledger{
		RunID:            uuid.New(),
		Grid:             g,
		Regions:          regions,
		QuarterLength:    quarterLength,
		MaxQuarters:      maxQuarters,
		QuarterlyBudget:  quarterlyBudget,
		TotalBudget:      total,
		CashBalance:      total,
		PoliticalCapital: 1.0,
		CapitalAlpha:     alpha,
		CapitalBeta:      beta,
		DefaultPolicy:    split,
		params:           params,
		rng:              entropy.Derive(seed, entropy.StreamLedger),
	}
}

// RecordFine implements policy.Treasury. Revenue accrues cumulatively and in
// a recent bucket folded back into the balance at the end of the step.
func (l *Ledger) RecordFine(amount float64) {
	l.FinesCollected += amount
	l.recentFines += amount
}

// RecordIncentive implements policy.Treasury.
func (l *Ledger) RecordIncentive(amount float64) {
	l.IncentivesPaid += amount
}

// SubmitAllocation stages a controller's fund split for the next quarter
// boundary. A later submission in the same quarter replaces an earlier one.
func (l *Ledger) SubmitAllocation(a Allocation) error {
	if err := a.Validate(len(l.Regions)); err != nil {
		return err
	}
	l.mu.Lock()
	l.pending = &a
	l.mu.Unlock()
	return nil
}

func (l *Ledger) takePending() *Allocation {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.pending
	l.pending = nil
	return a
}

// Step advances the world one simulated day: re-budget on quarter
// boundaries, activate every agent in random order, then settle capital and
// cash. A quarter closes on its final day, so the horizon quarter's reports
// are emitted even when the caller stops as soon as Done turns true.
func (l *Ledger) Step() {
	if l.Steps%l.QuarterLength == 0 {
		l.beginQuarter()
	}

	type activation struct {
		stepper agents.Stepper
		region  *policy.Region
		unit    bool
	}
	var acts []activation
	for _, r := range l.Regions {
		for _, h := range r.Households {
			acts = append(acts, activation{stepper: h, region: r})
		}
		for _, u := range r.Units {
			acts = append(acts, activation{stepper: u, region: r, unit: true})
		}
	}
	l.rng.Shuffle(len(acts), func(i, j int) { acts[i], acts[j] = acts[j], acts[i] })

	for _, a := range acts {
		env := &agents.Env{
			Grid:   l.Grid,
			Rand:   l.rng,
			Region: a.region,
			Fines:  a.region,
		}
		if a.unit {
			env.Violators = a.region.Violators()
		}
		a.stepper.Step(env)
	}

	avgEnf := l.avgEnforcement()
	l.PoliticalCapital = clamp01(l.PoliticalCapital - l.CapitalAlpha*avgEnf + l.CapitalBeta*(1-avgEnf))

	l.CashBalance -= l.quarterExpense
	l.CashBalance += l.recentFines
	l.recentFines = 0

	l.Steps++
	if l.Steps%l.QuarterLength == 0 {
		l.closeQuarter()
	}
}

// beginQuarter applies the staged allocation (or the status quo split) and
// re-provisions every district for the new quarter.
func (l *Ledger) beginQuarter() {
	alloc := l.takePending()
	source := "controller"
	if alloc == nil {
		a := evenAllocation(l.DefaultPolicy, len(l.Regions))
		alloc = &a
		source = "default"
	}
	norm := alloc.normalized()
	l.LastAllocation = norm

	spent := 0.0
	for i, r := range l.Regions {
		s := norm.Shares[i]
		edu := s.Edu * l.QuarterlyBudget
		enf := s.Enf * l.QuarterlyBudget
		inc := s.Inc * l.QuarterlyBudget

		r.UpdatePolicy(edu, enf, inc)
		hired, retired, err := r.AdjustUnits(l.Grid, l.params)
		if err != nil {
			slog.Error("unit adjustment failed", "region", r.Name, "error", err)
		}
		r.ResetRedemptions()

		l.EduSpend += edu
		l.EnfSpend += enf
		l.IncSpend += inc
		spent += edu + enf + inc

		if hired > 0 || retired > 0 {
			slog.Info("enforcement roster changed",
				"region", r.Name, "hired", hired, "retired", retired, "units", len(r.Units))
		}
	}
	l.quarterExpense = spent / float64(l.QuarterLength)

	slog.Info("quarter opened",
		"quarter", l.Quarter()+1,
		"allocation", source,
		"spend", spent,
		"capital", l.PoliticalCapital)
}

// closeQuarter snapshots the quarter that just ended into district reports.
func (l *Ledger) closeQuarter() {
	q := int(l.Steps/l.QuarterLength) - 1
	reports := make([]QuarterReport, 0, len(l.Regions))
	for i, r := range l.Regions {
		var share RegionShare
		if i < len(l.LastAllocation.Shares) {
			share = l.LastAllocation.Shares[i]
		}
		reports = append(reports, QuarterReport{
			RunID:          l.RunID,
			Quarter:        q,
			RegionID:       r.ID,
			RegionName:     r.Name,
			Share:          share,
			ComplianceRate: r.ComplianceRate(),
			Units:          len(r.Units),
			Fines:          r.QuarterFines,
			Incentives:     r.QuarterIncentives,
		})
	}
	l.Reports = append(l.Reports, reports...)
	if l.OnQuarterEnd != nil {
		l.OnQuarterEnd(reports)
	}

	slog.Info("quarter closed",
		"quarter", q+1,
		"avg_compliance", l.avgCompliance(),
		"balance", l.CashBalance,
		"fines", l.FinesCollected,
		"capital", l.PoliticalCapital)
}

// Quarter returns the zero-based index of the current quarter.
func (l *Ledger) Quarter() int {
	return int(l.Steps / l.QuarterLength)
}

// Done reports whether the episode horizon has been reached.
func (l *Ledger) Done() bool {
	return l.Steps >= l.QuarterLength*uint64(l.MaxQuarters)
}

func (l *Ledger) avgCompliance() float64 {
	if len(l.Regions) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range l.Regions {
		sum += r.ComplianceRate()
	}
	return sum / float64(len(l.Regions))
}

func (l *Ledger) avgEnforcement() float64 {
	if len(l.Regions) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range l.Regions {
		sum += r.EnforcementIntensity()
	}
	return sum / float64(len(l.Regions))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ policy.Treasury = (*Ledger)(nil)

// timeIndex is elapsed fraction of the episode horizon, clamped to [0,1].
func (l *Ledger) timeIndex() float64 {
	horizon := float64(l.QuarterLength * uint64(l.MaxQuarters))
	if horizon == 0 {
		return 1
	}
	return math.Min(1, float64(l.Steps)/horizon)
}
