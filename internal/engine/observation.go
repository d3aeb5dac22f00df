package engine

// Controller-facing surface: a compact state vector and a scalar reward,
// both derived from current ledger state without mutating it.

// Observation is one step's snapshot in controller terms.
type Observation struct {
	Step             uint64    `json:"step"`
	Quarter          int       `json:"quarter"`
	Compliance       []float64 `json:"compliance"`
	RemainingBudget  float64   `json:"remaining_budget"`
	TimeIndex        float64   `json:"time_index"`
	PoliticalCapital float64   `json:"political_capital"`
	Reward           float64   `json:"reward"`
	Done             bool      `json:"done"`
}

func (l *Ledger) observe() Observation {
	compliance := make([]float64, len(l.Regions))
	for i, r := range l.Regions {
		compliance[i] = r.ComplianceRate()
	}
	return Observation{
		Step:             l.Steps,
		Quarter:          l.Quarter(),
		Compliance:       compliance,
		RemainingBudget:  clamp01(l.CashBalance / l.TotalBudget),
		TimeIndex:        l.timeIndex(),
		PoliticalCapital: l.PoliticalCapital,
		Reward:           l.CalculateReward(),
		Done:             l.Done(),
	}
}

// Observe returns the current snapshot.
func (l *Ledger) Observe() Observation {
	return l.observe()
}

// GetState flattens the snapshot into the fixed-length vector a learned
// controller consumes: one compliance rate per district, then remaining
// budget, time index, and political capital. Every element is in [0,1].
func (l *Ledger) GetState() []float64 {
	obs := l.observe()
	state := make([]float64, 0, len(obs.Compliance)+3)
	for _, c := range obs.Compliance {
		state = append(state, clamp01(c))
	}
	state = append(state, obs.RemainingBudget, obs.TimeIndex, clamp01(obs.PoliticalCapital))
	return state
}

// CalculateReward scores the current state: compliance is worth having,
// drifting off the linear spend-down path costs, and heavy enforcement that
// still fails to produce compliance costs a flat backlash penalty. Calling
// it never changes state.
func (l *Ledger) CalculateReward() float64 {
	avgC := l.avgCompliance()

	ideal := 1 - l.timeIndex()
	actual := clamp01(l.CashBalance / l.TotalBudget)
	diff := ideal - actual
	if diff < 0 {
		diff = -diff
	}

	reward := 1.0*avgC - 0.5*diff
	if l.avgEnforcement() > 0.7 && avgC < 0.3 {
		reward -= 0.5
	}
	return reward
}
