package engine

import "fmt"

// RegionShare is one district's requested slice of the quarterly budget,
// expressed as weights relative to the whole budget.
type RegionShare struct {
	Edu float64 `json:"edu"`
	Enf float64 `json:"enf"`
	Inc float64 `json:"inc"`
}

// Allocation is a controller's fund split for one quarter: one share triple
// per district, in district order.
type Allocation struct {
	Shares []RegionShare `json:"shares"`
}

// Total returns the sum of all weights.
func (a Allocation) Total() float64 {
	t := 0.0
	for _, s := range a.Shares {
		t += s.Edu + s.Enf + s.Inc
	}
	return t
}

// Validate rejects negative weights and district-count mismatches.
func (a Allocation) Validate(nRegions int) error {
	if len(a.Shares) != nRegions {
		return fmt.Errorf("allocation: got %d district shares, want %d", len(a.Shares), nRegions)
	}
	for i, s := range a.Shares {
		if s.Edu < 0 || s.Enf < 0 || s.Inc < 0 {
			return fmt.Errorf("allocation: district %d has a negative weight", i)
		}
	}
	return nil
}

// normalized scales the weights down so they sum to at most 1. Overspending
// requests shrink proportionally; requests within budget apply as-is, and an
// all-zero request stays zero.
func (a Allocation) normalized() Allocation {
	total := a.Total()
	if total <= 1 {
		return a
	}
	out := Allocation{Shares: make([]RegionShare, len(a.Shares))}
	for i, s := range a.Shares {
		out.Shares[i] = RegionShare{
			Edu: s.Edu / total,
			Enf: s.Enf / total,
			Inc: s.Inc / total,
		}
	}
	return out
}

// Split is a fixed education/enforcement/incentive proportion used for the
// built-in status quo policy.
type Split struct {
	Edu float64 `yaml:"edu" json:"edu"`
	Enf float64 `yaml:"enf" json:"enf"`
	Inc float64 `yaml:"inc" json:"inc"`
}

// DefaultSplit is the status quo: education and enforcement weighted equally,
// a smaller incentive program.
func DefaultSplit() Split {
	return Split{Edu: 0.4, Enf: 0.4, Inc: 0.2}
}

// evenAllocation spreads a split evenly across n districts.
func evenAllocation(split Split, n int) Allocation {
	a := Allocation{Shares: make([]RegionShare, n)}
	if n == 0 {
		return a
	}
	f := float64(n)
	for i := range a.Shares {
		a.Shares[i] = RegionShare{Edu: split.Edu / f, Enf: split.Enf / f, Inc: split.Inc / f}
	}
	return a
}
