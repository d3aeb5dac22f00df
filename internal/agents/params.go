package agents

import "fmt"

// BehaviorParams holds every tunable of the household decision model and the
// enforcement encounter. One validated instance is shared by all households.
type BehaviorParams struct {
	// Attitude dynamics, per step.
	AttitudeDecay      float64 `yaml:"attitude_decay" json:"attitude_decay"`
	EducationBoost     float64 `yaml:"education_boost" json:"education_boost"`
	ReactanceThreshold float64 `yaml:"reactance_threshold" json:"reactance_threshold"`
	ReactancePenalty   float64 `yaml:"reactance_penalty" json:"reactance_penalty"`

	// Social norm sampling.
	NormRadius    int     `yaml:"norm_radius" json:"norm_radius"`
	NormSmoothing float64 `yaml:"norm_smoothing" json:"norm_smoothing"`

	// Utility weights (TPB) and costs.
	WeightAttitude float64 `yaml:"weight_attitude" json:"weight_attitude"`
	WeightNorm     float64 `yaml:"weight_norm" json:"weight_norm"`
	WeightControl  float64 `yaml:"weight_control" json:"weight_control"`
	EffortCost     float64 `yaml:"effort_cost" json:"effort_cost"`
	MonetaryCost   float64 `yaml:"monetary_cost" json:"monetary_cost"`
	FineScale      float64 `yaml:"fine_scale" json:"fine_scale"`
	NoiseSigma     float64 `yaml:"noise_sigma" json:"noise_sigma"`

	// Income-tier cost sensitivity multipliers.
	GammaLow  float64 `yaml:"gamma_low" json:"gamma_low"`
	GammaMid  float64 `yaml:"gamma_mid" json:"gamma_mid"`
	GammaHigh float64 `yaml:"gamma_high" json:"gamma_high"`

	// Decision threshold and incentive redemption.
	ComplianceThreshold float64 `yaml:"compliance_threshold" json:"compliance_threshold"`
	RedeemChance        float64 `yaml:"redeem_chance" json:"redeem_chance"`

	// Fine impact on the cited household.
	FineUtilityPenalty  float64 `yaml:"fine_utility_penalty" json:"fine_utility_penalty"`
	FineAttitudePenalty float64 `yaml:"fine_attitude_penalty" json:"fine_attitude_penalty"`

	// Enforcement unit geometry.
	PatrolRange int `yaml:"patrol_range" json:"patrol_range"`
	CatchRadius int `yaml:"catch_radius" json:"catch_radius"`
}

// DefaultBehaviorParams returns the calibrated baseline parameter set.
func DefaultBehaviorParams() BehaviorParams {
	return BehaviorParams{
		AttitudeDecay:       0.005,
		EducationBoost:      0.02,
		ReactanceThreshold:  0.8,
		ReactancePenalty:    0.002,
		NormRadius:          2,
		NormSmoothing:       0.3,
		WeightAttitude:      0.4,
		WeightNorm:          0.3,
		WeightControl:       0.3,
		EffortCost:          0.1,
		MonetaryCost:        0.05,
		FineScale:           1000,
		NoiseSigma:          0.05,
		GammaLow:            1.5,
		GammaMid:            1.2,
		GammaHigh:           1.0,
		ComplianceThreshold: 0.5,
		RedeemChance:        0.04,
		FineUtilityPenalty:  0.5,
		FineAttitudePenalty: 0.05,
		PatrolRange:         5,
		CatchRadius:         1,
	}
}

// Validate fails fast on out-of-range parameters so a bad scenario file dies
// at startup instead of drifting mid-run.
func (p *BehaviorParams) Validate() error {
	unit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("behavior params: %s %.4f outside [0,1]", name, v)
		}
		return nil
	}
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"attitude_decay", p.AttitudeDecay},
		{"education_boost", p.EducationBoost},
		{"reactance_threshold", p.ReactanceThreshold},
		{"reactance_penalty", p.ReactancePenalty},
		{"weight_attitude", p.WeightAttitude},
		{"weight_norm", p.WeightNorm},
		{"weight_control", p.WeightControl},
		{"compliance_threshold", p.ComplianceThreshold},
		{"redeem_chance", p.RedeemChance},
	} {
		if err := unit(c.name, c.v); err != nil {
			return err
		}
	}
	if p.NormSmoothing <= 0 || p.NormSmoothing > 1 {
		return fmt.Errorf("behavior params: norm_smoothing %.4f outside (0,1]", p.NormSmoothing)
	}
	if p.NormRadius < 1 {
		return fmt.Errorf("behavior params: norm_radius %d < 1", p.NormRadius)
	}
	if p.FineScale <= 0 {
		return fmt.Errorf("behavior params: fine_scale %.2f must be positive", p.FineScale)
	}
	if p.NoiseSigma < 0 {
		return fmt.Errorf("behavior params: noise_sigma %.4f negative", p.NoiseSigma)
	}
	if p.GammaLow <= 0 || p.GammaMid <= 0 || p.GammaHigh <= 0 {
		return fmt.Errorf("behavior params: gamma multipliers must be positive")
	}
	if p.PatrolRange < 1 || p.CatchRadius < 0 {
		return fmt.Errorf("behavior params: patrol_range %d / catch_radius %d invalid",
			p.PatrolRange, p.CatchRadius)
	}
	return nil
}

// gamma returns the cost sensitivity for an income tier.
func (p *BehaviorParams) gamma(tier IncomeTier) float64 {
	switch tier {
	case IncomeLow:
		return p.GammaLow
	case IncomeMid:
		return p.GammaMid
	default:
		return p.GammaHigh
	}
}
