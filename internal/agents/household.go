package agents

// Theory of Planned Behavior step: refresh attitude from policy exposure,
// sample the neighborhood norm, recompute utility against net cost, then
// decide compliance and maybe claim the incentive.

// Step runs one decision cycle for the household.
func (h *Household) Step(env *Env) {
	h.updateAttitude(env.Region)
	h.updateSocialNorm(env.Grid)
	h.Utility = h.computeUtility(env)
	h.Compliant = h.Utility > h.params.ComplianceThreshold
	h.maybeRedeem(env)
}

// updateAttitude applies baseline decay, education uptake, and reactance to
// heavy-handed enforcement.
func (h *Household) updateAttitude(region RegionView) {
	att := h.Attitude
	att -= h.params.AttitudeDecay
	att += region.EducationIntensity() * h.params.EducationBoost
	if region.EnforcementIntensity() > h.params.ReactanceThreshold {
		att -= h.params.ReactancePenalty
	}
	h.Attitude = clamp01(att)
}

// updateSocialNorm samples same-region households in the Moore neighborhood
// and blends the observed compliance fraction into the running norm. The
// observed fraction is shaped asymmetrically: visible majorities amplify,
// visible minorities are cushioned by a base level of decency.
func (h *Household) updateSocialNorm(space Space) {
	var peers, compliant int
	for _, occ := range space.Neighbors(h.Position, h.params.NormRadius) {
		n, ok := occ.(*Household)
		if !ok || n.ID == h.ID || n.RegionID != h.RegionID {
			continue
		}
		peers++
		if n.Compliant {
			compliant++
		}
	}

	shaped := 0.5
	if peers > 0 {
		raw := float64(compliant) / float64(peers)
		if raw > 0.5 {
			shaped = min(1.0, raw*1.2)
		} else {
			shaped = raw*0.8 + 0.2
		}
	}

	lambda := h.params.NormSmoothing
	h.SocialNorm = clamp01((1-lambda)*h.SocialNorm + lambda*shaped)
}

// computeUtility combines the TPB terms with the net cost of complying.
// Fines are discounted by how intensely the region actually enforces; the
// incentive only counts while the household is compliant and hasn't claimed
// this quarter.
func (h *Household) computeUtility(env *Env) float64 {
	p := h.params

	fineTerm := env.Region.FineAmount() * env.Region.EnforcementIntensity() / p.FineScale
	incentiveTerm := 0.0
	if h.Compliant && !h.Redeemed {
		incentiveTerm = env.Region.IncentiveValue() / p.FineScale
	}

	cNet := (p.EffortCost + p.MonetaryCost - incentiveTerm - fineTerm) * p.gamma(h.Income)

	u := p.WeightAttitude*h.Attitude +
		p.WeightNorm*h.SocialNorm +
		p.WeightControl*h.Control -
		cNet
	return u + env.Rand.NormFloat64()*p.NoiseSigma
}

// maybeRedeem rolls for an incentive claim. A successful roll against an
// empty cash pool still burns the roll but leaves the household unredeemed.
func (h *Household) maybeRedeem(env *Env) {
	if !h.Compliant || h.Redeemed {
		return
	}
	if env.Rand.Float64() >= h.params.RedeemChance {
		return
	}
	if env.Region.GiveReward(env.Region.IncentiveValue()) {
		h.Redeemed = true
	}
}

// GetFined applies a citation: a sharp utility drop, a smaller dent to
// attitude, and the revenue reported to the ledger.
func (h *Household) GetFined(sink FineSink, amount float64) {
	h.Utility -= h.params.FineUtilityPenalty
	h.Attitude = clamp01(h.Attitude - h.params.FineAttitudePenalty)
	h.Compliant = h.Utility > h.params.ComplianceThreshold
	sink.RecordFine(amount)
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
