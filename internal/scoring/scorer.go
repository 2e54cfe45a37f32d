package scoring

import (
	"math"

	"clnpd/internal/analysis"
)

// Verdict strings and classes.
const (
	VerdictBiological    = "BIOLOGICAL CONTROLLER DETECTED"
	VerdictUncertain     = "UNCERTAIN"
	VerdictNonBiological = "NON-BIOLOGICAL CONTROLLER SUSPECTED"

	ClassBiological    = "biological"
	ClassUncertain     = "uncertain"
	ClassNonBiological = "nonbiological"
)

// SubScore is one metric's contribution.
type SubScore struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
	Valid  bool    `json:"valid"`
}

// Outcome is the scored session.
type Outcome struct {
	Overall      float64             `json:"overall"`
	Verdict      string              `json:"verdict"`
	VerdictClass string              `json:"verdictClass"`
	SubScores    map[string]SubScore `json:"subScores"`
	ValidMetrics int                 `json:"validMetrics"`
}

// Score folds the pipeline results into a weighted aggregate and a
// verdict under the given policy.
func Score(p *Policy, res analysis.Results) Outcome {
	subs := map[string]SubScore{
		"transferFn":      {Weight: p.WeightTransferFn},
		"tremor":          {Weight: p.WeightTremor},
		"oneOverF":        {Weight: p.WeightOneOverF},
		"signalDepNoise":  {Weight: p.WeightSignalDepNoise},
		"crossAxis":       {Weight: p.WeightCrossAxis},
		"pulseResponse":   {Weight: p.WeightPulseResponse},
		"cogInterference": {Weight: p.WeightCogInterference},
		"minJerk":         {Weight: p.WeightMinJerk},
	}

	if res.TransferFn.Valid {
		subs["transferFn"] = SubScore{Valid: true, Weight: p.WeightTransferFn,
			Score: p.scoreTransferFn(res.TransferFn)}
	}
	if res.CursorTremor.Valid || res.AccelTremor.Valid {
		subs["tremor"] = SubScore{Valid: true, Weight: p.WeightTremor,
			Score: math.Max(p.scoreTremor(res.CursorTremor), p.scoreTremor(res.AccelTremor))}
	}
	if res.OneOverF.Valid {
		subs["oneOverF"] = SubScore{Valid: true, Weight: p.WeightOneOverF,
			Score: p.scoreOneOverF(res.OneOverF)}
	}
	if res.SDNoise.Valid {
		subs["signalDepNoise"] = SubScore{Valid: true, Weight: p.WeightSignalDepNoise,
			Score: clamp01(res.SDNoise.Correlation / p.SDNoiseFullCorrelation)}
	}
	if res.CrossAxis.Valid {
		subs["crossAxis"] = SubScore{Valid: true, Weight: p.WeightCrossAxis,
			Score: p.scoreCrossAxis(res.CrossAxis, res.InputMethodTouch())}
	}
	if res.Pulse.Valid {
		subs["pulseResponse"] = SubScore{Valid: true, Weight: p.WeightPulseResponse,
			Score: p.scorePulse(res.Pulse)}
	}
	if res.Cog.Valid {
		subs["cogInterference"] = SubScore{Valid: true, Weight: p.WeightCogInterference,
			Score: p.scoreCog(res.Cog)}
	}
	if res.MinJerk.Valid {
		subs["minJerk"] = SubScore{Valid: true, Weight: p.WeightMinJerk,
			Score: clamp01(res.MinJerk.MeanR2 / p.MinJerkFullR2)}
	}

	var weighted, totalWeight float64
	valid := 0
	for _, s := range subs {
		if !s.Valid {
			continue
		}
		weighted += s.Weight * s.Score
		totalWeight += s.Weight
		valid++
	}
	overall := 0.0
	if totalWeight > 0 {
		overall = weighted / totalWeight
	}

	verdict, class := p.verdict(overall)
	return Outcome{
		Overall:      overall,
		Verdict:      verdict,
		VerdictClass: class,
		SubScores:    subs,
		ValidMetrics: valid,
	}
}

func (p *Policy) verdict(overall float64) (string, string) {
	switch {
	case overall >= p.BiologicalThreshold:
		return VerdictBiological, ClassBiological
	case overall >= p.UncertainThreshold:
		return VerdictUncertain, ClassUncertain
	default:
		return VerdictNonBiological, ClassNonBiological
	}
}

// EmbedVerified reports whether an embed session's aggregate clears the
// embed verification threshold.
func (p *Policy) EmbedVerified(overall float64) bool {
	return overall >= p.EmbedVerifyThreshold
}

func (p *Policy) scoreTransferFn(r analysis.TransferFnResult) float64 {
	score := 0.0
	if r.HasRolloff {
		score += p.TransferRolloffCredit
	}
	if r.MeanDelayMs > p.TransferDelayFloorMs {
		score += p.TransferDelayCredit
	}
	if r.DelayPlausible {
		score += p.TransferDelayCredit
	}
	return clamp01(score)
}

func (p *Policy) scoreTremor(r analysis.TremorResult) float64 {
	if !r.Valid {
		return 0
	}
	score := math.Min(1, r.Ratio/p.TremorFullRatio)
	if r.PeakFreq >= p.TremorPeakBandLo && r.PeakFreq <= p.TremorPeakBandHi {
		score += p.TremorPeakBonus
	}
	return clamp01(score)
}

// scoreOneOverF is a smooth indicator that the slope lies within the
// biological window, the product of two sigmoids at the window edges.
func (p *Policy) scoreOneOverF(r analysis.OneOverFResult) float64 {
	lo := sigmoid(p.OneOverFSteep * (r.Slope - p.OneOverFSlopeLo))
	hi := sigmoid(p.OneOverFSteep * (p.OneOverFSlopeHi - r.Slope))
	return lo * hi
}

func (p *Policy) scoreCrossAxis(r analysis.CrossAxisResult, touch bool) float64 {
	idealMax, denom := p.CrossAxisIdealMax, p.CrossAxisDenom
	if touch {
		idealMax, denom = p.CrossAxisTouchIdealMax, p.CrossAxisTouchDenom
	}
	score := math.Min(1, r.Mean/denom)
	if r.Mean >= idealMax {
		score *= 0.5
	}
	return clamp01(score)
}

func (p *Policy) scorePulse(r analysis.PulseResult) float64 {
	mean := rangeSigmoid(r.LatencyMeanMs, p.PulseLatencyMeanLo, p.PulseLatencyMeanHi)
	sd := rangeSigmoid(r.LatencySDMs, p.PulseLatencySDLo, p.PulseLatencySDHi)
	return clamp01(p.PulseMeanWeight*mean + p.PulseSDWeight*sd)
}

func (p *Policy) scoreCog(r analysis.CogResult) float64 {
	effect := math.Max(r.TargetIncrease, r.NonTargetIncrease)
	score := clamp01(effect / p.CogFullEffect)
	if r.AttentionEffect > p.CogAttentionFloor {
		score += p.CogAttentionBonus
	}
	if r.Answer != nil {
		score += p.CogAnswerBonus
		if abs(*r.Answer-r.TrueCount) <= 1 {
			score += p.CogAnswerCloseBonus
		}
	}
	return clamp01(score)
}

// rangeSigmoid is ~1 inside (lo, hi) and falls off smoothly outside;
// steepness scales with the window width.
func rangeSigmoid(v, lo, hi float64) float64 {
	k := 12 / (hi - lo)
	return sigmoid(k*(v-lo)) * sigmoid(k*(hi-v))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
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

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
