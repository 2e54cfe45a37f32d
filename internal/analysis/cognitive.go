package analysis

import (
	"math"

	"clnpd/internal/dsp"
)

// Flash comparison windows.
const (
	cogPreLoMs  = -500.0
	cogPostLoMs = 200.0
	cogPostHiMs = 700.0
)

// CogInterference compares tracking error before and after each flash.
// Attending to target-color flashes steals motor resources from a
// biological controller, so error rises more after target flashes than
// after distractors; automation shows no such asymmetry.
func CogInterference(samples []Sample, flashes []FlashEvent, trueCount int, answer *int) CogResult {
	if len(samples) == 0 || len(flashes) == 0 {
		return CogResult{TrueCount: trueCount, Answer: answer}
	}

	var targetInc, otherInc []float64
	for _, f := range flashes {
		pre := meanErrIn(samples, f.T+cogPreLoMs, f.T)
		post := meanErrIn(samples, f.T+cogPostLoMs, f.T+cogPostHiMs)
		if pre <= 1e-9 || math.IsNaN(post) {
			continue
		}
		inc := (post - pre) / pre
		if f.IsTarget {
			targetInc = append(targetInc, inc)
		} else {
			otherInc = append(otherInc, inc)
		}
	}

	if len(targetInc) == 0 || len(otherInc) == 0 {
		return CogResult{TrueCount: trueCount, Answer: answer}
	}

	tm := dsp.Mean(targetInc)
	om := dsp.Mean(otherInc)
	return CogResult{
		Valid:             true,
		TargetIncrease:    tm,
		NonTargetIncrease: om,
		AttentionEffect:   tm - om,
		TrueCount:         trueCount,
		Answer:            answer,
	}
}

// meanErrIn averages the position error magnitude over [lo, hi), or NaN
// when no samples fall inside.
func meanErrIn(samples []Sample, lo, hi float64) float64 {
	var sum float64
	n := 0
	for _, s := range samples {
		if s.T < lo || s.T >= hi {
			continue
		}
		sum += math.Hypot(s.X-s.TargetX, s.Y-s.TargetY)
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
