package analysis

import (
	"math"

	"clnpd/internal/dsp"
)

// Coherence floor below which a probe bin is treated as noise.
const probeCoherenceFloor = 0.15

// TransferFn estimates the visuomotor frequency response between the
// injected perturbation and the cursor residual. Biological controllers
// show low-pass rolloff across the probe set and a physiological phase
// delay; replayed or synthesized cursors do not.
func TransferFn(samples []Sample, probeFreqs []float64) TransferFnResult {
	if len(samples) < 64 || len(probeFreqs) == 0 {
		return TransferFnResult{}
	}

	ts := make([]float64, len(samples))
	pert := make([]float64, len(samples))
	resid := make([]float64, len(samples))
	for i, s := range samples {
		ts[i] = s.T
		pert[i] = s.PertX
		// residual relative to the smooth path: what the controller
		// actually did in response to the perturbation
		resid[i] = s.X - (s.TargetX - s.PertX)
	}

	rate := dsp.EstimateRate(ts, 0)
	if rate <= 0 {
		return TransferFnResult{}
	}
	_, pertR := dsp.Resample(ts, pert, rate)
	_, residR := dsp.Resample(ts, resid, rate)
	if len(pertR) < 64 {
		return TransferFnResult{}
	}

	tr := dsp.TransferFunction(pertR, residR, rate)

	gains := make([]float64, len(probeFreqs))
	phases := make([]float64, len(probeFreqs))
	cohs := make([]float64, len(probeFreqs))
	for i, f := range probeFreqs {
		bin := dsp.NearestBin(tr.Freqs, f)
		gains[i] = tr.Gain[bin]
		phases[i] = tr.Phase[bin]
		cohs[i] = tr.Coherence[bin]
	}

	// Rolloff: at least two consecutive gain decreases across the
	// ascending probe set.
	consec, maxConsec := 0, 0
	for i := 1; i < len(gains); i++ {
		if gains[i] < gains[i-1] {
			consec++
			if consec > maxConsec {
				maxConsec = consec
			}
		} else {
			consec = 0
		}
	}

	// Coherence-weighted delay from probe phases.
	var delaySum, weightSum float64
	coherent := 0
	for i, f := range probeFreqs {
		if cohs[i] <= probeCoherenceFloor {
			continue
		}
		coherent++
		delay := -phases[i] / (2 * math.Pi * f) * 1000
		if delay > 0 && delay < 1000 {
			delaySum += cohs[i] * delay
			weightSum += cohs[i]
		}
	}
	meanDelay := 0.0
	if weightSum > 0 {
		meanDelay = delaySum / weightSum
	}

	return TransferFnResult{
		Valid:              true,
		HasRolloff:         maxConsec >= 2,
		MeanDelayMs:        meanDelay,
		DelayPlausible:     meanDelay > 30 && meanDelay < 500,
		CoherentProbeCount: coherent,
		ProbeGains:         gains,
	}
}
