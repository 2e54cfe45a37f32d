package analysis

import (
	"math"

	"clnpd/internal/dsp"
)

// Pulse response windows and onset detection thresholds.
const (
	pulsePreMs       = 200.0
	pulsePostMs      = 600.0
	onsetMinMs       = 80.0
	onsetThreshold   = 0.20
	sustainThreshold = 0.15
	sustainWindowMs  = 40.0
)

// PulseResponse measures the discrete correction each pulse elicits.
// It works on the cursor residual relative to the smooth path, so the
// Lissajous curvature cannot masquerade as a correction. Pre-pulse
// residual motion is linearly extrapolated and subtracted, and the
// remainder is normalized by the signed pulse amplitude so that a full
// correction reads 1.0. Onset is the first sustained threshold
// crossing at or after 80 ms; instantaneous "corrections" (replayed or
// perfect trackers) never detect.
func PulseResponse(samples []Sample, pulses []PulseEvent) PulseResult {
	if len(samples) == 0 || len(pulses) == 0 {
		return PulseResult{}
	}

	var measures []PulseMeasure
	var latencies, overshoots []float64
	for idx, p := range pulses {
		m := measurePulse(samples, p, idx)
		if m == nil {
			continue
		}
		measures = append(measures, *m)
		if m.Detected {
			latencies = append(latencies, m.LatencyMs)
			overshoots = append(overshoots, m.Overshoot)
		}
	}

	res := PulseResult{measures: measures, DetectedCount: len(latencies)}
	if len(latencies) < 2 {
		return res
	}
	res.Valid = true
	res.LatencyMeanMs = dsp.Mean(latencies)
	res.LatencySDMs = dsp.StdDev(latencies)
	res.MeanOvershoot = dsp.Mean(overshoots)
	return res
}

// measurePulse extracts the normalized correction signal for one pulse
// and runs onset detection. Returns nil when the windows hold too few
// samples to extrapolate.
func measurePulse(samples []Sample, p PulseEvent, idx int) *PulseMeasure {
	var preT, preX []float64
	var postT, postX []float64
	for _, s := range samples {
		resid := s.X - (s.TargetX - s.PertX)
		switch {
		case s.T >= p.StartT-pulsePreMs && s.T < p.StartT:
			preT = append(preT, s.T-p.StartT)
			preX = append(preX, resid)
		case s.T >= p.StartT && s.T < p.StartT+pulsePostMs:
			postT = append(postT, s.T-p.StartT)
			postX = append(postX, resid)
		}
	}
	if len(preT) < 2 || len(postT) < 3 {
		return nil
	}

	fit := dsp.LinearRegression(preT, preX)

	m := &PulseMeasure{PulseIdx: idx}
	m.corrT = make([]float64, len(postT))
	m.corr = make([]float64, len(postT))
	for i := range postT {
		extrapolated := fit.Intercept + fit.Slope*postT[i]
		m.corrT[i] = postT[i]
		m.corr[i] = (postX[i] - extrapolated) / p.AmpX
	}

	onset := detectOnset(m.corrT, m.corr)
	if onset < 0 || m.corrT[onset] < onsetMinMs {
		// No crossing, or an implausibly instant one (replay, perfect
		// tracker): filtered out rather than scored.
		return m
	}
	m.Detected = true
	m.LatencyMs = m.corrT[onset]

	peak := onset
	for i := onset; i < len(m.corr); i++ {
		if m.corr[i] > m.corr[peak] {
			peak = i
		}
	}
	m.PeakValue = m.corr[peak]
	m.PeakTime = m.corrT[peak]
	m.Overshoot = math.Max(0, m.PeakValue-1.0)
	return m
}

// detectOnset returns the index of the first sample whose correction
// exceeds 0.20 and stays above 0.15 for the following 40 ms, or -1.
// The caller rejects crossings earlier than 80 ms.
func detectOnset(ts, corr []float64) int {
	for i := range corr {
		if corr[i] <= onsetThreshold {
			continue
		}
		sustained := true
		for j := i + 1; j < len(corr) && ts[j] <= ts[i]+sustainWindowMs; j++ {
			if corr[j] <= sustainThreshold {
				sustained = false
				break
			}
		}
		if sustained {
			return i
		}
	}
	return -1
}
