package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clnpd/internal/reconstruct"
)

// flatSamples builds a uniform sample grid with a constant target and
// the cursor series supplied by f(t).
func flatSamples(durMs, stepMs float64, f func(t float64) (x, y float64)) []Sample {
	var out []Sample
	for t := 0.0; t < durMs; t += stepMs {
		x, y := f(t)
		out = append(out, Sample{
			T: t, X: x, Y: y,
			Point: reconstruct.Point{TargetX: 0, TargetY: 0},
		})
	}
	return out
}

func minJerkBlend(tau float64) float64 {
	return 10*math.Pow(tau, 3) - 15*math.Pow(tau, 4) + 6*math.Pow(tau, 5)
}

func TestCrossAxisZeroForPureXMirror(t *testing.T) {
	// Cursor mirrors targetX exactly with zero y response.
	pulses := []PulseEvent{
		{StartT: 1000, AmpX: 20, HoldMs: 600},
		{StartT: 3000, AmpX: 20, HoldMs: 600},
	}
	var samples []Sample
	for ts := 0.0; ts < 5000; ts += 10 {
		targetX := 0.0
		for _, p := range pulses {
			if ts >= p.StartT && ts < p.StartT+p.HoldMs {
				targetX += p.AmpX
			}
		}
		samples = append(samples, Sample{
			T: ts, X: targetX, Y: 50,
			Point: reconstruct.Point{TargetX: targetX, TargetY: 50},
		})
	}

	res := CrossAxis(samples, pulses)
	require.True(t, res.Valid)
	assert.Equal(t, 0.0, res.Mean)
	assert.Equal(t, 0.0, res.SD)
}

func TestCrossAxisNeedsTwoUsablePulses(t *testing.T) {
	pulses := []PulseEvent{{StartT: 1000, AmpX: 20, HoldMs: 600}}
	samples := flatSamples(3000, 10, func(ts float64) (float64, float64) {
		if ts >= 1000 {
			return 20, 5
		}
		return 0, 0
	})
	res := CrossAxis(samples, pulses)
	assert.False(t, res.Valid)
}

func TestPulseResponseLaggedStep(t *testing.T) {
	// The cursor completes each correction as a fast ramp starting
	// 200 ms after the pulse.
	pulses := []PulseEvent{
		{StartT: 2000, AmpX: 22, HoldMs: 600},
		{StartT: 5000, AmpX: -20, HoldMs: 600},
		{StartT: 8000, AmpX: 22, HoldMs: 600},
	}
	var samples []Sample
	for ts := 0.0; ts < 10000; ts += 10 {
		x := 0.0
		for _, p := range pulses {
			rel := ts - p.StartT
			switch {
			case rel >= 200 && rel < 260:
				x += p.AmpX * (rel - 200) / 60
			case rel >= 260 && rel < p.HoldMs:
				x += p.AmpX
			}
		}
		samples = append(samples, Sample{T: ts, X: x})
	}

	res := PulseResponse(samples, pulses)
	require.True(t, res.Valid)
	assert.Equal(t, 3, res.DetectedCount)
	assert.InDelta(t, 215, res.LatencyMeanMs, 25)
	assert.Less(t, res.LatencySDMs, 10.0)
}

func TestPulseResponsePerfectTrackerFilteredOut(t *testing.T) {
	// Cursor equals the pulsed target exactly: the correction is
	// instantaneous, crossing threshold before 80 ms, so no pulse
	// detects and the pipeline carries no weight.
	pulses := []PulseEvent{
		{StartT: 2000, AmpX: 22, HoldMs: 600},
		{StartT: 5000, AmpX: 22, HoldMs: 600},
	}
	var samples []Sample
	for ts := 0.0; ts < 7000; ts += 10 {
		x := 0.0
		for _, p := range pulses {
			if ts >= p.StartT && ts < p.StartT+p.HoldMs {
				x += p.AmpX
			}
		}
		samples = append(samples, Sample{T: ts, X: x})
	}

	res := PulseResponse(samples, pulses)
	assert.False(t, res.Valid)
	assert.Equal(t, 0, res.DetectedCount)
}

func TestMinJerkIdentity(t *testing.T) {
	// Correction follows an exact minimum-jerk blend from the onset
	// level to the peak.
	pulse := PulseEvent{StartT: 1000, AmpX: 20, HoldMs: 600}
	var samples []Sample
	for ts := 0.0; ts < 2000; ts += 5 {
		c := 0.0
		rel := ts - pulse.StartT
		switch {
		case rel >= 150 && rel < 450:
			c = 0.2 + 0.8*minJerkBlend((rel-150)/300)
		case rel >= 450:
			c = 1.0
		}
		samples = append(samples, Sample{T: ts, X: c * pulse.AmpX})
	}

	pr := PulseResponse(samples, []PulseEvent{pulse, {StartT: 5000, AmpX: 20, HoldMs: 600}})
	mj := MinJerk(pr)
	require.True(t, mj.Valid, "minimum-jerk pulse should produce a fit")
	assert.GreaterOrEqual(t, mj.MeanR2, 0.99)
}

func TestTransferFnRolloffAndDelay(t *testing.T) {
	probes := []struct {
		freq, amp, gain float64
	}{
		{0.25, 5, 1.0},
		{0.55, 5, 0.9},
		{0.95, 4, 0.7},
		{1.55, 4, 0.45},
		{2.35, 3, 0.25},
	}
	const lag = 0.15 // seconds
	var samples []Sample
	var freqs []float64
	for _, p := range probes {
		freqs = append(freqs, p.freq)
	}
	for ts := 0.0; ts < 20000; ts += 1000.0 / 80 {
		var pert, resp float64
		for _, p := range probes {
			pert += p.amp * math.Sin(2*math.Pi*p.freq*ts/1000)
			resp += p.gain * p.amp * math.Sin(2*math.Pi*p.freq*(ts/1000-lag))
		}
		samples = append(samples, Sample{
			T: ts, X: 400 + resp,
			Point: reconstruct.Point{TargetX: 400 + pert, PertX: pert},
		})
	}

	res := TransferFn(samples, freqs)
	require.True(t, res.Valid)
	assert.True(t, res.HasRolloff, "monotonically decreasing gains must register rolloff")
	assert.GreaterOrEqual(t, res.CoherentProbeCount, 3)
	assert.InDelta(t, 150, res.MeanDelayMs, 60)
	assert.True(t, res.DelayPlausible)
}

func TestCursorTremorBandDetection(t *testing.T) {
	// Tremor rides on a steady voluntary drift so the speed signal
	// keeps the 10 Hz component unrectified.
	samples := flatSamples(20000, 10, func(ts float64) (float64, float64) {
		return 0.4*ts + 3*math.Sin(2*math.Pi*10*ts/1000), 300
	})
	res := CursorTremor(samples)
	require.True(t, res.Valid)
	assert.Greater(t, res.Ratio, 0.5)
	assert.InDelta(t, 10.0, res.PeakFreq, 1.0)
}

func TestAccelTremorRequiresRate(t *testing.T) {
	// 10 Hz accelerometer: below the 20 Hz floor.
	var slow []AccelSample
	for ts := 0.0; ts < 10000; ts += 100 {
		slow = append(slow, AccelSample{T: ts, AX: 0.1, AY: 0.1, AZ: 9.8})
	}
	assert.False(t, AccelTremor(slow).Valid)

	// 100 Hz with a 9 Hz tremor component.
	var fast []AccelSample
	for ts := 0.0; ts < 10000; ts += 10 {
		fast = append(fast, AccelSample{
			T:  ts,
			AZ: 9.8 + 0.3*math.Sin(2*math.Pi*9*ts/1000),
		})
	}
	res := AccelTremor(fast)
	require.True(t, res.Valid)
	assert.InDelta(t, 9.0, res.PeakFreq, 1.0)
}

func TestOneOverFSlopeInBiologicalRange(t *testing.T) {
	// Error as a random walk: error velocity is white, spectral slope
	// near zero, at the flat end of the biological band.
	rng := rand.New(rand.NewSource(7))
	errAcc := 0.0
	samples := flatSamples(20000, 10, func(ts float64) (float64, float64) {
		errAcc += rng.NormFloat64()
		return errAcc, 0
	})
	res := OneOverF(samples)
	require.True(t, res.Valid)
	assert.InDelta(t, 0.0, res.Slope, 0.6)
}

func TestSignalDependentNoiseCorrelation(t *testing.T) {
	// Alternate slow and fast segments; noise amplitude scales with
	// speed, as biological motor noise does.
	rng := rand.New(rand.NewSource(11))
	var samples []Sample
	x := 0.0
	for ts := 0.0; ts < 30000; ts += 10 {
		segment := int(ts/2000) % 4
		speed := 20 + 120*float64(segment) // px/s
		x += speed * 0.010
		noise := (0.2 + 0.02*speed) * rng.NormFloat64()
		samples = append(samples, Sample{
			T: ts, X: x + noise, Y: 0,
			Point: reconstruct.Point{TargetX: x, TargetY: 0},
		})
	}
	res := SignalDependentNoise(samples)
	require.True(t, res.Valid)
	assert.Greater(t, res.Correlation, 0.4)
	assert.Greater(t, res.Slope, 0.0)
}

func TestCogInterferenceAttentionEffect(t *testing.T) {
	flashes := []FlashEvent{
		{T: 2000, IsTarget: true},
		{T: 4000, IsTarget: false},
		{T: 6000, IsTarget: true},
		{T: 8000, IsTarget: false},
	}
	var samples []Sample
	for ts := 0.0; ts < 10000; ts += 10 {
		errMag := 2.0
		for _, f := range flashes {
			if !f.IsTarget {
				continue
			}
			if ts >= f.T+200 && ts < f.T+700 {
				errMag = 4.0
			}
		}
		samples = append(samples, Sample{T: ts, X: errMag, Y: 0})
	}

	answer := 2
	res := CogInterference(samples, flashes, 2, &answer)
	require.True(t, res.Valid)
	assert.Greater(t, res.TargetIncrease, 0.5)
	assert.InDelta(t, 0.0, res.NonTargetIncrease, 0.05)
	assert.Greater(t, res.AttentionEffect, 0.02)
	assert.Equal(t, 2, res.TrueCount)
	require.NotNil(t, res.Answer)
	assert.Equal(t, 2, *res.Answer)
}

func TestRunAggregatesAndCountsValid(t *testing.T) {
	// A bare, short input: nothing should be valid, and Run must not
	// panic on degenerate data.
	res := Run(Input{Samples: flatSamples(100, 10, func(float64) (float64, float64) { return 0, 0 })})
	assert.Equal(t, 0, res.ValidCount())
	assert.Equal(t, 10, res.SampleCount)
}
