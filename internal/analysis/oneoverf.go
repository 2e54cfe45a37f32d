package analysis

import (
	"math"

	"clnpd/internal/dsp"
)

// OneOverF fits the log-log spectral slope of the tracking-error
// velocity. Biological motor noise falls roughly as 1/f^a with a in
// [0, 2.5]; synthetic cursors produce flat or steeply structured
// spectra.
func OneOverF(samples []Sample) OneOverFResult {
	if len(samples) < 64 {
		return OneOverFResult{}
	}
	ts := make([]float64, len(samples))
	errX := make([]float64, len(samples))
	for i, s := range samples {
		ts[i] = s.T
		errX[i] = s.X - s.TargetX
	}
	rate := dsp.EstimateRate(ts, 0)
	if rate <= 0 {
		return OneOverFResult{}
	}
	_, re := dsp.Resample(ts, errX, rate)
	if len(re) < 64 {
		return OneOverFResult{}
	}

	dt := 1 / rate
	vel := make([]float64, len(re)-1)
	for i := range vel {
		vel[i] = (re[i+1] - re[i]) / dt
	}

	power, freqs := dsp.PSD(vel, rate)

	var logF, logP []float64
	for i, f := range freqs {
		if f < 0.3 || f > rate/4 || power[i] <= 0 {
			continue
		}
		logF = append(logF, math.Log10(f))
		logP = append(logP, math.Log10(power[i]))
	}
	if len(logF) < 8 {
		return OneOverFResult{}
	}

	fit := dsp.LinearRegression(logF, logP)
	return OneOverFResult{Valid: true, Slope: fit.Slope, R2: fit.R2}
}
