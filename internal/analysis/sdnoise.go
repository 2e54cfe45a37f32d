package analysis

import (
	"math"

	"clnpd/internal/dsp"
)

const (
	sdWindowSize = 15
	sdMinSpeed   = 10.0 // px/s
	sdMinWindows = 5
)

// SignalDependentNoise measures whether positional error scales with
// movement speed, a signature of biological motor control (noise grows
// with motor command amplitude). Slides 15-sample windows with 50%
// overlap, keeps windows moving faster than 10 px/s, and correlates
// mean speed with the standard deviation of error magnitude.
func SignalDependentNoise(samples []Sample) SDNoiseResult {
	if len(samples) < sdWindowSize*2 {
		return SDNoiseResult{}
	}

	var speeds, errSDs []float64
	hop := sdWindowSize / 2
	for start := 0; start+sdWindowSize <= len(samples); start += hop {
		win := samples[start : start+sdWindowSize]

		var speedSum float64
		speedN := 0
		errs := make([]float64, 0, len(win))
		for i, s := range win {
			errs = append(errs, math.Hypot(s.X-s.TargetX, s.Y-s.TargetY))
			if i == 0 {
				continue
			}
			dt := (win[i].T - win[i-1].T) / 1000
			if dt <= 0 {
				continue
			}
			speedSum += math.Hypot(win[i].X-win[i-1].X, win[i].Y-win[i-1].Y) / dt
			speedN++
		}
		if speedN == 0 {
			continue
		}
		meanSpeed := speedSum / float64(speedN)
		if meanSpeed <= sdMinSpeed {
			continue
		}
		speeds = append(speeds, meanSpeed)
		errSDs = append(errSDs, dsp.StdDev(errs))
	}

	if len(speeds) < sdMinWindows {
		return SDNoiseResult{}
	}

	fit := dsp.LinearRegression(speeds, errSDs)
	return SDNoiseResult{
		Valid:       true,
		Correlation: dsp.Pearson(speeds, errSDs),
		Slope:       fit.Slope,
		Windows:     len(speeds),
	}
}
