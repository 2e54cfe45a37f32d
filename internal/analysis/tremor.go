package analysis

import (
	"math"

	"clnpd/internal/dsp"
)

// Physiological tremor band.
const (
	tremorBandLo = 8.0
	tremorBandHi = 12.0
)

// bandRatio computes the tremor band power fraction of a speed series
// on a uniform grid: sum of 8-12 Hz power over sum of all power above
// 1 Hz, plus the peak frequency within the band.
func bandRatio(speed []float64, rate float64) (ratio, peakFreq float64, ok bool) {
	if len(speed) < 32 {
		return 0, 0, false
	}
	window := int(rate / 3)
	if window < 1 {
		window = 1
	}
	avg := dsp.MovingAverage(speed, window)
	resid := make([]float64, len(speed))
	for i := range speed {
		resid[i] = speed[i] - avg[i]
	}

	power, freqs := dsp.PSD(resid, rate)

	var band, total float64
	peakIdx := -1
	for i, f := range freqs {
		if f > 1 {
			total += power[i]
		}
		if f >= tremorBandLo && f <= tremorBandHi {
			band += power[i]
			if peakIdx < 0 || power[i] > power[peakIdx] {
				peakIdx = i
			}
		}
	}
	if total <= 0 || peakIdx < 0 {
		return 0, 0, false
	}
	return band / total, freqs[peakIdx], true
}

// CursorTremor measures 8-12 Hz band power in cursor speed. The series
// is resampled to at most 120 Hz; a moving average (window rate/3)
// removes voluntary motion before the PSD.
func CursorTremor(samples []Sample) TremorResult {
	if len(samples) < 64 {
		return TremorResult{}
	}
	ts := make([]float64, len(samples))
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		ts[i] = s.T
		xs[i] = s.X
		ys[i] = s.Y
	}
	rate := dsp.EstimateRate(ts, 0)
	if rate <= 0 {
		return TremorResult{}
	}
	if rate > 120 {
		rate = 120
	}
	// The tremor band must lie at or below the Nyquist frequency.
	if rate < 2*tremorBandHi {
		return TremorResult{}
	}

	_, rx := dsp.Resample(ts, xs, rate)
	_, ry := dsp.Resample(ts, ys, rate)
	if len(rx) < 33 {
		return TremorResult{}
	}
	dt := 1 / rate
	speed := make([]float64, len(rx)-1)
	for i := range speed {
		speed[i] = math.Hypot(rx[i+1]-rx[i], ry[i+1]-ry[i]) / dt
	}

	ratio, peak, ok := bandRatio(speed, rate)
	if !ok {
		return TremorResult{}
	}
	return TremorResult{Valid: true, Ratio: ratio, PeakFreq: peak}
}

// AccelTremor applies the same band-ratio method to the accelerometer
// magnitude. The sample rate is estimated from the first 500 samples
// and must be at least 20 Hz.
func AccelTremor(accel []AccelSample) TremorResult {
	if len(accel) < 64 {
		return TremorResult{}
	}
	ts := make([]float64, len(accel))
	mag := make([]float64, len(accel))
	for i, a := range accel {
		ts[i] = a.T
		mag[i] = math.Sqrt(a.AX*a.AX + a.AY*a.AY + a.AZ*a.AZ)
	}
	rate := dsp.EstimateRate(ts, 500)
	if rate < 20 {
		return TremorResult{}
	}
	if rate > 100 {
		rate = 100
	}

	_, rm := dsp.Resample(ts, mag, rate)
	ratio, peak, ok := bandRatio(rm, rate)
	if !ok {
		return TremorResult{}
	}
	return TremorResult{Valid: true, Ratio: ratio, PeakFreq: peak}
}
