package dsp

// Resample linearly interpolates the irregular series (t, v) onto a
// uniform grid at rate Hz. Timestamps are milliseconds; the grid starts
// at the first input timestamp and ends at or before the last, with step
// 1000/rate. Returns nil slices when fewer than two inputs are given.
func Resample(t, v []float64, rate float64) (rt, rv []float64) {
	if len(t) < 2 || len(t) != len(v) || rate <= 0 {
		return nil, nil
	}
	step := 1000 / rate
	start, end := t[0], t[len(t)-1]
	n := int((end-start)/step) + 1
	rt = make([]float64, 0, n)
	rv = make([]float64, 0, n)

	j := 0
	for i := 0; i < n; i++ {
		ts := start + float64(i)*step
		for j < len(t)-2 && t[j+1] <= ts {
			j++
		}
		t0, t1 := t[j], t[j+1]
		var val float64
		if t1 == t0 {
			val = v[j]
		} else {
			frac := (ts - t0) / (t1 - t0)
			if frac < 0 {
				frac = 0
			} else if frac > 1 {
				frac = 1
			}
			val = v[j] + frac*(v[j+1]-v[j])
		}
		rt = append(rt, ts)
		rv = append(rv, val)
	}
	return rt, rv
}

// Velocity computes forward differences of v over t (ms) in units per
// second. Sample pairs with non-positive dt are skipped; the returned
// vt holds the timestamp of each difference's leading sample.
func Velocity(t, v []float64) (vt, vel []float64) {
	if len(t) < 2 || len(t) != len(v) {
		return nil, nil
	}
	vt = make([]float64, 0, len(t)-1)
	vel = make([]float64, 0, len(t)-1)
	for i := 0; i < len(t)-1; i++ {
		dt := (t[i+1] - t[i]) / 1000
		if dt <= 0 {
			continue
		}
		vt = append(vt, t[i])
		vel = append(vel, (v[i+1]-v[i])/dt)
	}
	return vt, vel
}

// MovingAverage returns the centred moving average of x over window/2
// samples on either side, so an even window spans window+1 samples.
// Edges use the available shorter window.
func MovingAverage(x []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(x))
	half := window / 2
	for i := range x {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= len(x) {
			hi = len(x) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += x[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// EstimateRate estimates the sample rate in Hz of timestamps t (ms),
// using at most the first maxSamples timestamps. Returns 0 when the span
// is degenerate.
func EstimateRate(t []float64, maxSamples int) float64 {
	if len(t) < 2 {
		return 0
	}
	n := len(t)
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	span := (t[n-1] - t[0]) / 1000
	if span <= 0 {
		return 0
	}
	return float64(n-1) / span
}
