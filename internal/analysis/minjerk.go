package analysis

// Minimum-jerk fit floors.
const (
	minJerkMinSamples = 4
	minJerkMinSpanMs  = 30.0
)

// MinJerk fits the quintic minimum-jerk blend to each detected pulse
// correction between onset and peak. Biological reaches follow the
// profile closely; linear or stepped corrections do not.
func MinJerk(pulse PulseResult) MinJerkResult {
	var r2s []float64
	for _, m := range pulse.measures {
		if !m.Detected {
			continue
		}
		r2, ok := minJerkR2(m)
		if ok {
			r2s = append(r2s, r2)
		}
	}
	if len(r2s) == 0 {
		return MinJerkResult{}
	}
	var sum float64
	for _, v := range r2s {
		sum += v
	}
	return MinJerkResult{Valid: true, MeanR2: sum / float64(len(r2s)), Count: len(r2s)}
}

// minJerkR2 computes the coefficient of determination between the
// observed correction over [latency, peakTime] and the ideal profile
// x0 + (xf-x0)*(10t^3 - 15t^4 + 6t^5).
func minJerkR2(m PulseMeasure) (float64, bool) {
	t0, t1 := m.LatencyMs, m.PeakTime
	if t1-t0 < minJerkMinSpanMs {
		return 0, false
	}

	var obs, model []float64
	var x0 float64
	haveX0 := false
	for i, t := range m.corrT {
		if t < t0 || t > t1 {
			continue
		}
		if !haveX0 {
			x0 = m.corr[i]
			haveX0 = true
		}
		tau := (t - t0) / (t1 - t0)
		blend := 10*tau*tau*tau - 15*tau*tau*tau*tau + 6*tau*tau*tau*tau*tau
		obs = append(obs, m.corr[i])
		model = append(model, x0+(m.PeakValue-x0)*blend)
	}
	if len(obs) < minJerkMinSamples {
		return 0, false
	}

	var mean float64
	for _, v := range obs {
		mean += v
	}
	mean /= float64(len(obs))

	var ssRes, ssTot float64
	for i := range obs {
		d := obs[i] - model[i]
		ssRes += d * d
		dt := obs[i] - mean
		ssTot += dt * dt
	}
	if ssTot <= 0 {
		return 0, false
	}
	return 1 - ssRes/ssTot, true
}
