package analysis

import (
	"math"

	"clnpd/internal/dsp"
)

const (
	crossAxisWindowMs = 400.0
	crossAxisMinDx    = 2.0
)

// CrossAxis measures involuntary y-axis coupling during x-axis pulse
// corrections. Biological limbs cannot correct along a single axis in
// isolation; scripted cursors can. For each triggered pulse the net
// |dy/dx| over the 400 ms window after pulse start is collected,
// measured from the last sample before pulse start when there is one.
// Device-dependent expectations live in the scorer, not here.
func CrossAxis(samples []Sample, pulses []PulseEvent) CrossAxisResult {
	if len(samples) == 0 || len(pulses) == 0 {
		return CrossAxisResult{}
	}

	var ratios []float64
	for _, p := range pulses {
		first, last := -1, -1
		for i, s := range samples {
			if s.T < p.StartT {
				continue
			}
			if s.T >= p.StartT+crossAxisWindowMs {
				break
			}
			if first < 0 {
				first = i
			}
			last = i
		}
		if first < 0 || last <= first {
			continue
		}
		// Baseline on the pre-pulse sample so a displacement that lands
		// exactly at pulse start is part of the measured movement.
		base := first
		if first > 0 {
			base = first - 1
		}
		dx := samples[last].X - samples[base].X
		dy := samples[last].Y - samples[base].Y
		if math.Abs(dx) <= crossAxisMinDx {
			continue
		}
		ratios = append(ratios, math.Abs(dy/dx))
	}

	if len(ratios) < 2 {
		return CrossAxisResult{}
	}
	return CrossAxisResult{
		Valid: true,
		Mean:  dsp.Mean(ratios),
		SD:    dsp.StdDev(ratios),
		Count: len(ratios),
	}
}
