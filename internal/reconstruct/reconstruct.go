// Package reconstruct rebuilds, from server-held challenge parameters
// alone, the target position and perturbation the client should have
// been tracking at any sample timestamp. Client-reported target
// positions are never trusted; both sides compute the same floats from
// the same parameters.
package reconstruct

import (
	"math"

	"clnpd/internal/challenge"
)

// Point is the reconstructed ground truth at one sample time.
type Point struct {
	TargetX  float64
	TargetY  float64
	PertX    float64
	PertY    float64
	IsPulse  bool
	PulseIdx int
}

// Standalone reconstructs the full-page task: a Lissajous smooth path
// plus the probe and pulse perturbation sum.
type Standalone struct {
	Challenge     *challenge.Challenge
	TrackingStart float64 // ms, client time base
	DualTaskStart float64 // ms, 0 when the dual task never started
	CanvasW       float64
	CanvasH       float64
}

// At reconstructs the target at wall time t (ms, client time base).
// Samples before trackingStart are discarded (ok=false).
func (s *Standalone) At(t float64) (Point, bool) {
	if t < s.TrackingStart {
		return Point{}, false
	}
	ch := s.Challenge

	// The path continues seamlessly into the dual task as if tracking
	// had run its full duration.
	var pathTime float64
	if s.DualTaskStart > 0 && t >= s.DualTaskStart {
		pathTime = ch.TrackingDurationMs + (t - s.DualTaskStart)
	} else {
		pathTime = t - s.TrackingStart
	}

	cx := s.CanvasW / 2
	cy := s.CanvasH / 2
	ax := s.CanvasW * ch.Path.Padding
	ay := s.CanvasH * ch.Path.Padding
	smoothX := cx + ax*math.Sin(2*math.Pi*ch.Path.FreqX*pathTime/1000+ch.Path.Phase)
	smoothY := cy + ay*math.Sin(2*math.Pi*ch.Path.FreqY*pathTime/1000)

	elapsed := (t - s.TrackingStart) / 1000
	px, py := probeSum(ch.Probes, elapsed)

	ppx, ppy, isPulse, pulseIdx := pulseSum(ch.Pulses, func(p challenge.Pulse) float64 {
		return t - (s.TrackingStart + p.OffsetMs)
	})
	px += ppx
	py += ppy

	return Point{
		TargetX:  smoothX + px,
		TargetY:  smoothY + py,
		PertX:    px,
		PertY:    py,
		IsPulse:  isPulse,
		PulseIdx: pulseIdx,
	}, true
}

// Embed reconstructs the embedded-mode perturbation at cumulative hover
// time hoverT (ms). There is no smooth path: the perturbation is a CSS
// transform applied around the hovered element's rest position.
func Embed(ch *challenge.Challenge, hoverT float64) Point {
	elapsed := hoverT / 1000
	px, py := probeSum(ch.Probes, elapsed)

	ppx, ppy, isPulse, pulseIdx := pulseSum(ch.Pulses, func(p challenge.Pulse) float64 {
		return hoverT - p.HoverTimeMs
	})
	px += ppx
	py += ppy

	return Point{
		TargetX:  px,
		TargetY:  py,
		PertX:    px,
		PertY:    py,
		IsPulse:  isPulse,
		PulseIdx: pulseIdx,
	}
}

// probeSum accumulates the sinusoidal probe components at elapsed
// seconds.
func probeSum(probes []challenge.Probe, elapsed float64) (px, py float64) {
	for _, p := range probes {
		phase := 2 * math.Pi * p.Freq * elapsed
		px += p.AmpX * math.Sin(phase)
		py += p.AmpY * math.Sin(phase+p.PhaseOffset)
	}
	return px, py
}

// pulseSum adds the active pulse contribution. During the hold window
// the full amplitude applies and the sample is flagged; during the
// return window the amplitude eases out quadratically. The return
// contribution at dt == hold equals the hold contribution, so the
// perturbation is continuous across the boundary.
func pulseSum(pulses []challenge.Pulse, dtOf func(challenge.Pulse) float64) (px, py float64, isPulse bool, pulseIdx int) {
	pulseIdx = -1
	for i, p := range pulses {
		dt := dtOf(p)
		switch {
		case dt >= 0 && dt < p.HoldMs:
			px += p.AmpX
			py += p.AmpY
			isPulse = true
			pulseIdx = i
		case dt >= p.HoldMs && dt < p.HoldMs+p.ReturnMs:
			frac := (dt - p.HoldMs) / p.ReturnMs
			ease := 1 - frac*frac
			px += p.AmpX * ease
			py += p.AmpY * ease
		}
	}
	return px, py, isPulse, pulseIdx
}
