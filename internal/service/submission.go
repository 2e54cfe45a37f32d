package service

import (
	"clnpd/internal/analysis"
	"clnpd/internal/challenge"
	"clnpd/internal/reconstruct"
)

// Minimum pointer sample counts.
const (
	minPointerStandalone = 50
	minPointerEmbed      = 30
)

// Embed plausibility floors: minimum cumulative hover by device class.
const (
	minHoverDesktopMs = 4000.0
	minHoverTouchMs   = 3000.0
	minPulseLogLen    = 2
)

type phaseTimes struct {
	TrackingStart float64 `json:"trackingStart"`
	DualtaskStart float64 `json:"dualtaskStart"`
	TestEnd       float64 `json:"testEnd"`
}

type canvasDims struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// standaloneRequest is the raw verify body for the full-page task.
// Pointer rows are (t, x, y); accel rows are (t, ax, ay, az).
type standaloneRequest struct {
	Token       string      `json:"token"`
	Pointer     [][]float64 `json:"pointer"`
	Accel       [][]float64 `json:"accel"`
	Phases      *phaseTimes `json:"phases"`
	Canvas      *canvasDims `json:"canvas"`
	InputMethod string      `json:"inputMethod"`
	CogAnswer   *int        `json:"cogAnswer"`
}

type elementRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type observedElement struct {
	Index int         `json:"index"`
	Rect  elementRect `json:"rect"`
}

type pulseLogEntry struct {
	PulseIdx  int     `json:"pulseIdx"`
	AtHoverMs float64 `json:"atHoverMs"`
}

type deviceProfile struct {
	Type string `json:"type"`
}

// embedRequest is the raw verify body for the embedded variant.
// Pointer rows are (wallT, hoverT, x, y, elementIdx); hover rows are
// (elemIdx, startWall, endWall, startHover, endHover).
type embedRequest struct {
	Token         string            `json:"token"`
	Pointer       [][]float64       `json:"pointer"`
	Accel         [][]float64       `json:"accel"`
	Hovers        [][]float64       `json:"hovers"`
	PulseLog      []pulseLogEntry   `json:"pulseLog"`
	Elements      []observedElement `json:"elements"`
	InputMethod   string            `json:"inputMethod"`
	DeviceProfile *deviceProfile    `json:"deviceProfile"`
}

func accelSamples(rows [][]float64) []analysis.AccelSample {
	out := make([]analysis.AccelSample, 0, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		out = append(out, analysis.AccelSample{T: row[0], AX: row[1], AY: row[2], AZ: row[3]})
	}
	return out
}

func probeFreqs(ch *challenge.Challenge) []float64 {
	freqs := make([]float64, len(ch.Probes))
	for i, p := range ch.Probes {
		freqs[i] = p.Freq
	}
	return freqs
}

// buildStandaloneInput reconstructs ground truth per sample and
// assembles the pipeline input. Samples before trackingStart are
// dropped by the reconstructor.
func buildStandaloneInput(ch *challenge.Challenge, req *standaloneRequest) analysis.Input {
	rec := &reconstruct.Standalone{
		Challenge:     ch,
		TrackingStart: req.Phases.TrackingStart,
		DualTaskStart: req.Phases.DualtaskStart,
		CanvasW:       req.Canvas.Width,
		CanvasH:       req.Canvas.Height,
	}

	samples := make([]analysis.Sample, 0, len(req.Pointer))
	for _, row := range req.Pointer {
		if len(row) < 3 {
			continue
		}
		pt, ok := rec.At(row[0])
		if !ok {
			continue
		}
		samples = append(samples, analysis.Sample{T: row[0], X: row[1], Y: row[2], Point: pt})
	}

	pulses := make([]analysis.PulseEvent, len(ch.Pulses))
	for i, p := range ch.Pulses {
		pulses[i] = analysis.PulseEvent{
			StartT: req.Phases.TrackingStart + p.OffsetMs,
			AmpX:   p.AmpX,
			HoldMs: p.HoldMs,
		}
	}

	var flashes []analysis.FlashEvent
	trueCount := 0
	if ch.Cog != nil && req.Phases.DualtaskStart > 0 {
		trueCount = ch.Cog.TargetCount
		for _, f := range ch.Cog.Flashes {
			flashes = append(flashes, analysis.FlashEvent{
				T:        req.Phases.DualtaskStart + f.TimeMs,
				IsTarget: f.IsTarget,
			})
		}
	}

	return analysis.Input{
		Samples:     samples,
		Accel:       accelSamples(req.Accel),
		Pulses:      pulses,
		Flashes:     flashes,
		ProbeFreqs:  probeFreqs(ch),
		InputMethod: req.InputMethod,
		CogAnswer:   req.CogAnswer,
		TrueCount:   trueCount,
	}
}

// embedMetrics summarizes the hover schedule for plausibility and the
// session record.
type embedMetrics struct {
	TotalHoverMs   float64
	UniqueElements int
	Plausible      bool
}

// buildEmbedInput assembles the pipeline input on the cumulative
// hover-time axis. Cursor positions are taken relative to the hovered
// element's center, the rest position the perturbation displaces.
func buildEmbedInput(ch *challenge.Challenge, req *embedRequest) (analysis.Input, embedMetrics) {
	centers := make(map[int][2]float64, len(req.Elements))
	for _, el := range req.Elements {
		centers[el.Index] = [2]float64{
			el.Rect.X + el.Rect.Width/2,
			el.Rect.Y + el.Rect.Height/2,
		}
	}

	samples := make([]analysis.Sample, 0, len(req.Pointer))
	for _, row := range req.Pointer {
		if len(row) < 5 {
			continue
		}
		hoverT := row[1]
		center, ok := centers[int(row[4])]
		if !ok {
			continue
		}
		samples = append(samples, analysis.Sample{
			T:     hoverT,
			X:     row[2] - center[0],
			Y:     row[3] - center[1],
			Point: reconstruct.Embed(ch, hoverT),
		})
	}

	pulses := make([]analysis.PulseEvent, len(ch.Pulses))
	for i, p := range ch.Pulses {
		pulses[i] = analysis.PulseEvent{StartT: p.HoverTimeMs, AmpX: p.AmpX, HoldMs: p.HoldMs}
	}

	in := analysis.Input{
		Samples:     samples,
		Accel:       accelSamples(req.Accel),
		Pulses:      pulses,
		ProbeFreqs:  probeFreqs(ch),
		InputMethod: req.InputMethod,
	}

	// Hover time is recomputed from the reported schedule rather than
	// trusted from the pointer rows.
	seen := make(map[int]bool)
	var totalHover float64
	for _, h := range req.Hovers {
		if len(h) < 5 {
			continue
		}
		seen[int(h[0])] = true
		if dt := h[2] - h[1]; dt > 0 {
			totalHover += dt
		}
	}

	minHover := minHoverDesktopMs
	if req.InputMethod == "touch" || (req.DeviceProfile != nil && req.DeviceProfile.Type == "touch") {
		minHover = minHoverTouchMs
	}

	m := embedMetrics{
		TotalHoverMs:   totalHover,
		UniqueElements: len(seen),
	}
	m.Plausible = m.UniqueElements >= 2 &&
		totalHover >= minHover &&
		len(req.PulseLog) >= minPulseLogLen
	return in, m
}
