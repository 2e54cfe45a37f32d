// Package analysis implements the biomechanical pipelines that separate
// biological from non-biological pointer control. Each pipeline is a
// pure function over the reconstructed sample sequence returning a
// validity flag plus feature values; pipelines that cannot measure
// ("insufficient") return valid=false and contribute no weight.
package analysis

import "clnpd/internal/reconstruct"

// Sample is one pointer sample joined with the reconstructed ground
// truth at its timestamp. T is milliseconds on the session time base
// (wall time standalone, cumulative hover time embed).
type Sample struct {
	T float64
	X float64
	Y float64
	reconstruct.Point
}

// AccelSample is one raw accelerometer sample, t in ms.
type AccelSample struct {
	T  float64
	AX float64
	AY float64
	AZ float64
}

// PulseEvent is a pulse on the sample time base.
type PulseEvent struct {
	StartT float64
	AmpX   float64
	HoldMs float64
}

// FlashEvent is a cognitive flash on the sample time base.
type FlashEvent struct {
	T        float64
	IsTarget bool
}

// Input is everything the pipelines consume.
type Input struct {
	Samples     []Sample
	Accel       []AccelSample
	Pulses      []PulseEvent
	Flashes     []FlashEvent
	ProbeFreqs  []float64
	InputMethod string
	CogAnswer   *int
	TrueCount   int
}

// TransferFnResult holds the frequency-response features.
type TransferFnResult struct {
	Valid              bool      `json:"valid"`
	HasRolloff         bool      `json:"hasRolloff"`
	MeanDelayMs        float64   `json:"meanDelayMs"`
	DelayPlausible     bool      `json:"delayPlausible"`
	CoherentProbeCount int       `json:"coherentProbeCount"`
	ProbeGains         []float64 `json:"probeGains,omitempty"`
}

// TremorResult holds the 8-12 Hz band features for cursor or
// accelerometer tremor.
type TremorResult struct {
	Valid    bool    `json:"valid"`
	Ratio    float64 `json:"ratio"`
	PeakFreq float64 `json:"peakFreq"`
}

// OneOverFResult holds the error-velocity spectral slope fit.
type OneOverFResult struct {
	Valid bool    `json:"valid"`
	Slope float64 `json:"slope"`
	R2    float64 `json:"r2"`
}

// SDNoiseResult holds the signal-dependent noise features.
type SDNoiseResult struct {
	Valid       bool    `json:"valid"`
	Correlation float64 `json:"correlation"`
	Slope       float64 `json:"slope"`
	Windows     int     `json:"windows"`
}

// CrossAxisResult holds the pulse-window coupling features.
type CrossAxisResult struct {
	Valid bool    `json:"valid"`
	Mean  float64 `json:"mean"`
	SD    float64 `json:"sd"`
	Count int     `json:"count"`
}

// PulseMeasure is the per-pulse correction analysis, kept for the
// minimum-jerk fit.
type PulseMeasure struct {
	PulseIdx  int
	Detected  bool
	LatencyMs float64
	PeakValue float64
	PeakTime  float64
	Overshoot float64
	// correction signal relative to pulse start
	corrT []float64
	corr  []float64
}

// PulseResult holds the pulse response latency features.
type PulseResult struct {
	Valid         bool    `json:"valid"`
	LatencyMeanMs float64 `json:"latencyMeanMs"`
	LatencySDMs   float64 `json:"latencySdMs"`
	MeanOvershoot float64 `json:"meanOvershoot"`
	DetectedCount int     `json:"detectedCount"`

	measures []PulseMeasure
}

// CogResult holds the cognitive-motor interference features. Increases
// are fractional (0.08 = 8% more positional error after a flash).
type CogResult struct {
	Valid             bool    `json:"valid"`
	TargetIncrease    float64 `json:"targetIncrease"`
	NonTargetIncrease float64 `json:"nonTargetIncrease"`
	AttentionEffect   float64 `json:"attentionEffect"`
	TrueCount         int     `json:"trueCount"`
	Answer            *int    `json:"answer"`
}

// MinJerkResult holds the minimum-jerk trajectory fit.
type MinJerkResult struct {
	Valid  bool    `json:"valid"`
	MeanR2 float64 `json:"meanR2"`
	Count  int     `json:"count"`
}

// Results aggregates every pipeline output plus sampling metadata.
type Results struct {
	TransferFn   TransferFnResult `json:"transferFn"`
	CursorTremor TremorResult     `json:"cursorTremor"`
	AccelTremor  TremorResult     `json:"accelTremor"`
	OneOverF     OneOverFResult   `json:"oneOverF"`
	SDNoise      SDNoiseResult    `json:"signalDepNoise"`
	CrossAxis    CrossAxisResult  `json:"crossAxis"`
	Pulse        PulseResult      `json:"pulseResponse"`
	Cog          CogResult        `json:"cogInterference"`
	MinJerk      MinJerkResult    `json:"minJerk"`

	SampleRate  float64 `json:"sampleRate"`
	SampleCount int     `json:"sampleCount"`
	InputMethod string  `json:"inputMethod"`
}

// InputMethodTouch reports whether the session used a touch pointer,
// which the scorer holds to looser cross-axis expectations.
func (r Results) InputMethodTouch() bool {
	return r.InputMethod == "touch"
}

// Run executes the full pipeline set over the input.
func Run(in Input) Results {
	rate := estimateRate(in.Samples)

	pulse := PulseResponse(in.Samples, in.Pulses)
	res := Results{
		TransferFn:   TransferFn(in.Samples, in.ProbeFreqs),
		CursorTremor: CursorTremor(in.Samples),
		AccelTremor:  AccelTremor(in.Accel),
		OneOverF:     OneOverF(in.Samples),
		SDNoise:      SignalDependentNoise(in.Samples),
		CrossAxis:    CrossAxis(in.Samples, in.Pulses),
		Pulse:        pulse,
		Cog:          CogInterference(in.Samples, in.Flashes, in.TrueCount, in.CogAnswer),
		MinJerk:      MinJerk(pulse),
		SampleRate:   rate,
		SampleCount:  len(in.Samples),
		InputMethod:  in.InputMethod,
	}
	return res
}

// ValidCount reports how many scoring pipelines produced features. The
// two tremor variants count once, as the scorer folds them together.
func (r Results) ValidCount() int {
	n := 0
	for _, v := range []bool{
		r.TransferFn.Valid,
		r.CursorTremor.Valid || r.AccelTremor.Valid,
		r.OneOverF.Valid,
		r.SDNoise.Valid,
		r.CrossAxis.Valid,
		r.Pulse.Valid,
		r.Cog.Valid,
		r.MinJerk.Valid,
	} {
		if v {
			n++
		}
	}
	return n
}

func estimateRate(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	span := (samples[len(samples)-1].T - samples[0].T) / 1000
	if span <= 0 {
		return 0
	}
	return float64(len(samples)-1) / span
}
