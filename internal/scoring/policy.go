// Package scoring folds pipeline features into per-metric sub-scores, a
// weighted aggregate, and a three-way verdict. The weight table and
// every threshold live in a Policy that is built once at process start
// and passed by reference; none of it is ever sent to clients.
package scoring

// Policy holds the server-secret weights and thresholds.
type Policy struct {
	// Pipeline weights.
	WeightTransferFn      float64
	WeightTremor          float64
	WeightOneOverF        float64
	WeightSignalDepNoise  float64
	WeightCrossAxis       float64
	WeightPulseResponse   float64
	WeightCogInterference float64
	WeightMinJerk         float64

	// Transfer function sub-scoring.
	TransferRolloffCredit float64
	TransferDelayCredit   float64
	TransferDelayFloorMs  float64

	// Tremor sub-scoring.
	TremorFullRatio  float64
	TremorPeakBonus  float64
	TremorPeakBandLo float64
	TremorPeakBandHi float64

	// 1/f slope window.
	OneOverFSlopeLo float64
	OneOverFSlopeHi float64
	OneOverFSteep   float64

	// Signal-dependent noise.
	SDNoiseFullCorrelation float64

	// Cross-axis coupling, by pointing device.
	CrossAxisTouchIdealMax float64
	CrossAxisTouchDenom    float64
	CrossAxisIdealMax      float64
	CrossAxisDenom         float64

	// Pulse response latency range-sigmoids.
	PulseLatencyMeanLo float64
	PulseLatencyMeanHi float64
	PulseLatencySDLo   float64
	PulseLatencySDHi   float64
	PulseMeanWeight    float64
	PulseSDWeight      float64

	// Cognitive interference.
	CogFullEffect       float64
	CogAttentionFloor   float64
	CogAttentionBonus   float64
	CogAnswerBonus      float64
	CogAnswerCloseBonus float64

	// Minimum jerk.
	MinJerkFullR2 float64

	// Verdict thresholds.
	BiologicalThreshold  float64
	UncertainThreshold   float64
	EmbedVerifyThreshold float64
}

// DefaultPolicy returns the production scoring policy.
func DefaultPolicy() *Policy {
	return &Policy{
		WeightTransferFn:      3.0,
		WeightTremor:          2.5,
		WeightOneOverF:        2.0,
		WeightSignalDepNoise:  2.5,
		WeightCrossAxis:       2.0,
		WeightPulseResponse:   3.0,
		WeightCogInterference: 2.0,
		WeightMinJerk:         1.5,

		TransferRolloffCredit: 0.7,
		TransferDelayCredit:   0.15,
		TransferDelayFloorMs:  50,

		TremorFullRatio:  0.015,
		TremorPeakBonus:  0.2,
		TremorPeakBandLo: 7,
		TremorPeakBandHi: 13,

		OneOverFSlopeLo: -2.5,
		OneOverFSlopeHi: 0.0,
		OneOverFSteep:   3,

		SDNoiseFullCorrelation: 0.4,

		CrossAxisTouchIdealMax: 8,
		CrossAxisTouchDenom:    1.0,
		CrossAxisIdealMax:      2,
		CrossAxisDenom:         0.3,

		PulseLatencyMeanLo: 120,
		PulseLatencyMeanHi: 380,
		PulseLatencySDLo:   15,
		PulseLatencySDHi:   180,
		PulseMeanWeight:    0.6,
		PulseSDWeight:      0.4,

		CogFullEffect:       0.15,
		CogAttentionFloor:   0.02,
		CogAttentionBonus:   0.2,
		CogAnswerBonus:      0.1,
		CogAnswerCloseBonus: 0.15,

		MinJerkFullR2: 0.6,

		BiologicalThreshold:  0.65,
		UncertainThreshold:   0.35,
		EmbedVerifyThreshold: 0.60,
	}
}
