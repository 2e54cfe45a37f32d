package challenge

import (
	"math"
	"math/rand/v2"
	"time"
)

// FreqPool is the curated probe frequency pool in Hz. Every entry is a
// prime divided by 20, so no pair of entries is harmonically related.
var FreqPool = []float64{
	0.10, 0.15, 0.25, 0.35, 0.55, 0.65, 0.85, 0.95, 1.15,
	1.45, 1.55, 1.85, 2.05, 2.15, 2.35, 2.65, 2.95, 3.05,
}

// PathPairs are the Lissajous frequency pairs the standalone path is
// drawn from; ratios are small rationals (2:3 through 5:7).
var PathPairs = [][2]float64{
	{0.10, 0.15},
	{0.15, 0.20},
	{0.15, 0.25},
	{0.20, 0.25},
	{0.25, 0.30},
	{0.20, 0.35},
	{0.25, 0.35},
}

// CogColors are the flash colors used by the dual task.
var CogColors = []string{"#e74c3c", "#3498db", "#2ecc71"}

// Schedule and perturbation constants.
const (
	FreeMoveDurationMs = 5000
	PathPadding        = 0.30

	pulseMinGapMs      = 2800
	embedHoverSpanMs   = 10000
	embedPulseMinGapMs = 1200

	probeCount = 5
	flashCount = 8
)

// uniform returns a draw from [lo, hi).
func uniform(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

// intUniform returns an integer draw from [lo, hi] inclusive.
func intUniform(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

// pickProbes uniform-shuffles the pool, takes the first five, and sorts
// them ascending.
func pickProbes(ampXLo, ampXHi, ampYLo, ampYHi float64, integerAmps bool) []Probe {
	pool := append([]float64(nil), FreqPool...)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	freqs := pool[:probeCount]
	for i := 1; i < len(freqs); i++ {
		for j := i; j > 0 && freqs[j] < freqs[j-1]; j-- {
			freqs[j], freqs[j-1] = freqs[j-1], freqs[j]
		}
	}

	probes := make([]Probe, probeCount)
	for i, f := range freqs {
		var ax, ay float64
		if integerAmps {
			ax = float64(intUniform(int(ampXLo), int(ampXHi)))
			ay = float64(intUniform(int(ampYLo), int(ampYHi)))
		} else {
			ax = uniform(ampXLo, ampXHi)
			ay = uniform(ampYLo, ampYHi)
		}
		probes[i] = Probe{
			Freq:        f,
			AmpX:        ax,
			AmpY:        ay,
			PhaseOffset: math.Pi/3 + uniform(-0.3, 0.3),
		}
	}
	return probes
}

// schedulePulses partitions [minGap, span) into pulseCount buckets and
// places one pulse in the first 60% of each, keeping offsets monotonic
// with jitter.
func schedulePulses(count int, minGap, span float64) []float64 {
	bucket := (span - minGap) / float64(count)
	offsets := make([]float64, count)
	for i := range offsets {
		offsets[i] = minGap + float64(i)*bucket + uniform(0, 0.6*bucket)
	}
	return offsets
}

// pulseSign is negative for every third pulse.
func pulseSign(i int) float64 {
	if i%3 == 2 {
		return -1
	}
	return 1
}

// NewStandalone draws a fresh standalone challenge. The id comes from
// the CSPRNG; task parameters use the process PRNG.
func NewStandalone(ttl time.Duration) *Challenge {
	now := time.Now().UTC()
	c := &Challenge{
		ID:                 newID(),
		Mode:               ModeStandalone,
		IssuedAt:           now,
		ExpiresAt:          now.Add(ttl),
		FreeMoveDurationMs: FreeMoveDurationMs,
		TrackingDurationMs: uniform(18000, 22000),
		DualTaskDurationMs: uniform(10000, 14000),
	}

	pair := PathPairs[rand.IntN(len(PathPairs))]
	c.Path = Path{
		FreqX:   pair[0],
		FreqY:   pair[1],
		Phase:   math.Pi/4 + uniform(-0.5, 0.5),
		Padding: PathPadding,
	}

	c.Probes = pickProbes(3, 7, 1, 3, true)

	pulseCount := intUniform(4, 7)
	for i, off := range schedulePulses(pulseCount, pulseMinGapMs, c.TrackingDurationMs) {
		c.Pulses = append(c.Pulses, Pulse{
			OffsetMs: off,
			AmpX:     pulseSign(i) * float64(intUniform(18, 26)),
			HoldMs:   uniform(500, 700),
			ReturnMs: 200,
		})
	}

	c.Cog = newCogTask(c.DualTaskDurationMs)
	return c
}

// NewEmbed draws an embedded-mode challenge: sub-perceptual probe
// amplitudes, hover-time-indexed pulses, and no cognitive task. Callers
// pass the embed TTL (twice the standalone TTL).
func NewEmbed(ttl time.Duration) *Challenge {
	now := time.Now().UTC()
	c := &Challenge{
		ID:        newID(),
		Mode:      ModeEmbed,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	c.Probes = pickProbes(0.15, 0.35, 0.05, 0.15, false)

	pulseCount := intUniform(4, 5)
	for i, off := range schedulePulses(pulseCount, embedPulseMinGapMs, embedHoverSpanMs) {
		c.Pulses = append(c.Pulses, Pulse{
			HoverTimeMs: off,
			AmpX:        pulseSign(i) * uniform(1.0, 2.0),
			HoldMs:      uniform(400, 600),
			ReturnMs:    150,
		})
	}
	return c
}

// newCogTask places targetCount target-color flashes plus distractors to
// a total of eight, shuffled, each timestamped at cogGap*(i+1) with
// ±15% jitter where cogGap = dualTaskDuration/9.
func newCogTask(dualTaskMs float64) *CogTask {
	target := CogColors[rand.IntN(len(CogColors))]
	var distractors []string
	for _, col := range CogColors {
		if col != target {
			distractors = append(distractors, col)
		}
	}

	targetCount := intUniform(2, 5)
	flashes := make([]Flash, 0, flashCount)
	for i := 0; i < targetCount; i++ {
		flashes = append(flashes, Flash{Color: target, IsTarget: true})
	}
	for i := targetCount; i < flashCount; i++ {
		flashes = append(flashes, Flash{Color: distractors[rand.IntN(len(distractors))]})
	}

	// Fisher-Yates
	for i := len(flashes) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		flashes[i], flashes[j] = flashes[j], flashes[i]
	}

	cogGap := dualTaskMs / 9
	for i := range flashes {
		flashes[i].TimeMs = cogGap*float64(i+1) + uniform(-0.15*cogGap, 0.15*cogGap)
	}

	return &CogTask{
		TargetColor: target,
		TargetCount: targetCount,
		Colors:      append([]string(nil), CogColors...),
		Flashes:     flashes,
	}
}
