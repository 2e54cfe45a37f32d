// Package challenge generates and stores verification challenges.
//
// A challenge is a server-only record of the randomized task parameters a
// client is asked to perform against: the Lissajous path, the sinusoidal
// probe set, the pulse schedule, and (standalone only) the cognitive flash
// schedule. The server keeps the full record; clients receive only the
// subset needed to render the task. Challenges are single-use with a TTL
// and are evicted by a background sweeper.
package challenge

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Mode distinguishes the full-page task from the embedded variant.
type Mode string

const (
	// ModeStandalone is the full-page tracking task.
	ModeStandalone Mode = "standalone"
	// ModeEmbed is the sub-perceptual variant driven by hover time.
	ModeEmbed Mode = "embed"
)

// Probe is one sinusoidal perturbation component used for
// transfer-function identification.
type Probe struct {
	Freq        float64 `json:"freq"`
	AmpX        float64 `json:"ampX"`
	AmpY        float64 `json:"ampY"`
	PhaseOffset float64 `json:"phaseOffset"`
}

// Pulse is a brief rectangular target displacement with a quadratic
// ease-out return. Standalone pulses are scheduled on wall time since
// trackingStart; embed pulses on cumulative hover time.
type Pulse struct {
	OffsetMs    float64 `json:"offsetMs,omitempty"`
	HoverTimeMs float64 `json:"hoverTimeMs,omitempty"`
	AmpX        float64 `json:"ampX"`
	AmpY        float64 `json:"ampY"`
	HoldMs      float64 `json:"holdMs"`
	ReturnMs    float64 `json:"returnMs"`
}

// Path is the smooth Lissajous path the standalone target follows.
type Path struct {
	FreqX   float64 `json:"freqX"`
	FreqY   float64 `json:"freqY"`
	Phase   float64 `json:"phase"`
	Padding float64 `json:"padding"`
}

// Flash is one cognitive-task color flash.
type Flash struct {
	TimeMs   float64 `json:"timeMs"`
	Color    string  `json:"color"`
	IsTarget bool    `json:"isTarget"`
}

// CogTask is the dual-task flash-counting schedule.
type CogTask struct {
	TargetColor string   `json:"targetColor"`
	TargetCount int      `json:"targetCount"`
	Colors      []string `json:"colors"`
	Flashes     []Flash  `json:"flashes"`
}

// Challenge is the full server-side challenge record.
type Challenge struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
	UsedAt    time.Time `json:"usedAt,omitempty"`

	FreeMoveDurationMs float64 `json:"freeMoveDurationMs,omitempty"`
	TrackingDurationMs float64 `json:"trackingDurationMs,omitempty"`
	DualTaskDurationMs float64 `json:"dualTaskDurationMs,omitempty"`

	Path   Path     `json:"path,omitempty"`
	Probes []Probe  `json:"probes"`
	Pulses []Pulse  `json:"pulses"`
	Cog    *CogTask `json:"cog,omitempty"`
}

// ClientView is the public subset of a challenge. Scoring thresholds,
// weights, the target count, and per-flash target flags never leave the
// server.
type ClientView struct {
	Mode               Mode           `json:"mode"`
	FreeMoveDurationMs float64        `json:"freeMoveDurationMs,omitempty"`
	TrackingDurationMs float64        `json:"trackingDurationMs,omitempty"`
	DualTaskDurationMs float64        `json:"dualTaskDurationMs,omitempty"`
	Path               *Path          `json:"path,omitempty"`
	Probes             []Probe        `json:"probes"`
	Pulses             []Pulse        `json:"pulses"`
	Cog                *CogClientView `json:"cog,omitempty"`
}

// CogClientView carries the flash schedule without target annotations.
type CogClientView struct {
	TargetColor string        `json:"targetColor"`
	Colors      []string      `json:"colors"`
	Flashes     []ClientFlash `json:"flashes"`
}

// ClientFlash is a flash stripped of its isTarget flag.
type ClientFlash struct {
	TimeMs float64 `json:"timeMs"`
	Color  string  `json:"color"`
}

// View returns the client-visible subset of the challenge.
func (c *Challenge) View() ClientView {
	v := ClientView{
		Mode:               c.Mode,
		FreeMoveDurationMs: c.FreeMoveDurationMs,
		TrackingDurationMs: c.TrackingDurationMs,
		DualTaskDurationMs: c.DualTaskDurationMs,
		Probes:             append([]Probe(nil), c.Probes...),
		Pulses:             append([]Pulse(nil), c.Pulses...),
	}
	if c.Mode == ModeStandalone {
		p := c.Path
		v.Path = &p
	}
	if c.Cog != nil {
		cv := &CogClientView{
			TargetColor: c.Cog.TargetColor,
			Colors:      append([]string(nil), c.Cog.Colors...),
		}
		for _, f := range c.Cog.Flashes {
			cv.Flashes = append(cv.Flashes, ClientFlash{TimeMs: f.TimeMs, Color: f.Color})
		}
		v.Cog = cv
	}
	return v
}

// newID returns a 128-bit hex challenge id from the system CSPRNG.
func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("challenge: csprng unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
