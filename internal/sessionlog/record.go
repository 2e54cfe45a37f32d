// Package sessionlog persists completed verification sessions: an
// append-only JSONL stream for downstream consumers, plus a
// best-effort sqlite archive that gives the admin surface an indexed
// single-session lookup. Neither sink is allowed to fail a request.
package sessionlog

import (
	"time"

	"clnpd/internal/scoring"
)

// Record is one completed session. It is what the JSONL consumers and
// the admin aggregator see; secrets never appear here, and the client
// IP is reduced to a keyed one-way hash.
type Record struct {
	ID           string                      `json:"id"`
	Timestamp    time.Time                   `json:"timestamp"`
	Mode         string                      `json:"mode"`
	ChallengeID  string                      `json:"challengeId"`
	InputMethod  string                      `json:"inputMethod"`
	Score        float64                     `json:"score"`
	Verdict      string                      `json:"verdict"`
	VerdictClass string                      `json:"verdictClass"`
	SubScores    map[string]scoring.SubScore `json:"subScores"`
	SampleRate   float64                     `json:"sampleRate"`
	SampleCount  int                         `json:"sampleCount"`
	ValidMetrics int                         `json:"validMetrics"`
	IPHash       string                      `json:"ipHash"`
	UserAgent    string                      `json:"userAgent"`

	// Embed-only fields.
	HoverTimeMs    float64 `json:"hoverTimeMs,omitempty"`
	UniqueElements int     `json:"uniqueElements,omitempty"`
	Plausible      *bool   `json:"plausible,omitempty"`
}
