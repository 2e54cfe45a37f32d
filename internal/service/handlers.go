package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"clnpd/internal/analysis"
	"clnpd/internal/challenge"
	"clnpd/internal/scoring"
	"clnpd/internal/sessionlog"
	"clnpd/internal/token"
)

// tokenPayload binds a signed token to one challenge.
type tokenPayload struct {
	ChallengeID string `json:"challengeId"`
	Mode        string `json:"mode"`
}

// receiptPayload is the signed verdict assertion.
type receiptPayload struct {
	ChallengeID string  `json:"challengeId"`
	Mode        string  `json:"mode,omitempty"`
	Verified    bool    `json:"verified"`
	Score       float64 `json:"score"`
	Verdict     string  `json:"verdict"`
	VerifiedAt  int64   `json:"verifiedAt"`
}

func (s *Service) issueChallenge(w http.ResponseWriter, ch *challenge.Challenge) {
	s.store.Put(ch)

	payload, _ := json.Marshal(tokenPayload{ChallengeID: ch.ID, Mode: string(ch.Mode)})
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"token":     token.Sign(s.secret, payload),
		"challenge": ch.View(),
	})
}

func (s *Service) handleChallenge(w http.ResponseWriter, r *http.Request) {
	s.issueChallenge(w, challenge.NewStandalone(s.cfg.TTL()))
}

func (s *Service) handleEmbedChallenge(w http.ResponseWriter, r *http.Request) {
	s.issueChallenge(w, challenge.NewEmbed(s.cfg.EmbedTTL()))
}

// readBody enforces the 2 MiB cap. A false return means the error has
// been written.
func (s *Service) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, errBodyTooLarge)
		} else {
			writeError(w, errInvalidJSON)
		}
		return nil, false
	}
	return body, true
}

// authChallenge verifies the token signature and locates the
// challenge, enforcing the validation order: signature, existence,
// mode. Nothing here consumes the challenge.
func (s *Service) authChallenge(w http.ResponseWriter, tok string, mode challenge.Mode) (*challenge.Challenge, bool) {
	payload, ok := token.Verify(s.secret, tok)
	if !ok {
		writeError(w, errInvalidToken)
		return nil, false
	}
	var tp tokenPayload
	if err := json.Unmarshal(payload, &tp); err != nil || tp.ChallengeID == "" {
		writeError(w, errInvalidToken)
		return nil, false
	}

	ch, ok := s.store.Get(tp.ChallengeID)
	if !ok {
		writeError(w, errChallengeNotFound)
		return nil, false
	}
	if ch.Mode != mode || tp.Mode != string(mode) {
		writeError(w, errWrongMode)
		return nil, false
	}
	return ch, true
}

// acquireUsable maps used/expired states onto the error taxonomy. An
// expired challenge is consumed by this check (lazy expiry).
func (s *Service) acquireUsable(w http.ResponseWriter, id string, now time.Time) bool {
	_, err := s.store.Acquire(id, now)
	switch {
	case err == nil:
		return true
	case errors.Is(err, challenge.ErrAlreadyUsed):
		writeError(w, errAlreadyUsed)
	case errors.Is(err, challenge.ErrExpired):
		writeError(w, errExpired)
	default:
		writeError(w, errChallengeNotFound)
	}
	return false
}

// consume flips the used flag before analysis runs, so a concurrent or
// later retry always sees 409 even if analysis fails afterwards.
func (s *Service) consume(w http.ResponseWriter, id string, now time.Time) bool {
	err := s.store.Consume(id, now)
	switch {
	case err == nil:
		return true
	case errors.Is(err, challenge.ErrAlreadyUsed):
		writeError(w, errAlreadyUsed)
	case errors.Is(err, challenge.ErrExpired):
		writeError(w, errExpired)
	default:
		writeError(w, errChallengeNotFound)
	}
	return false
}

// runAnalysis guards the pipeline set against unexpected panics; a
// failed analysis is a one-shot charge on an already-consumed
// challenge.
func runAnalysis(in analysis.Input) (res analysis.Results, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panic: %v", r)
		}
	}()
	return analysis.Run(in), nil
}

// receipt signs the verdict assertion; the Ed25519 co-signature is
// attached when a signing key is configured.
func (s *Service) receipt(ch *challenge.Challenge, verified bool, out scoring.Outcome, includeMode bool) (string, string) {
	rp := receiptPayload{
		ChallengeID: ch.ID,
		Verified:    verified,
		Score:       out.Overall,
		Verdict:     out.Verdict,
		VerifiedAt:  time.Now().UnixMilli(),
	}
	if includeMode {
		rp.Mode = string(ch.Mode)
	}
	payload, _ := json.Marshal(rp)
	sig := ""
	if s.signer != nil {
		sig = s.signer.Sign(payload)
	}
	return token.Sign(s.secret, payload), sig
}

// persist appends the session record to the JSONL log and the sqlite
// archive. Both are best-effort: failures are logged and swallowed.
func (s *Service) persist(rec *sessionlog.Record) {
	if s.writer != nil {
		if err := s.writer.Append(rec); err != nil {
			s.log.Warn("session log append failed", "err", err)
		}
	}
	if s.archive != nil {
		if err := s.archive.Insert(rec); err != nil {
			s.log.Warn("session archive insert failed", "err", err)
		}
	}
}

func (s *Service) baseRecord(r *http.Request, ch *challenge.Challenge, inputMethod string, res analysis.Results, out scoring.Outcome) *sessionlog.Record {
	method := inputMethod
	if method == "" {
		method = "unknown"
	}
	return &sessionlog.Record{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		Mode:         string(ch.Mode),
		ChallengeID:  ch.ID,
		InputMethod:  method,
		Score:        out.Overall,
		Verdict:      out.Verdict,
		VerdictClass: out.VerdictClass,
		SubScores:    out.SubScores,
		SampleRate:   res.SampleRate,
		SampleCount:  res.SampleCount,
		ValidMetrics: out.ValidMetrics,
		IPHash:       ipHash(s.secret, clientIP(r)),
		UserAgent:    r.UserAgent(),
	}
}

func (s *Service) handleVerify(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var req standaloneRequest
	if !decodeBody(body, standaloneSchema, &req) {
		writeError(w, errInvalidJSON)
		return
	}

	ch, ok := s.authChallenge(w, req.Token, challenge.ModeStandalone)
	if !ok {
		return
	}
	now := time.Now()
	if !s.acquireUsable(w, ch.ID, now) {
		return
	}

	// Shape failures surface without consuming the challenge.
	if len(req.Pointer) < minPointerStandalone {
		writeError(w, errInsufficientData)
		return
	}
	if req.Phases == nil {
		writeError(w, errMissingPhases)
		return
	}
	if req.Canvas == nil || req.Canvas.Width <= 0 || req.Canvas.Height <= 0 {
		writeError(w, errMissingCanvas)
		return
	}

	if !s.consume(w, ch.ID, now) {
		return
	}

	res, err := runAnalysis(buildStandaloneInput(ch, &req))
	if err != nil {
		s.log.Error("analysis failed", "challengeId", ch.ID, "err", err)
		writeError(w, errAnalysisFailed, "consumed", true)
		return
	}
	out := scoring.Score(s.policy, res)

	rec := s.baseRecord(r, ch, req.InputMethod, res, out)
	s.persist(rec)

	receipt, sig := s.receipt(ch, out.VerdictClass == scoring.ClassBiological, out, false)
	resp := map[string]any{
		"ok":           true,
		"sessionId":    rec.ID,
		"verdict":      out.Verdict,
		"verdictClass": out.VerdictClass,
		"score":        out.Overall,
		"validMetrics": out.ValidMetrics,
		"sampleRate":   res.SampleRate,
		"sampleCount":  res.SampleCount,
		"receipt":      receipt,
	}
	if sig != "" {
		resp["receiptSig"] = sig
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleEmbedVerify(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var req embedRequest
	if !decodeBody(body, embedSchema, &req) {
		writeError(w, errInvalidJSON)
		return
	}

	ch, ok := s.authChallenge(w, req.Token, challenge.ModeEmbed)
	if !ok {
		return
	}
	now := time.Now()
	if !s.acquireUsable(w, ch.ID, now) {
		return
	}

	if len(req.Pointer) < minPointerEmbed {
		writeError(w, errInsufficientData)
		return
	}
	if len(req.Elements) == 0 {
		writeError(w, errMissingElements)
		return
	}

	if !s.consume(w, ch.ID, now) {
		return
	}

	in, metrics := buildEmbedInput(ch, &req)
	res, err := runAnalysis(in)
	if err != nil {
		s.log.Error("analysis failed", "challengeId", ch.ID, "err", err)
		writeError(w, errAnalysisFailed, "consumed", true)
		return
	}
	out := scoring.Score(s.policy, res)
	verified := s.policy.EmbedVerified(out.Overall) && metrics.Plausible

	rec := s.baseRecord(r, ch, req.InputMethod, res, out)
	rec.HoverTimeMs = metrics.TotalHoverMs
	rec.UniqueElements = metrics.UniqueElements
	plausible := metrics.Plausible
	rec.Plausible = &plausible
	s.persist(rec)

	receipt, sig := s.receipt(ch, verified, out, true)
	resp := map[string]any{
		"ok":             true,
		"sessionId":      rec.ID,
		"verified":       verified,
		"verdict":        out.Verdict,
		"verdictClass":   out.VerdictClass,
		"score":          out.Overall,
		"validMetrics":   out.ValidMetrics,
		"plausible":      metrics.Plausible,
		"uniqueElements": metrics.UniqueElements,
		"hoverTimeMs":    metrics.TotalHoverMs,
		"receipt":        receipt,
	}
	if sig != "" {
		resp["receiptSig"] = sig
	}
	writeJSON(w, http.StatusOK, resp)
}
