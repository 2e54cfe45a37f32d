// Package service wires the HTTP surface: challenge issue and verify
// endpoints for both modes, health, and the admin read paths. Request
// validation order, the error taxonomy, and the single-use rules live
// here; the numerics live in analysis and scoring.
package service

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"clnpd/internal/challenge"
	"clnpd/internal/config"
	"clnpd/internal/logging"
	"clnpd/internal/scoring"
	"clnpd/internal/sessionlog"
	"clnpd/internal/signer"
)

// maxBodyBytes caps verify request bodies at 2 MiB.
const maxBodyBytes = 2 << 20

// Service is the assembled verification server.
type Service struct {
	cfg        *config.Config
	secret     []byte
	adminToken string
	store      *challenge.Store
	policy     *scoring.Policy
	writer     *sessionlog.Writer
	archive    *sessionlog.Archive
	signer     *signer.Signer
	log        *logging.Logger
	start      time.Time
}

// New assembles the service. A missing CLNP_SECRET yields an ephemeral
// per-process key (tokens die with the process); missing data sinks
// are tolerated, a configured-but-unloadable signing key is not.
func New(cfg *config.Config, log *logging.Logger) (*Service, error) {
	s := &Service{
		cfg:        cfg,
		adminToken: cfg.Security.AdminToken,
		store:      challenge.NewStore(),
		policy:     scoring.DefaultPolicy(),
		log:        log,
		start:      time.Now(),
	}

	if cfg.Security.Secret != "" {
		s.secret = []byte(cfg.Security.Secret)
	} else {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return nil, fmt.Errorf("generate ephemeral secret: %w", err)
		}
		log.Warn("CLNP_SECRET unset; using ephemeral key, tokens will not survive restart")
	}

	w, err := sessionlog.NewWriter(cfg.SessionLogPath())
	if err != nil {
		log.Error("session log unavailable", "err", err)
	} else {
		s.writer = w
	}

	a, err := sessionlog.OpenArchive(cfg.ArchivePath())
	if err != nil {
		log.Error("session archive unavailable", "err", err)
	} else {
		s.archive = a
	}

	if cfg.Signing.KeyPath != "" {
		sg, err := signer.Load(cfg.Signing.KeyPath)
		if err != nil {
			return nil, err
		}
		s.signer = sg
		log.Info("receipt co-signing enabled", "publicKey", sg.PublicKey())
	}

	return s, nil
}

// Store exposes the challenge store for the sweeper.
func (s *Service) Store() *challenge.Store {
	return s.store
}

// Close releases the data sinks.
func (s *Service) Close() {
	if s.writer != nil {
		s.writer.Close()
	}
	if s.archive != nil {
		s.archive.Close()
	}
}

// Router builds the HTTP routing table.
func (s *Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLog)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(apiHeaders)

	api.HandleFunc("/challenge", s.handleChallenge).Methods("POST", "OPTIONS")
	api.HandleFunc("/verify", s.handleVerify).Methods("POST", "OPTIONS")
	api.HandleFunc("/embed/challenge", s.handleEmbedChallenge).Methods("POST", "OPTIONS")
	api.HandleFunc("/embed/verify", s.handleEmbedVerify).Methods("POST", "OPTIONS")
	api.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")

	api.HandleFunc("/admin/stats", s.adminOnly(s.handleAdminStats)).Methods("GET", "OPTIONS")
	api.HandleFunc("/admin/sessions", s.adminOnly(s.handleAdminSessions)).Methods("GET", "OPTIONS")
	api.HandleFunc("/admin/session/{id}", s.adminOnly(s.handleAdminSession)).Methods("GET", "OPTIONS")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, errNotFound)
	})
	return r
}

// apiHeaders applies the permissive CORS policy and cache hardening on
// every API route, answering preflights directly.
func apiHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Service) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		begin := time.Now()
		next.ServeHTTP(sw, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"ms", float64(time.Since(begin).Microseconds())/1000,
		)
	})
}

// handleHealth reports liveness, uptime, and the pending challenge
// count; when co-signing is enabled, the public verification key rides
// along for relying parties.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"ok":                true,
		"uptimeSec":         int(time.Since(s.start).Seconds()),
		"pendingChallenges": s.store.Pending(),
	}
	if s.signer != nil {
		body["receiptPublicKey"] = s.signer.PublicKey()
	}
	writeJSON(w, http.StatusOK, body)
}
