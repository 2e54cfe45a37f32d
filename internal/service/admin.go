package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"clnpd/internal/admin"
)

// adminOnly wraps a handler with bearer-token authentication. The
// token may arrive as "Authorization: Bearer <t>" or "?token=<t>".
// Comparison is constant-time over fixed-length digests so neither
// content nor length leaks.
func (s *Service) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, errAdminNotConfigured)
			return
		}

		presented := r.URL.Query().Get("token")
		if presented == "" {
			auth := r.Header.Get("Authorization")
			presented = strings.TrimPrefix(auth, "Bearer ")
			if presented == auth {
				presented = ""
			}
		}
		if presented == "" {
			writeError(w, errMissingToken)
			return
		}

		want := sha256.Sum256([]byte(s.adminToken))
		got := sha256.Sum256([]byte(presented))
		if subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
			writeError(w, errInvalidToken)
			return
		}
		next(w, r)
	}
}

// openLog opens the session log for streaming; a missing file reads as
// an empty log.
func (s *Service) openLog() (*os.File, bool) {
	if s.writer == nil {
		return nil, false
	}
	f, err := os.Open(s.writer.Path())
	if err != nil {
		return nil, false
	}
	return f, true
}

func (s *Service) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	f, ok := s.openLog()
	if !ok {
		writeJSON(w, http.StatusOK, admin.ComputeStats(strings.NewReader(""), time.Now().UTC()))
		return
	}
	defer f.Close()
	writeJSON(w, http.StatusOK, admin.ComputeStats(f, time.Now().UTC()))
}

func (s *Service) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var rows []admin.SessionRow
	total := 0
	if f, ok := s.openLog(); ok {
		defer f.Close()
		rows, total = admin.ListSessions(f, limit, offset)
	} else {
		rows = []admin.SessionRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"sessions": rows,
	})
}

func (s *Service) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// The sqlite archive is the indexed path; the JSONL scan covers
	// records that predate the archive or missed an insert.
	if s.archive != nil {
		if rec, err := s.archive.Get(id); err == nil && rec != nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session": rec})
			return
		}
	}
	if f, ok := s.openLog(); ok {
		defer f.Close()
		if rec := admin.FindSession(f, id); rec != nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session": rec})
			return
		}
	}
	writeError(w, errSessionNotFound)
}
