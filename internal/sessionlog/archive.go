package sessionlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Archive schema: a thin index over the JSONL stream. The full record
// rides along as JSON so lookups need no joins.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    created_at    INTEGER NOT NULL,
    mode          TEXT NOT NULL,
    challenge_id  TEXT NOT NULL,
    input_method  TEXT,
    verdict_class TEXT NOT NULL,
    score         REAL NOT NULL,
    record        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
CREATE INDEX IF NOT EXISTS idx_sessions_challenge ON sessions(challenge_id);
`

// Archive is the sqlite session index. It is strictly secondary: every
// method failure is reported to the caller for logging and otherwise
// ignored.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens or creates the sqlite archive at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Insert indexes one session record.
func (a *Archive) Insert(rec *Record) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = a.db.Exec(
		`INSERT OR REPLACE INTO sessions
		 (id, created_at, mode, challenge_id, input_method, verdict_class, score, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixMilli(), rec.Mode, rec.ChallengeID,
		rec.InputMethod, rec.VerdictClass, rec.Score, string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get returns the archived record for a session id, or (nil, nil) when
// it is not indexed.
func (a *Archive) Get(id string) (*Record, error) {
	var blob string
	err := a.db.QueryRow(`SELECT record FROM sessions WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}
