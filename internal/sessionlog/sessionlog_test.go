package sessionlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clnpd/internal/scoring"
)

func testRecord(id string) *Record {
	return &Record{
		ID:           id,
		Timestamp:    time.Now().UTC(),
		Mode:         "standalone",
		ChallengeID:  "c-" + id,
		InputMethod:  "mouse",
		Score:        0.82,
		Verdict:      scoring.VerdictBiological,
		VerdictClass: scoring.ClassBiological,
		SubScores: map[string]scoring.SubScore{
			"tremor": {Score: 0.9, Weight: 2.5, Valid: true},
		},
		SampleRate:   81.5,
		SampleCount:  1620,
		ValidMetrics: 7,
		IPHash:       "a1b2c3d4e5f60718",
		UserAgent:    "test-agent",
	}
}

func TestWriterAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for _, id := range []string{"one", "two", "three"} {
		if err := w.Append(testRecord(id)); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	if len(ids) != 3 || ids[0] != "one" || ids[2] != "three" {
		t.Errorf("ids = %v", ids)
	}
}

func TestWriterSurvivesRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Append(testRecord("before")); err != nil {
		t.Fatal(err)
	}

	// External rotation: rename the live file away.
	if err := os.Rename(path, filepath.Join(dir, "sessions.jsonl.1")); err != nil {
		t.Fatal(err)
	}

	// Give the watcher a moment to reopen, then keep appending.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := w.Append(testRecord("after")); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("writer did not recover from rotation")
		}
		time.Sleep(20 * time.Millisecond)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("no records landed in the reopened file")
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	a, err := OpenArchive(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	rec := testRecord("arch-1")
	if err := a.Insert(rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := a.Get("arch-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("record not found")
	}
	if got.ChallengeID != rec.ChallengeID || got.Score != rec.Score {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.SubScores["tremor"].Score != 0.9 {
		t.Errorf("sub-scores lost: %+v", got.SubScores)
	}

	missing, err := a.Get("absent")
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if missing != nil {
		t.Error("absent id returned a record")
	}
}
