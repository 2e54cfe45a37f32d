// Package admin computes operator-facing aggregates by streaming the
// JSONL session log. Malformed lines are skipped, never fatal: the log
// is append-only and an interrupted write must not poison the stats.
package admin

import (
	"bufio"
	"encoding/json"
	"io"
	"sort"
	"time"

	"clnpd/internal/sessionlog"
)

// dayWindow is how many day buckets the stats histogram keeps.
const dayWindow = 30

// Stats is the aggregate view over all logged sessions.
type Stats struct {
	Total    int `json:"total"`
	Today    int `json:"today"`
	LastHour int `json:"lastHour"`

	ByDay     map[string]int `json:"byDay"`
	ByDevice  map[string]int `json:"byDevice"`
	ByVerdict map[string]int `json:"byVerdict"`
	ByMode    map[string]int `json:"byMode"`

	ScoreHistogram [10]int `json:"scoreHistogram"`

	// MetricAverages maps device type -> metric -> mean sub-score.
	MetricAverages map[string]map[string]float64 `json:"metricAverages"`
}

// SessionRow is the lightweight listing row.
type SessionRow struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Mode         string    `json:"mode"`
	InputMethod  string    `json:"inputMethod"`
	VerdictClass string    `json:"verdictClass"`
	Score        float64   `json:"score"`
}

// forEachRecord streams records off the log, skipping malformed lines.
func forEachRecord(r io.Reader, fn func(*sessionlog.Record)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec sessionlog.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		fn(&rec)
	}
}

// ComputeStats aggregates the whole log relative to now.
func ComputeStats(r io.Reader, now time.Time) Stats {
	stats := Stats{
		ByDay:          make(map[string]int),
		ByDevice:       make(map[string]int),
		ByVerdict:      make(map[string]int),
		ByMode:         make(map[string]int),
		MetricAverages: make(map[string]map[string]float64),
	}

	type sums struct {
		total map[string]float64
		count map[string]int
	}
	perDevice := make(map[string]*sums)

	today := now.Format("2006-01-02")
	hourAgo := now.Add(-time.Hour)
	dayFloor := now.AddDate(0, 0, -dayWindow)

	forEachRecord(r, func(rec *sessionlog.Record) {
		stats.Total++
		day := rec.Timestamp.Format("2006-01-02")
		if day == today {
			stats.Today++
		}
		if rec.Timestamp.After(hourAgo) {
			stats.LastHour++
		}
		if rec.Timestamp.After(dayFloor) {
			stats.ByDay[day]++
		}

		device := rec.InputMethod
		if device == "" {
			device = "unknown"
		}
		stats.ByDevice[device]++
		stats.ByVerdict[rec.VerdictClass]++
		stats.ByMode[rec.Mode]++

		bucket := int(rec.Score * 10)
		if bucket > 9 {
			bucket = 9
		}
		if bucket < 0 {
			bucket = 0
		}
		stats.ScoreHistogram[bucket]++

		agg, ok := perDevice[device]
		if !ok {
			agg = &sums{total: make(map[string]float64), count: make(map[string]int)}
			perDevice[device] = agg
		}
		for metric, sub := range rec.SubScores {
			if !sub.Valid {
				continue
			}
			agg.total[metric] += sub.Score
			agg.count[metric]++
		}
	})

	for device, agg := range perDevice {
		avgs := make(map[string]float64, len(agg.total))
		for metric, total := range agg.total {
			avgs[metric] = total / float64(agg.count[metric])
		}
		stats.MetricAverages[device] = avgs
	}
	return stats
}

// ListSessions returns the newest-first page [offset, offset+limit)
// plus the total session count.
func ListSessions(r io.Reader, limit, offset int) ([]SessionRow, int) {
	var rows []SessionRow
	forEachRecord(r, func(rec *sessionlog.Record) {
		rows = append(rows, SessionRow{
			ID:           rec.ID,
			Timestamp:    rec.Timestamp,
			Mode:         rec.Mode,
			InputMethod:  rec.InputMethod,
			VerdictClass: rec.VerdictClass,
			Score:        rec.Score,
		})
	})
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp.After(rows[j].Timestamp)
	})

	total := len(rows)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []SessionRow{}, total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return rows[offset:end], total
}

// FindSession scans the log for a session id. Returns nil when absent.
func FindSession(r io.Reader, id string) *sessionlog.Record {
	var found *sessionlog.Record
	forEachRecord(r, func(rec *sessionlog.Record) {
		if rec.ID == id {
			cp := *rec
			found = &cp
		}
	})
	return found
}
