// Package stats tracks per-send metrics (time to first delta, total
// latency, stream size, failures) and persists them to ~/.jz/stats.json.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonztech/jz-cli/internal/chat"
	"github.com/jonztech/jz-cli/internal/config"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// Record is a single instrumented send.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id,omitempty"`
	Subcommand   string    `json:"subcommand,omitempty"` // "chat", "ask"
	FirstDeltaMs int64     `json:"first_delta_ms"`
	LatencyMs    int64     `json:"latency_ms"`
	Chars        int       `json:"chars"`
	Deltas       int       `json:"deltas"`
	Dropped      int       `json:"dropped,omitempty"`
	Terminated   bool      `json:"terminated"`
	Document     bool      `json:"document,omitempty"`
	Developer    bool      `json:"developer,omitempty"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// FromReport builds a record from a finished send.
func FromReport(rep chat.Report, subcommand string, developer bool) Record {
	r := Record{
		SessionID:    rep.SessionID,
		Subcommand:   subcommand,
		FirstDeltaMs: rep.Stream.FirstDelta.Milliseconds(),
		LatencyMs:    rep.Latency.Milliseconds(),
		Chars:        len([]rune(rep.Stream.Text)),
		Deltas:       rep.Stream.Deltas,
		Dropped:      rep.Stream.Dropped,
		Terminated:   rep.Stream.Terminated,
		Document:     rep.Document != nil,
		Developer:    developer,
		Success:      rep.Err == nil,
	}
	if rep.Err != nil {
		r.Error = rep.Err.Error()
	}
	return r
}

// Summary is the aggregated stats dashboard.
type Summary struct {
	TotalSends      int            `json:"total_sends"`
	SuccessRate     float64        `json:"success_rate"`
	AvgFirstDeltaMs int64          `json:"avg_first_delta_ms"`
	AvgLatencyMs    int64          `json:"avg_latency_ms"`
	TotalChars      int            `json:"total_chars"`
	TotalDropped    int            `json:"total_dropped"`
	Unterminated    int            `json:"unterminated"`
	Documents       int            `json:"documents"`
	DeveloperSends  int            `json:"developer_sends"`
	Sessions        int            `json:"sessions"`
	SubcmdBreakdown map[string]int `json:"subcmd_breakdown"`
	TopErrors       []ErrorCount   `json:"top_errors"`
	TodayCount      int            `json:"today_count"`
	ThisWeekCount   int            `json:"this_week_count"`
}

// ErrorCount pairs a failure message with how often it happened.
type ErrorCount struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	records, _ := loadAll()
	records = append(records, r)
	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(), data, 0o600)
}

// LoadAll returns all stored records.
func LoadAll() ([]Record, error) {
	fileMu.Lock()
	defer fileMu.Unlock()
	return loadAll()
}

func loadAll() ([]Record, error) {
	data, err := os.ReadFile(statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize computes aggregated stats from all records.
func Summarize() (*Summary, error) {
	records, err := LoadAll()
	if err != nil {
		return nil, err
	}
	return summarize(records, time.Now()), nil
}

func summarize(records []Record, now time.Time) *Summary {
	s := &Summary{SubcmdBreakdown: map[string]int{}}
	if len(records) == 0 {
		return s
	}
	s.TotalSends = len(records)

	var totalFirst, totalLatency int64
	var firstCount, successCount int
	errFreq := map[string]int{}
	sessions := map[string]struct{}{}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		if r.Success {
			successCount++
		} else if r.Error != "" {
			errFreq[r.Error]++
		}
		if r.FirstDeltaMs > 0 {
			totalFirst += r.FirstDeltaMs
			firstCount++
		}
		totalLatency += r.LatencyMs
		s.TotalChars += r.Chars
		s.TotalDropped += r.Dropped
		if r.Success && !r.Terminated {
			s.Unterminated++
		}
		if r.Document {
			s.Documents++
		}
		if r.Developer {
			s.DeveloperSends++
		}
		if r.SessionID != "" {
			sessions[r.SessionID] = struct{}{}
		}
		if r.Subcommand != "" {
			s.SubcmdBreakdown[r.Subcommand]++
		}
		if !r.Timestamp.Before(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	s.SuccessRate = float64(successCount) / float64(len(records)) * 100
	s.AvgLatencyMs = totalLatency / int64(len(records))
	if firstCount > 0 {
		s.AvgFirstDeltaMs = totalFirst / int64(firstCount)
	}
	s.Sessions = len(sessions)
	s.TopErrors = topN(errFreq, 5)
	return s
}

func topN(freq map[string]int, n int) []ErrorCount {
	all := make([]ErrorCount, 0, len(freq))
	for msg, count := range freq {
		all = append(all, ErrorCount{Error: msg, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Error < all[j].Error
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
