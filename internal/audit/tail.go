package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/nightaudit/internal/model"
)

// Filter selects entries for Read. Zero fields do not filter.
type Filter struct {
	ProcessKey string
	Session    string
	From       time.Time
	To         time.Time
	Limit      int // keep only the last Limit matches
}

// Summary counts outcomes across a set of entries.
type Summary struct {
	Total          int    `json:"total"`
	Succeeded      int    `json:"succeeded"`
	Failed         int    `json:"failed"`
	Rejected       int    `json:"rejected"`
	Stale          int    `json:"stale"`
	FirstTimestamp string `json:"first_timestamp,omitempty"`
	LastTimestamp  string `json:"last_timestamp,omitempty"`
}

// Result holds filtered entries and their summary.
type Result struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Read returns the entries of the log at path that match filter.
// Malformed lines are skipped; use Verify to detect them.
func Read(path string, filter Filter) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := newScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if !filter.match(entry) {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[len(entries)-filter.Limit:]
	}
	res := &Result{Entries: entries}
	for _, e := range entries {
		res.Summary.add(e)
	}
	return res, nil
}

func (f Filter) match(e Entry) bool {
	if f.ProcessKey != "" && e.ProcessKey != f.ProcessKey {
		return false
	}
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		ts, err := e.Time()
		if err != nil {
			return false
		}
		if !f.From.IsZero() && ts.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && ts.After(f.To) {
			return false
		}
	}
	return true
}

func (s *Summary) add(e Entry) {
	s.Total++
	switch model.Outcome(e.Outcome) {
	case model.OutcomeSucceeded:
		s.Succeeded++
	case model.OutcomeFailed:
		s.Failed++
	case model.OutcomeRejected:
		s.Rejected++
	case model.OutcomeStale:
		s.Stale++
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
