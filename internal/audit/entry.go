package audit

import (
	"encoding/json"
	"time"

	"github.com/ppiankov/nightaudit/internal/model"
)

// Entry is one line in the hash-chained JSONL operator log.
// All fields are plain values (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp  string          `json:"ts"`
	Session    string          `json:"session"`
	ProcessKey string          `json:"process_key"`
	Step       string          `json:"step"`
	Outcome    string          `json:"outcome"`
	AuditID    string          `json:"audit_id,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Result     json.RawMessage `json:"result,omitempty"`
	PrevHash   string          `json:"prev_hash"`
}

// entryFromRecord flattens a step record. The payload is compacted so the
// hashed line does not depend on how the caller indented it.
func entryFromRecord(rec model.StepRecord) Entry {
	e := Entry{
		Session:    rec.Session,
		ProcessKey: string(rec.ProcessKey),
		Step:       string(rec.Step),
		Outcome:    string(rec.Outcome),
		AuditID:    rec.AuditID,
		Error:      rec.Error,
		DurationMS: rec.Duration.Milliseconds(),
	}
	if !rec.StartedAt.IsZero() {
		e.Timestamp = rec.StartedAt.UTC().Format(TimestampFormat)
	}
	if len(rec.Payload) > 0 {
		if compact, err := compactJSON(rec.Payload); err == nil {
			e.Result = compact
		}
	}
	return e
}

// Time parses the entry timestamp.
func (e Entry) Time() (time.Time, error) {
	return time.Parse(TimestampFormat, e.Timestamp)
}
