package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and display format of a ProcessKey.
const DateLayout = "2006-01-02"

// ProcessKey identifies one audit cycle: the calendar date being closed.
// All step calls for a cycle are correlated by it.
type ProcessKey string

// ParseProcessKey validates s as a YYYY-MM-DD date.
func ParseProcessKey(s string) (ProcessKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("audit date is required")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid audit date %q: expected YYYY-MM-DD", s)
	}
	return ProcessKey(t.Format(DateLayout)), nil
}

// KeyFor returns the ProcessKey for the calendar date of t in t's location.
func KeyFor(t time.Time) ProcessKey {
	return ProcessKey(t.Format(DateLayout))
}

// Today returns the ProcessKey for the current local date.
func Today() ProcessKey {
	return KeyFor(time.Now())
}

// Time returns the date as midnight UTC.
func (k ProcessKey) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(k))
}

func (k ProcessKey) String() string { return string(k) }
