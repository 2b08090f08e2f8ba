package workflow

import "github.com/ppiankov/nightaudit/internal/model"

// Results holds the last successful result of each step for the current
// ProcessKey. Failed calls never touch it.
type Results struct {
	Start       *model.StartResult       `json:"start,omitempty"`
	AutoPosting *model.AutoPostingResult `json:"auto_posting,omitempty"`
	NoShow      *model.NoShowResult      `json:"no_show,omitempty"`
	EndOfDay    *model.EndOfDayResult    `json:"end_of_day,omitempty"`
}

func (r *Results) put(res model.StepResult) {
	switch v := res.(type) {
	case model.StartResult:
		r.Start = &v
	case model.AutoPostingResult:
		r.AutoPosting = &v
	case model.NoShowResult:
		r.NoShow = &v
	case model.EndOfDayResult:
		r.EndOfDay = &v
	}
}

// Get returns the stored result for step.
func (r Results) Get(step model.StepName) (model.StepResult, bool) {
	switch step {
	case model.StepStart:
		if r.Start != nil {
			return *r.Start, true
		}
	case model.StepAutoPosting:
		if r.AutoPosting != nil {
			return *r.AutoPosting, true
		}
	case model.StepNoShow:
		if r.NoShow != nil {
			return *r.NoShow, true
		}
	case model.StepEndOfDay:
		if r.EndOfDay != nil {
			return *r.EndOfDay, true
		}
	}
	return nil, false
}

// Has reports whether step has a stored result.
func (r Results) Has(step model.StepName) bool {
	_, ok := r.Get(step)
	return ok
}

// clone copies the pointed-to values so snapshots don't alias controller state.
func (r Results) clone() Results {
	var out Results
	if r.Start != nil {
		v := *r.Start
		out.Start = &v
	}
	if r.AutoPosting != nil {
		v := *r.AutoPosting
		out.AutoPosting = &v
	}
	if r.NoShow != nil {
		v := *r.NoShow
		out.NoShow = &v
	}
	if r.EndOfDay != nil {
		v := *r.EndOfDay
		out.EndOfDay = &v
	}
	return out
}
