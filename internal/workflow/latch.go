package workflow

import (
	"fmt"

	"github.com/ppiankov/nightaudit/internal/model"
)

// Phase is what the controller is doing right now.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseRunning:
		return "running"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Latch is the single session-wide guard: Idle, Loading, or Running(step).
// A step is only carried by Running; the zero value is Idle.
type Latch struct {
	phase Phase
	step  model.StepName
}

func idle() Latch    { return Latch{phase: PhaseIdle} }
func loading() Latch { return Latch{phase: PhaseLoading} }

func running(step model.StepName) Latch {
	return Latch{phase: PhaseRunning, step: step}
}

// Phase returns the latch phase.
func (l Latch) Phase() Phase { return l.phase }

// Step returns the running step, or "" when no step is running.
func (l Latch) Step() model.StepName { return l.step }

// Busy reports whether selection and every step trigger are disabled.
func (l Latch) Busy() bool { return l.phase != PhaseIdle }

func (l Latch) String() string {
	if l.phase == PhaseRunning {
		return fmt.Sprintf("running(%s)", l.step)
	}
	return l.phase.String()
}
