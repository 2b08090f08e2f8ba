package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/ui"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

// progressPrinter returns a controller subscriber that writes one line to w
// each time a step starts running.
func progressPrinter(w io.Writer) func(workflow.View) {
	var (
		mu   sync.Mutex
		last model.StepName
	)
	return func(v workflow.View) {
		mu.Lock()
		defer mu.Unlock()
		if v.Phase != workflow.PhaseRunning {
			last = ""
			return
		}
		if v.RunningStep == last {
			return
		}
		last = v.RunningStep
		fmt.Fprintln(w, ui.Muted(fmt.Sprintf("%s...", v.RunningStep.Title())))
	}
}
