package faultline

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/kamilpajak/faultline/internal/analysis"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// spinnerEmitter shows a spinner on the terminal while providers are called.
type spinnerEmitter struct {
	s *spinner.Spinner
}

func newSpinnerEmitter(w io.Writer) *spinnerEmitter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Color("cyan", "bold")
	return &spinnerEmitter{s: s}
}

func (e *spinnerEmitter) Emit(ev analysis.ProgressEvent) {
	switch ev.Type {
	case "attempt":
		e.s.Suffix = fmt.Sprintf(" Asking %s (attempt %d/%d)...", ev.Provider, ev.Attempt, ev.MaxAttempt)
		if !e.s.Active() {
			e.s.Start()
		}
	case "done", "error":
		e.s.Stop()
	case "state":
		if ev.State.Terminal() {
			e.s.Stop()
		}
	}
}

// progressEmitter picks how progress is shown on stderr.
func progressEmitter(stderr io.Writer, verbose bool) analysis.ProgressEmitter {
	switch {
	case verbose:
		return &analysis.TextEmitter{W: stderr}
	case isTerminal(stderr):
		return newSpinnerEmitter(stderr)
	default:
		return nil
	}
}
