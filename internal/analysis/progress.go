package analysis

import (
	"fmt"
	"io"
)

// ProgressEvent is a single progress update during a run.
type ProgressEvent struct {
	Type       string `json:"type"` // "state", "attempt", "retry", "info", "done", "error"
	State      State  `json:"state,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Attempt    int    `json:"attempt,omitempty"`
	MaxAttempt int    `json:"max,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ProgressEmitter receives progress events during a run.
type ProgressEmitter interface {
	Emit(event ProgressEvent)
}

// TextEmitter formats progress events as human-readable lines.
type TextEmitter struct {
	W io.Writer
}

// Emit writes a formatted progress line to the underlying writer.
func (e *TextEmitter) Emit(ev ProgressEvent) {
	switch ev.Type {
	case "attempt":
		fmt.Fprintf(e.W, "[%s %d/%d] requesting analysis\n", ev.Provider, ev.Attempt, ev.MaxAttempt)
	case "retry":
		fmt.Fprintf(e.W, "[%s %d/%d] %s\n", ev.Provider, ev.Attempt, ev.MaxAttempt, ev.Message)
	case "info":
		fmt.Fprintf(e.W, "  %s\n", ev.Message)
	case "done":
		fmt.Fprintf(e.W, "Done: %s\n", ev.Message)
	case "error":
		fmt.Fprintf(e.W, "Error: %s\n", ev.Message)
	}
}

func emit(e ProgressEmitter, ev ProgressEvent) {
	if e != nil {
		e.Emit(ev)
	}
}

func emitInfo(e ProgressEmitter, msg string) {
	emit(e, ProgressEvent{Type: "info", Message: msg})
}
