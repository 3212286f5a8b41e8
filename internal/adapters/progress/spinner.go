package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/trebuchet-org/govlock/internal/usecase"
)

// SpinnerProgressReporter shows a spinner while multi-step operations run
type SpinnerProgressReporter struct {
	mu      sync.Mutex
	out     io.Writer
	spinner *spinner.Spinner
	stage   string
	started time.Time
}

// NewSpinnerProgressReporter creates a reporter writing to stderr
func NewSpinnerProgressReporter() *SpinnerProgressReporter {
	return NewSpinnerProgressReporterTo(os.Stderr)
}

// NewSpinnerProgressReporterTo creates a reporter writing to out
func NewSpinnerProgressReporterTo(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false
	return &SpinnerProgressReporter{out: out, spinner: s}
}

// OnProgress handles progress events
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.stage {
		r.stage = event.Stage
		r.started = time.Now()
	}

	if !event.Spinner {
		r.stopLocked()
		fmt.Fprintln(r.out, r.line(event))
		return
	}
	r.spinner.Suffix = " " + r.line(event)
	if !r.spinner.Active() {
		r.spinner.Start()
	}
}

// line renders "[2/3] message (1s)"
func (r *SpinnerProgressReporter) line(event usecase.ProgressEvent) string {
	msg := event.Message
	if event.Total > 0 {
		msg = color.New(color.FgYellow).Sprintf("[%d/%d]", event.Current, event.Total) + " " + msg
	}
	if !r.started.IsZero() {
		if d := time.Since(r.started).Round(time.Second); d > 0 {
			msg += color.New(color.Faint).Sprintf(" (%s)", d)
		}
	}
	return msg
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.print(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.print(color.New(color.FgRed), message)
}

// print stops the spinner for good; the next OnProgress restarts it.
func (r *SpinnerProgressReporter) print(c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	c.Fprintln(r.out, message)
}

func (r *SpinnerProgressReporter) stopLocked() {
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// Stop halts the spinner if it is still running
func (r *SpinnerProgressReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
