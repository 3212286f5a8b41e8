package progress

import (
	"context"

	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// NopSink is a no-op implementation of ProgressSink
type NopSink struct{}

// NewNopSink creates a new no-op progress sink
func NewNopSink() usecase.ProgressSink {
	return &NopSink{}
}

func (n *NopSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {}

func (n *NopSink) Info(message string) {}

func (n *NopSink) Error(message string) {}

// ProvideProgressSink picks the spinner for interactive terminals and
// stays silent for --json and non-interactive runs.
func ProvideProgressSink(cfg *config.RuntimeConfig) usecase.ProgressSink {
	if cfg.NonInteractive || cfg.JSON {
		return NewNopSink()
	}
	return NewSpinnerProgressReporter()
}

var _ usecase.ProgressSink = (*NopSink)(nil)
