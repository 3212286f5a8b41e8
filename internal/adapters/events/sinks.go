package events

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/trebuchet-org/govlock/internal/adapters/sqlite"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// LogSink mirrors every event as an Info record
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a new log sink
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log.With("component", "events")}
}

func (s *LogSink) Emit(ctx context.Context, events ...domain.Event) error {
	for _, e := range events {
		args := []any{"kind", e.Kind, "surface", e.Surface, "at", e.At, "actor", e.Actor}
		if e.Subject != "" {
			args = append(args, "subject", e.Subject)
		}
		keys := make([]string, 0, len(e.Attrs))
		for k := range e.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, k, e.Attrs[k])
		}
		s.log.InfoContext(ctx, "event", args...)
	}
	return nil
}

// FanOut hands every batch to each sink in order. All sinks are tried;
// their errors are joined.
type FanOut struct {
	sinks []usecase.EventSink
}

// NewFanOut creates a sink forwarding to sinks
func NewFanOut(sinks ...usecase.EventSink) *FanOut {
	return &FanOut{sinks: sinks}
}

func (f *FanOut) Emit(ctx context.Context, events ...domain.Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Emit(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ProvideEventSink indexes events in SQLite and mirrors them to the log
func ProvideEventSink(store *sqlite.EventStore, log *LogSink) usecase.EventSink {
	return NewFanOut(store, log)
}

var (
	_ usecase.EventSink = (*LogSink)(nil)
	_ usecase.EventSink = (*FanOut)(nil)
)
