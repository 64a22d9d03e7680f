package export

import (
	"context"
	"errors"
	"fmt"

	"threadlytics/internal/core"
)

// Fanout forwards every thread to all of its sinks in order.
type Fanout struct {
	sinks []core.Sink
}

func NewFanout(sinks ...core.Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Write(ctx context.Context, thread core.Thread) error {
	for _, sink := range f.sinks {
		if err := sink.Write(ctx, thread); err != nil {
			return fmt.Errorf("writing thread %s: %w", thread.Submission.ID(), err)
		}
	}

	return nil
}

// Close closes every sink, even when some of them fail.
func (f *Fanout) Close() error {
	errs := make([]error, 0, len(f.sinks))
	for _, sink := range f.sinks {
		errs = append(errs, sink.Close())
	}

	return errors.Join(errs...)
}
