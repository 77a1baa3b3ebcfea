package report

import (
	"context"
	"errors"
	"fmt"
)

// Multi emits to every sink in order. All sinks are attempted; their
// failures are joined.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(ctx context.Context, a Artifact) error {
	var errs []error
	for i, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
