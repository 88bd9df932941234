package telemetry

import (
	"context"

	"savings-admin/console/internal/telemetry/domain"
)

// EventEmitter emits console events (e.g. to OTel Logs or Loki). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// MultiEmitter fans an event out to every non-nil emitter and returns the first error.
type MultiEmitter []EventEmitter

// Emit calls each emitter in order; a failure does not stop the others.
func (m MultiEmitter) Emit(ctx context.Context, event *domain.Event) error {
	var first error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
