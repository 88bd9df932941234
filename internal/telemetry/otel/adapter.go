package otel

import (
	"context"
	"sort"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"savings-admin/console/internal/telemetry"
	"savings-admin/console/internal/telemetry/domain"
)

// instrumentationName scopes the console's log records.
const instrumentationName = "savings-admin.console"

// recordEmitter is the part of otellog.Logger the adapter needs.
type recordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(instrumentationName)}
}

// NewEventEmitterWithLogger returns an emitter writing to logger directly. Used by tests.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Event) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(event.Type))
	if event.ID != "" {
		rec.AddAttributes(otellog.String("event_id", event.ID))
	}
	if event.Type != "" {
		rec.AddAttributes(otellog.String("event_type", event.Type))
	}
	if event.AdminID != "" {
		rec.AddAttributes(otellog.String("admin_id", event.AdminID))
	}
	if event.Resource != "" {
		rec.AddAttributes(otellog.String("resource", event.Resource))
	}
	if event.Source != "" {
		rec.AddAttributes(otellog.String("source", event.Source))
	}
	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.AddAttributes(otellog.String("meta."+k, event.Metadata[k]))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
