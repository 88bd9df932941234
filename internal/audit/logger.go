package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"savings-admin/console/internal/telemetry"
	"savings-admin/console/internal/telemetry/domain"
)

// SentinelAdminID is recorded for events that happen without a known admin (e.g. session_expired before hydrate).
const SentinelAdminID = "_anonymous"

// AuditLogger records a single admin action with explicit action/resource. Used by the API client and dashboard.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, adminID, action, resource string, metadata map[string]string)
}

// Logger implements AuditLogger on top of a telemetry emitter.
type Logger struct {
	emitter telemetry.EventEmitter
	source  string
	nowF    func() time.Time
}

// NewLogger returns a Logger that emits to emitter, tagging events with source (e.g. "console", "dashboard").
// emitter may be nil; then LogEvent is a no-op.
func NewLogger(emitter telemetry.EventEmitter, source string) *Logger {
	return &Logger{emitter: emitter, source: source, nowF: time.Now}
}

// LogEvent emits one audit event asynchronously.
func (l *Logger) LogEvent(ctx context.Context, adminID, action, resource string, metadata map[string]string) {
	if l == nil || l.emitter == nil {
		return
	}
	if adminID == "" {
		adminID = SentinelAdminID
	}
	event := &domain.Event{
		ID:        uuid.New().String(),
		Type:      action,
		AdminID:   adminID,
		Resource:  resource,
		Source:    l.source,
		Metadata:  metadata,
		CreatedAt: l.nowF().UTC(),
	}
	telemetry.EmitAsync(l.emitter, ctx, event)
}
