package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"savings-admin/console/internal/telemetry/domain"
)

// emitTimeout bounds a single background emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is the longest Drain should wait; an emit never runs longer than this.
const ShutdownDrainDuration = emitTimeout

// inflight counts background emits; idle is closed whenever the count is zero.
var inflight struct {
	mu      sync.Mutex
	pending int
	idle    chan struct{}
}

func init() {
	inflight.idle = make(chan struct{})
	close(inflight.idle)
}

func emitStarted() {
	inflight.mu.Lock()
	if inflight.pending == 0 {
		inflight.idle = make(chan struct{})
	}
	inflight.pending++
	inflight.mu.Unlock()
}

func emitFinished() {
	inflight.mu.Lock()
	inflight.pending--
	if inflight.pending == 0 {
		close(inflight.idle)
	}
	inflight.mu.Unlock()
}

// EmitAsync hands event to emitter on a background goroutine and returns immediately.
// The emit runs on its own timeout so a cancelled request still records the event.
// Failures are logged. Nil emitter or event is a no-op.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	emitStarted()
	go func() {
		defer emitFinished()
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Printf("telemetry: emit %s: %v", event.Type, err)
		}
	}()
}

// Drain waits up to timeout for background emits to finish and reports whether they all did.
func Drain(timeout time.Duration) bool {
	inflight.mu.Lock()
	idle := inflight.idle
	inflight.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return true
	case <-timer.C:
		log.Printf("telemetry: drain timed out after %s", timeout)
		return false
	}
}
