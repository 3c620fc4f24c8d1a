package audit

import (
	"context"
	"log/slog"

	"kycgate/pkg/platform/privacy"
	"kycgate/pkg/requestcontext"
)

// Emitter is the interface for audit event emission.
// Satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger writes audit events to the structured log and, when an emitter is
// configured, to the audit store.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

// NewLogger creates an audit logger. Both arguments are optional.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{
		textLogger: textLogger,
		emitter:    emitter,
	}
}

// Record enriches the event from the request context and fans it out.
// Emission failures are logged and never surface to the caller.
func (l *Logger) Record(ctx context.Context, action AuditEvent, event Event) {
	if l == nil {
		return
	}
	event.Action = string(action)
	event.Category = action.Category()
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.DeviceName(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if l.textLogger != nil {
		l.textLogger.InfoContext(ctx, event.Action,
			"log_type", "audit",
			"category", string(event.Category),
			"actor", privacy.MaskIdentity(event.Actor.String()),
			"holder", privacy.MaskIdentity(event.Holder.String()),
			"verifier", privacy.MaskIdentity(event.Verifier.String()),
			"decision", event.Decision,
			"reason", event.Reason,
			"request_id", event.RequestID,
		)
	}

	if l.emitter == nil {
		return
	}
	if err := l.emitter.Emit(ctx, event); err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", event.Action,
		)
	}
}
