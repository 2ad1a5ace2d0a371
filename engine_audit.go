package otpauth

import (
	"context"
	"time"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if event.Metadata == nil {
			event.Metadata = make(map[string]string, 1)
		}
		event.Metadata["user_agent"] = ua
	}
	e.audit.Emit(ctx, event)
}

func auditFailure(eventType string, err error) AuditEvent {
	event := AuditEvent{EventType: eventType}
	if e, ok := AsError(err); ok {
		event.Error = e.Code
	} else if err != nil {
		event.Error = err.Error()
	}
	return event
}
