// Package audit emits append-only structured records of authorization
// decisions and credential lifecycle actions.
package audit

import (
	"context"
	"strings"

	"opiniq.org/internal/ids"
	"opiniq.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Event is one audit record. Permissions lists the capability names the actor
// accumulated for the check, on both allowed and denied outcomes.
type Event struct {
	Actor       string
	Tenant      string
	Operation   string
	Permissions []string
	Outcome     string
}

// Recorder accepts audit events. Implementations are fire-and-forget: they
// must never block or fail the decision that produced the event.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// LogRecorder writes audit events as JSON lines through the shared logger.
type LogRecorder struct{}

var _ Recorder = LogRecorder{}

func (LogRecorder) Record(ctx context.Context, ev Event) {
	entry := map[string]any{
		"id":        ids.NewAuditID(),
		"actor":     ev.Actor,
		"tenant":    ev.Tenant,
		"operation": ev.Operation,
		"outcome":   ev.Outcome,
	}
	perms := ev.Permissions
	if perms == nil {
		perms = []string{}
	}
	entry["permissions"] = perms
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	obs.Emit("audit", entry)
}
