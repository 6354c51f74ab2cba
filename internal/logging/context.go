package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID identifies one review session across every component it drives.
	FieldSessionID = "session_id"
	// FieldRequestID carries the HTTP request identifier for the serve surface.
	FieldRequestID = "request_id"
	// FieldEventType names the condition a warning or error describes.
	FieldEventType = "event_type"
	// FieldErrorHint is a one-line next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorKind is the faults classification attached to failed operations.
	FieldErrorKind = "error_kind"

	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	requestIDKey
)

// WithSessionID stores the review session identifier on ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithRequestID stores an HTTP request identifier on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(sessionIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldRequestID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
