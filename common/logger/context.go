package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so discussion context (session_id, round_id,
// persona, phase) is included in every log statement without being threaded by hand.
type LogFields struct {
	SessionID *string // Discussion session ID
	RoundID   *string // Discussion round ID
	Persona   *string // Persona identity currently speaking
	Phase     *string // Discussion phase (agenda, initial, interactive, consensus, summary)
	MessageID *string // Redis stream message ID
	Component string  // Component name (OTel semantic convention style, e.g., "roundtable.coordinator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.SessionID != nil {
		result.SessionID = next.SessionID
	}
	if next.RoundID != nil {
		result.RoundID = next.RoundID
	}
	if next.Persona != nil {
		result.Persona = next.Persona
	}
	if next.Phase != nil {
		result.Phase = next.Phase
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like generated statements.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
