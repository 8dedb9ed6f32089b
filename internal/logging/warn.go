package logging

import "log/slog"

const (
	defaultErrorHint = "check logs for details"
	defaultImpact    = "operation completed with warnings"
)

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Callers supply the hint and impact when they know better than
// the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, Event(eventType))
	attrs = withDefault(attrs, String(FieldErrorHint, defaultErrorHint))
	attrs = withDefault(attrs, String(FieldImpact, defaultImpact))
	logger.Warn(msg, Args(attrs...)...)
}

// ErrorWithContext logs an error that always carries event_type and
// error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, Event(eventType))
	attrs = withDefault(attrs, String(FieldErrorHint, defaultErrorHint))
	logger.Error(msg, Args(attrs...)...)
}

func withDefault(attrs []Attr, fallback Attr) []Attr {
	for _, a := range attrs {
		if a.Key == fallback.Key {
			return attrs
		}
	}
	return append(attrs, fallback)
}
