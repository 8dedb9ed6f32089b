package logging

// Standard attribute keys shared by every radiomon component.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldDevice    = "device"
	FieldAttemptID = "attempt_id"
	FieldSessionID = "session_id"
)
