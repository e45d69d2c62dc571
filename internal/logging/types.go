package logging

import "time"

// Level orders entries from debug up to error. Unknown levels are
// normalized to info by the constructors.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogEntry is one retained log line. The buffer keeps these structured
// for the logs endpoint; the writer renders them as key=value text.
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     Level             `json:"level"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
}
