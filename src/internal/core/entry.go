package core

import (
	"time"
)

// LogEntry is a single structured log record produced by the logger facade
// and consumed by the sinks and the search subsystem. Entries are immutable
// once handed to the search manager; identity is pointer identity, so two
// entries with identical fields are distinct records.
type LogEntry struct {
	Time        time.Time      `json:"timestamp"`
	Level       string         `json:"level"`
	AppName     string         `json:"appName"`
	TraceID     string         `json:"traceId,omitempty"`
	Message     string         `json:"message"`
	Payload     map[string]any `json:"payload,omitempty"`
	Context     string         `json:"context,omitempty"`
	Environment string         `json:"environment,omitempty"`
	Err         *ErrorInfo     `json:"error,omitempty"`
}

// ErrorInfo is the structured error attached to an entry, if any.
type ErrorInfo struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// HasError reports whether the entry carries a structured error.
func (e *LogEntry) HasError() bool {
	return e.Err != nil
}

// UserID returns payload["userId"] when present and a string.
func (e *LogEntry) UserID() string {
	return e.payloadString("userId")
}

// SessionID returns payload["sessionId"] when present and a string.
func (e *LogEntry) SessionID() string {
	return e.payloadString("sessionId")
}

func (e *LogEntry) payloadString(key string) string {
	if e.Payload == nil {
		return ""
	}
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
