package eventlog

import "time"

const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Event is a persisted console event: a lifecycle transition, a
// swallowed transient failure, or an escalated unexpected error.
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	ServerID  string    `json:"server_id,omitempty"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
}
