package eventlog

import (
	"fmt"
	"io"
)

// Reporter is the process-wide event and error sink. Expected,
// recoverable conditions go through Event; anything unexpected goes
// through ReportUnexpected and is never silently dropped.
type Reporter interface {
	// Event records an informational trail entry.
	Event(component, serverID, message string)

	// ReportUnexpected surfaces a failure that no component boundary
	// knows how to absorb.
	ReportUnexpected(component string, err error)
}

// LogReporter writes events to the repository and mirrors unexpected
// errors to out (normally stderr).
type LogReporter struct {
	repo Repository
	out  io.Writer
}

// NewReporter creates a reporter. repo may be nil (events are then
// only mirrored to out), as may out.
func NewReporter(repo Repository, out io.Writer) *LogReporter {
	return &LogReporter{repo: repo, out: out}
}

func (r *LogReporter) Event(component, serverID, message string) {
	if r.repo == nil {
		return
	}
	_ = r.repo.Save(&Event{
		Level:     LevelInfo,
		Component: component,
		ServerID:  serverID,
		Message:   message,
	})
}

func (r *LogReporter) ReportUnexpected(component string, err error) {
	if err == nil {
		return
	}
	if r.repo != nil {
		_ = r.repo.Save(&Event{
			Level:     LevelError,
			Component: component,
			Message:   "unexpected error",
			Detail:    err.Error(),
		})
	}
	if r.out != nil {
		fmt.Fprintf(r.out, "outpost: unexpected error in %s: %v\n", component, err)
	}
}

// NopReporter discards everything. Intended for tests.
type NopReporter struct{}

func (NopReporter) Event(string, string, string)   {}
func (NopReporter) ReportUnexpected(string, error) {}
