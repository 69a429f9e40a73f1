package status

import (
	"github.com/womat/debug"
)

// Log writes status events to the debug log.
// Heartbeats are noisy and only shown with trace level.
type Log struct{}

func (Log) Report(e Event) {
	switch e.Kind {
	case Heartbeat:
		debug.TraceLog.Print(e.String())
	case Error, Fail:
		debug.ErrorLog.Print(e.String())
	default:
		debug.InfoLog.Print(e.String())
	}
}
