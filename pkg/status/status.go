// Package status is the status channel of master and target.
//
// Every event renders to exactly one text line with a deterministic prefix, e.g.
//
//	Master: STAGE — ALL_HIGH: BEGIN
//	Master: STAGE — SEQUENCE: ERROR. TIMEOUT. EXPECTED: P0_09
//
// The channel is advisory only, nothing in the state machine reads it back.
package status

import (
	"fmt"
	"strings"
	"time"
)

// Source is the node that emitted an event.
type Source string

const (
	Master Source = "Master"
	Target Source = "Target"
)

// Stage is the test stage an event belongs to.
type Stage string

const (
	Idle     Stage = "IDLE"
	AllHigh  Stage = "ALL_HIGH"
	AllLow   Stage = "ALL_LOW"
	Sequence Stage = "SEQUENCE"
	Success  Stage = "SUCCESS"
)

// Kind is the type of status event.
type Kind int

const (
	Ready Kind = iota
	Heartbeat
	StartCommand
	FlashCommand
	Start
	ResetSent
	Begin
	OK
	LineOK
	AllOK
	Error
	Fail
)

var kindNames = [...]string{
	Ready:        "ready",
	Heartbeat:    "heartbeat",
	StartCommand: "start-command",
	FlashCommand: "flash-command",
	Start:        "start",
	ResetSent:    "reset",
	Begin:        "begin",
	OK:           "ok",
	LineOK:       "line-ok",
	AllOK:        "all-ok",
	Error:        "error",
	Fail:         "fail",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText renders the kind by name in json payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is one line of the status channel.
type Event struct {
	Time   time.Time `json:"time"`
	Source Source    `json:"source"`
	RunID  string    `json:"run,omitempty"`
	Kind   Kind      `json:"kind"`
	Stage  Stage     `json:"stage,omitempty"`
	// Line is the label of the line accepted by a LineOK event.
	Line string `json:"line,omitempty"`
	// Detail is the diagnostic text of an Error event.
	Detail string `json:"detail,omitempty"`
	// Lines are the labels named by an Error event.
	Lines []string `json:"lines,omitempty"`
}

// String renders the status line.
func (e Event) String() string {
	prefix := string(e.Source) + ": "

	switch e.Kind {
	case Ready:
		return prefix + "READY"
	case Heartbeat:
		return prefix + "STAGE — " + string(Idle) + ": OK"
	case StartCommand:
		return prefix + "START command received."
	case FlashCommand:
		return prefix + "FLASH command received."
	case Start:
		return prefix + "START"
	case ResetSent:
		return prefix + "SENT RESET"
	case Begin:
		return prefix + "STAGE — " + string(e.Stage) + ": BEGIN"
	case OK:
		return prefix + "STAGE — " + string(e.Stage) + ": OK"
	case LineOK:
		return prefix + "STAGE — " + string(e.Stage) + ": OK — " + e.Line
	case AllOK:
		return prefix + "STAGE — " + string(e.Stage) + ": ALL OK"
	case Error:
		return prefix + "STAGE — " + string(e.Stage) + ": ERROR. " + e.Detail
	case Fail:
		return prefix + "FAIL"
	default:
		return prefix + strings.ToUpper(e.Kind.String())
	}
}

// Reporter receives status events.
type Reporter interface {
	Report(Event)
}

// Func adapts a function to a Reporter.
type Func func(Event)

func (f Func) Report(e Event) { f(e) }

// Multi reports every event to all reporters in order.
type Multi []Reporter

func (m Multi) Report(e Event) {
	for _, r := range m {
		r.Report(e)
	}
}

// Discard drops all events.
var Discard Reporter = Func(func(Event) {})

// JoinLabels renders labels the way error lines list them.
func JoinLabels(labels []string) string {
	return strings.Join(labels, ", ")
}
