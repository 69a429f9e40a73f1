package harness

import (
	"fmt"

	"pintest/pkg/status"
)

// Phase is the state of the test state machine.
type Phase int

const (
	// WaitButton is the idle state, waiting for a start request.
	WaitButton Phase = iota
	// WaitAllHigh waits until all lines read high.
	WaitAllHigh
	// WaitAllLow waits until all lines read low.
	WaitAllLow
	// Sequence counts the rising edges of the lines in line set order.
	Sequence
	// Success reports the passed run and returns to WaitButton on the next iteration.
	Success
	// Fail waits for the next start request.
	Fail
)

var phaseNames = [...]string{
	WaitButton:  "WaitButton",
	WaitAllHigh: "WaitAllHigh",
	WaitAllLow:  "WaitAllLow",
	Sequence:    "Sequence",
	Success:     "Success",
	Fail:        "Fail",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText renders the phase by name in json payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Stage returns the status stage the phase reports on.
func (p Phase) Stage() status.Stage {
	switch p {
	case WaitAllHigh:
		return status.AllHigh
	case WaitAllLow:
		return status.AllLow
	case Sequence:
		return status.Sequence
	case Success:
		return status.Success
	default:
		return status.Idle
	}
}

// active reports whether a test run is in progress.
func (p Phase) active() bool {
	return p == WaitAllHigh || p == WaitAllLow || p == Sequence
}

// Outcome is the result of the last finished run.
type Outcome int

const (
	None Outcome = iota
	Passed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return "none"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
