package harness

import (
	"errors"
	"fmt"

	"pintest/pkg/status"
)

var (
	// ErrHoldTimeout is the only non-fatal fault: the run continues with the next phase.
	ErrHoldTimeout     = errors.New("hold phase timeout")
	ErrMultipleHigh    = errors.New("multiple lines high")
	ErrOutOfOrder      = errors.New("sequence order violated")
	ErrRepeatedEdge    = errors.New("repeated or earlier raise")
	ErrSequenceTimeout = errors.New("sequence timeout")

	ErrNoLines      = errors.New("empty line set")
	ErrMissingLine  = errors.New("missing hardware line")
	ErrSampleSize   = errors.New("sample size does not match line set")
	ErrTimingMargin = errors.New("poll interval too long for target hold time")
)

// Fault is a protocol violation detected by the controller.
// Use errors.Is with the sentinel errors to classify it.
type Fault struct {
	Err   error
	Phase Phase
	// Lines are the labels of the offending lines.
	Lines []string
	// Expected and Received are line indices, -1 if not applicable.
	Expected      int
	ExpectedLabel string
	Received      int
	ReceivedLabel string
}

func (f *Fault) Unwrap() error { return f.Err }

func (f *Fault) Error() string {
	switch {
	case errors.Is(f.Err, ErrOutOfOrder):
		return fmt.Sprintf("%v: expected line %d (%s), received line %d (%s)",
			f.Err, f.Expected, f.ExpectedLabel, f.Received, f.ReceivedLabel)
	case errors.Is(f.Err, ErrRepeatedEdge):
		return fmt.Sprintf("%v: line %d (%s)", f.Err, f.Received, f.ReceivedLabel)
	case errors.Is(f.Err, ErrSequenceTimeout):
		return fmt.Sprintf("%v: expected line %d (%s)", f.Err, f.Expected, f.ExpectedLabel)
	default:
		return fmt.Sprintf("%v in %v: %s", f.Err, f.Phase, status.JoinLabels(f.Lines))
	}
}

// Detail renders the fault the way the status channel reports it.
func (f *Fault) Detail() string {
	switch {
	case errors.Is(f.Err, ErrHoldTimeout) && f.Phase == WaitAllHigh:
		return "LOW_PINS: " + status.JoinLabels(f.Lines)
	case errors.Is(f.Err, ErrHoldTimeout):
		return "HIGH_PINS: " + status.JoinLabels(f.Lines)
	case errors.Is(f.Err, ErrMultipleHigh):
		return "FAIL_PINS: " + status.JoinLabels(f.Lines)
	case errors.Is(f.Err, ErrOutOfOrder):
		return "THE ORDER OF SEQUENCE IS VIOLATED. EXPECTED: " + f.ExpectedLabel + ", RECEIVED " + f.ReceivedLabel
	case errors.Is(f.Err, ErrRepeatedEdge):
		return "REPEATED/EARLIER RAISE " + f.ReceivedLabel
	case errors.Is(f.Err, ErrSequenceTimeout):
		return "TIMEOUT. EXPECTED: " + f.ExpectedLabel
	default:
		return f.Err.Error()
	}
}

// Fatal reports whether the fault ends the run.
func (f *Fault) Fatal() bool {
	return !errors.Is(f.Err, ErrHoldTimeout)
}
