package harness

import (
	"fmt"
	"time"
)

// MarginFactor is the minimum ratio between the target's shortest sequence hold time
// and the poll interval.
const MarginFactor = 3

// Timing holds the timing constants of the master.
// They encode the physical contract with the target and must match its hold times.
type Timing struct {
	// Poll is the interval between two samples of the line set.
	Poll time.Duration
	// Heartbeat is the idle heartbeat and led toggle interval.
	Heartbeat time.Duration
	// FailBlink is the led toggle interval in the Fail state.
	FailBlink time.Duration
	// AllHighTimeout, AllLowTimeout and SequenceTimeout are the phase deadlines, measured from phase entry.
	AllHighTimeout  time.Duration
	AllLowTimeout   time.Duration
	SequenceTimeout time.Duration
	// Debounce is the time the button must be stable low to count as pressed.
	Debounce time.Duration
	// ReleasePoll is the interval used while waiting for the button release.
	ReleasePoll time.Duration
	// ResetPulse is the time the reset line is held low.
	ResetPulse time.Duration
	// ResetGap is the pause between the two pulses of a flash request.
	ResetGap time.Duration
}

// DefaultTiming returns the timing of the reference harness.
func DefaultTiming() Timing {
	return Timing{
		Poll:            5 * time.Millisecond,
		Heartbeat:       500 * time.Millisecond,
		FailBlink:       150 * time.Millisecond,
		AllHighTimeout:  3000 * time.Millisecond,
		AllLowTimeout:   3000 * time.Millisecond,
		SequenceTimeout: 15000 * time.Millisecond,
		Debounce:        50 * time.Millisecond,
		ReleasePoll:     10 * time.Millisecond,
		ResetPulse:      100 * time.Millisecond,
		ResetGap:        200 * time.Millisecond,
	}
}

// Validate checks that all durations are positive.
func (t Timing) Validate() error {
	for name, d := range map[string]time.Duration{
		"poll":            t.Poll,
		"heartbeat":       t.Heartbeat,
		"failblink":       t.FailBlink,
		"allhigh timeout": t.AllHighTimeout,
		"alllow timeout":  t.AllLowTimeout,
		"sequence":        t.SequenceTimeout,
		"debounce":        t.Debounce,
		"release poll":    t.ReleasePoll,
		"reset pulse":     t.ResetPulse,
		"reset gap":       t.ResetGap,
	} {
		if d <= 0 {
			return fmt.Errorf("timing %s must be positive, got %v", name, d)
		}
	}
	return nil
}

// CheckMargin verifies that the poll interval is at least MarginFactor times shorter
// than the shortest level the target holds during the sequence.
// Otherwise rising edges can be missed completely.
func CheckMargin(poll, minHold time.Duration) error {
	if poll <= 0 || minHold <= 0 || poll*MarginFactor > minHold {
		return fmt.Errorf("poll %v, shortest hold %v: %w", poll, minHold, ErrTimingMargin)
	}
	return nil
}
