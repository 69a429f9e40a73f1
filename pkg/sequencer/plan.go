// Package sequencer is the target side of the harness.
//
// After reset the target drives all lines high, then all low, then raises every line
// alone in line set order, and idles forever. A Plan describes that timeline, the
// Sequencer plays it on real outputs and the Sim answers samples from it in memory.
package sequencer

import (
	"errors"
	"fmt"
	"time"

	"pintest/pkg/port"
	"pintest/pkg/status"
)

var ErrInvalidPlan = errors.New("invalid plan")

// Timing holds the hold times of the target. They are the contract the master's
// timeouts and poll interval are built on.
type Timing struct {
	// AllHigh and AllLow are the hold times of the all high and all low stage.
	AllHigh time.Duration
	AllLow  time.Duration
	// High and Low are the high time of each line and the pause after it.
	High time.Duration
	Low  time.Duration
	// Heartbeat is the idle status interval after the sequence.
	Heartbeat time.Duration
}

// DefaultTiming returns the timing of the reference target.
func DefaultTiming() Timing {
	return Timing{
		AllHigh:   1000 * time.Millisecond,
		AllLow:    1000 * time.Millisecond,
		High:      150 * time.Millisecond,
		Low:       150 * time.Millisecond,
		Heartbeat: 1000 * time.Millisecond,
	}
}

// MinHold is the shortest level the target holds during the sequence.
func (t Timing) MinHold() time.Duration {
	if t.High < t.Low {
		return t.High
	}
	return t.Low
}

// Step is one segment of the timeline: the listed lines are high, all others low.
type Step struct {
	High  []int
	Hold  time.Duration
	Stage status.Stage
}

// Plan is the timeline of the target from reset release.
// Before the first step and after the last one all lines are low.
type Plan struct {
	Lines int
	Steps []Step
}

// Standard returns the plan of the reference target for n lines.
func Standard(n int, t Timing) Plan {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	p := Plan{Lines: n}
	p.Steps = append(p.Steps,
		Step{High: all, Hold: t.AllHigh, Stage: status.AllHigh},
		Step{Hold: t.AllLow, Stage: status.AllLow},
	)
	for i := 0; i < n; i++ {
		p.Steps = append(p.Steps,
			Step{High: []int{i}, Hold: t.High, Stage: status.Sequence},
			Step{Hold: t.Low, Stage: status.Sequence},
		)
	}
	return p
}

// Validate checks the line indices and hold times.
func (p Plan) Validate() error {
	if p.Lines <= 0 {
		return fmt.Errorf("%d lines: %w", p.Lines, ErrInvalidPlan)
	}
	for n, s := range p.Steps {
		if s.Hold <= 0 {
			return fmt.Errorf("step %d: hold %v: %w", n, s.Hold, ErrInvalidPlan)
		}
		for _, i := range s.High {
			if i < 0 || i >= p.Lines {
				return fmt.Errorf("step %d: line %d: %w", n, i, ErrInvalidPlan)
			}
		}
	}
	return nil
}

// Duration is the time from reset release to idle.
func (p Plan) Duration() time.Duration {
	var d time.Duration
	for _, s := range p.Steps {
		d += s.Hold
	}
	return d
}

// Levels returns the line levels of step n.
func (p Plan) Levels(n int) port.Sample {
	s := port.NewSample(p.Lines, port.Low)
	if n < 0 || n >= len(p.Steps) {
		return s
	}
	for _, i := range p.Steps[n].High {
		s[i] = port.High
	}
	return s
}

// StepAt returns the index of the step active at elapsed time after reset release,
// -1 before the start and len(Steps) once the plan is finished.
func (p Plan) StepAt(elapsed time.Duration) int {
	if elapsed < 0 {
		return -1
	}

	var end time.Duration
	for n, s := range p.Steps {
		end += s.Hold
		if elapsed < end {
			return n
		}
	}
	return len(p.Steps)
}

// LevelsAt returns the line levels at elapsed time after reset release.
func (p Plan) LevelsAt(elapsed time.Duration) port.Sample {
	return p.Levels(p.StepAt(elapsed))
}
