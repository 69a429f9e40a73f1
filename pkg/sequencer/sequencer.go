package sequencer

import (
	"context"
	"time"

	"github.com/womat/debug"
	"pintest/pkg/port"
	"pintest/pkg/status"
)

// Clock is the time source of the target.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Driver drives all lines of the target at once.
type Driver interface {
	Write(port.Sample) error
}

// Sequencer plays a plan on the target outputs once and idles afterwards.
type Sequencer struct {
	plan      Plan
	out       Driver
	clock     Clock
	report    status.Reporter
	heartbeat time.Duration
}

// New creates a sequencer. clock may be nil for the wall clock, report may be nil.
func New(plan Plan, out Driver, heartbeat time.Duration, clock Clock, report status.Reporter) *Sequencer {
	if clock == nil {
		clock = systemClock{}
	}
	if report == nil {
		report = status.Discard
	}
	return &Sequencer{plan: plan, out: out, clock: clock, report: report, heartbeat: heartbeat}
}

// Run drives all lines low, plays the plan and emits a heartbeat until ctx is done.
// The plan is played exactly once.
func (s *Sequencer) Run(ctx context.Context) error {
	if err := s.plan.Validate(); err != nil {
		return err
	}

	s.emit(status.Ready, "")
	if err := s.out.Write(s.plan.Levels(-1)); err != nil {
		return err
	}

	if err := s.play(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.emit(status.Heartbeat, "")
		s.clock.Sleep(s.heartbeat)
	}
}

// play writes every step of the plan and holds it.
func (s *Sequencer) play(ctx context.Context) error {
	var stage status.Stage
	for n, step := range s.plan.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if step.Stage != stage {
			s.end(stage)
			stage = step.Stage
			s.emit(status.Begin, stage)
		}

		levels := s.plan.Levels(n)
		debug.TraceLog.Printf("step %d: %v for %v", n, levels, step.Hold)
		if err := s.out.Write(levels); err != nil {
			return err
		}
		s.clock.Sleep(step.Hold)
	}

	if err := s.out.Write(s.plan.Levels(len(s.plan.Steps))); err != nil {
		return err
	}
	s.end(stage)
	return nil
}

// end reports the end of a stage.
func (s *Sequencer) end(stage status.Stage) {
	switch stage {
	case "":
	case status.Sequence:
		s.emit(status.AllOK, stage)
	default:
		s.emit(status.OK, stage)
	}
}

func (s *Sequencer) emit(k status.Kind, stage status.Stage) {
	s.report.Report(status.Event{Time: s.clock.Now(), Source: status.Target, Kind: k, Stage: stage})
}
