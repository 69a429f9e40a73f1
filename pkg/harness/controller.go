// Package harness is the master test controller.
//
// The controller is a polling state machine. Every iteration (Step) takes one snapshot
// of all test lines and evaluates the current phase against it:
//
//	WaitButton -> WaitAllHigh -> WaitAllLow -> Sequence -> Success | Fail
//
// There is no acknowledgement channel to the target, progress of the target is only
// visible through the line levels. The sequence phase therefore counts rising edges,
// a line held high over many iterations is one event.
//
// The poll interval must stay well below the target's shortest hold time
// (see CheckMargin), otherwise edges are missed.
package harness

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/womat/debug"
	"pintest/pkg/port"
	"pintest/pkg/status"
)

// Controller runs the test state machine. Step must only be called from one goroutine.
// RequestStart, RequestFlash and Status may be called from any goroutine.
type Controller struct {
	lines  port.LineSet
	timing Timing
	clock  Clock

	sampler Sampler
	led     Output
	button  *Button
	pulser  *Pulser

	report   status.Reporter
	observer Observer

	startRequests atomic.Int32
	flashRequests atomic.Int32

	// mu guards the state below against concurrent Status readers
	mu           sync.RWMutex
	phase        Phase
	phaseStart   time.Time
	// begun is the one-shot marker of the current phase
	begun        bool
	// startPending holds a start request until the run ends
	startPending bool

	run       Run
	runs      int
	outcome   Outcome
	lastBlink time.Time
	ledOn     bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithReporter sets the status channel.
func WithReporter(r status.Reporter) Option {
	return func(ctl *Controller) { ctl.report = r }
}

// WithObserver sets the observer notified on phase changes, edges and run results.
func WithObserver(o Observer) Option {
	return func(ctl *Controller) { ctl.observer = o }
}

// New creates a controller in the WaitButton phase.
func New(lines port.LineSet, timing Timing, hw Hardware, opts ...Option) (*Controller, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if hw.Lines == nil {
		return nil, fmt.Errorf("test lines: %w", ErrMissingLine)
	}
	if hw.Reset == nil {
		return nil, fmt.Errorf("reset line: %w", ErrMissingLine)
	}
	if err := timing.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		lines:    lines,
		timing:   timing,
		clock:    SystemClock{},
		sampler:  hw.Lines,
		led:      hw.LED,
		report:   status.Discard,
		observer: nopObserver{},
		phase:    WaitButton,
	}
	for _, opt := range opts {
		opt(c)
	}

	if hw.Button != nil {
		c.button = NewButton(hw.Button, c.clock, timing.Debounce, timing.ReleasePoll)
	}
	c.pulser = NewPulser(hw.Reset, c.clock, timing.ResetPulse, timing.ResetGap, func() {
		c.emit(status.Event{Kind: status.ResetSent})
	})
	c.phaseStart = c.clock.Now()
	c.setLED(false)
	return c, nil
}

// RequestStart posts a start request (START command). It is acknowledged by the next Step
// and starts a run in the WaitButton and Fail phases. During a run it stays pending
// until the run has ended.
func (c *Controller) RequestStart() {
	c.startRequests.Add(1)
}

// RequestFlash posts a flash request (FLASH/DFU command). The next Step issues the double reset pulse.
func (c *Controller) RequestFlash() {
	c.flashRequests.Add(1)
}

// Run emits READY and calls Step every poll interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.emit(status.Event{Kind: status.Ready})

	ticker := time.NewTicker(c.timing.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Step()
		}
	}
}

// Step runs one iteration of the state machine.
func (c *Controller) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := c.flashRequests.Swap(0); n > 0 {
		for i := int32(0); i < n; i++ {
			c.flash()
		}
	}

	if n := c.startRequests.Swap(0); n > 0 {
		c.emit(status.Event{Kind: status.StartCommand})
		c.startPending = true
		if c.phase.active() {
			debug.DebugLog.Printf("start request pending, run %s is in phase %v", c.run.ID, c.phase)
		}
	}

	start := false
	if c.phase == WaitButton || c.phase == Fail {
		start, c.startPending = c.startPending, false
	}

	pressed := false
	if c.button != nil {
		pressed = c.button.Pressed()
	}
	if c.phase.active() {
		// the button has no effect during a run
		pressed = false
	}

	switch c.phase {
	case WaitButton:
		c.waitButton(start, pressed)
	case WaitAllHigh, WaitAllLow, Sequence:
		sample, err := c.sample()
		if err != nil {
			debug.ErrorLog.Printf("can't sample lines: %v", err)
			return
		}

		switch c.phase {
		case WaitAllHigh:
			c.waitAll(sample, port.High, c.timing.AllHighTimeout, WaitAllLow)
		case WaitAllLow:
			c.waitAll(sample, port.Low, c.timing.AllLowTimeout, Sequence)
		case Sequence:
			c.sequence(sample)
		}
	case Success:
		c.emit(status.Event{Kind: status.OK, Stage: status.Success})
		c.toPhase(WaitButton)
	case Fail:
		c.fail(start, pressed)
	}
}

// sample reads one snapshot of all lines.
func (c *Controller) sample() (port.Sample, error) {
	s, err := c.sampler.Sample()
	if err != nil {
		return nil, err
	}
	if len(s) != len(c.lines) {
		return nil, fmt.Errorf("%d values for %d lines: %w", len(s), len(c.lines), ErrSampleSize)
	}
	return s, nil
}

func (c *Controller) waitButton(start, pressed bool) {
	now := c.clock.Now()
	if now.Sub(c.lastBlink) >= c.timing.Heartbeat {
		c.emit(status.Event{Kind: status.Heartbeat})
		c.lastBlink = now
		c.setLED(!c.ledOn)
	}

	if start || pressed {
		c.begin(true)
	}
}

func (c *Controller) fail(start, pressed bool) {
	if !c.begun {
		c.emit(status.Event{Kind: status.Fail})
		c.begun = true
	}

	now := c.clock.Now()
	if now.Sub(c.lastBlink) >= c.timing.FailBlink {
		c.lastBlink = now
		c.setLED(!c.ledOn)
	}

	if start || pressed {
		c.begin(pressed)
	}
}

// begin starts a new run: reset the target, drop all per run state and enter WaitAllHigh.
func (c *Controller) begin(waitRelease bool) {
	if waitRelease && c.button != nil {
		c.unlocked(c.button.WaitRelease)
	}

	c.run = newRun(len(c.lines), c.clock.Now())
	c.runs++
	c.emit(status.Event{Kind: status.Start})

	c.unlocked(func() {
		if err := c.pulser.Pulse(); err != nil {
			debug.ErrorLog.Printf("can't pulse reset line: %v", err)
		}
	})

	c.setLED(false)
	c.toPhase(WaitAllHigh)
}

// waitAll handles WaitAllHigh and WaitAllLow. A timeout is reported but the run continues with next.
func (c *Controller) waitAll(sample port.Sample, level port.StateType, timeout time.Duration, next Phase) {
	c.beginMarker()

	if sample.All(level) {
		c.emit(status.Event{Kind: status.OK, Stage: c.phase.Stage()})
		if level == port.High {
			c.run.AllHighOK = true
		} else {
			c.run.AllLowOK = true
		}
		c.toPhase(next)
		return
	}

	if c.clock.Now().Sub(c.phaseStart) > timeout {
		wrong := port.High
		if level == port.High {
			wrong = port.Low
		}

		f := &Fault{
			Err:      ErrHoldTimeout,
			Phase:    c.phase,
			Lines:    c.labels(sample.Indices(wrong)),
			Expected: -1,
			Received: -1,
		}
		c.run.Holds = append(c.run.Holds, f)
		c.observer.HoldTimeout(c.phase)
		c.emitFault(f)
		c.toPhase(next)
	}
}

// sequence counts rising edges and checks they arrive one at a time in line set order.
func (c *Controller) sequence(sample port.Sample) {
	c.beginMarker()

	highs, idx := sample.Count(port.High)
	switch {
	case highs > 1:
		c.failRun(&Fault{
			Err:      ErrMultipleHigh,
			Phase:    Sequence,
			Lines:    c.labels(sample.Indices(port.High)),
			Expected: c.run.Expected,
			Received: -1,
		})
		return

	case highs == 1:
		if c.run.Latched[idx] {
			// still the same high level, no new edge
			break
		}

		c.run.Latched[idx] = true
		c.observer.Edge(port.Event{Timestamp: c.clock.Now(), Index: idx, Type: port.RisingEdge})
		c.emit(status.Event{Kind: status.LineOK, Stage: status.Sequence, Line: c.lines[idx].Label})

		switch {
		case idx == c.run.Expected:
			c.run.Expected++
			if c.run.Expected == len(c.lines) {
				c.emit(status.Event{Kind: status.AllOK, Stage: status.Sequence})
				c.setLED(true)
				c.finish(Passed)
				c.toPhase(Success)
				return
			}
		case idx > c.run.Expected:
			c.failRun(&Fault{
				Err:           ErrOutOfOrder,
				Phase:         Sequence,
				Lines:         []string{c.lines[idx].Label},
				Expected:      c.run.Expected,
				ExpectedLabel: c.lines.Label(c.run.Expected),
				Received:      idx,
				ReceivedLabel: c.lines[idx].Label,
			})
			return
		default:
			c.failRun(&Fault{
				Err:           ErrRepeatedEdge,
				Phase:         Sequence,
				Lines:         []string{c.lines[idx].Label},
				Expected:      c.run.Expected,
				ExpectedLabel: c.lines.Label(c.run.Expected),
				Received:      idx,
				ReceivedLabel: c.lines[idx].Label,
			})
			return
		}

	default:
		// no line high: re-arm the edge detection of all low lines
		for i, level := range sample {
			if level == port.Low {
				c.run.Latched[i] = false
			}
		}
	}

	if c.clock.Now().Sub(c.phaseStart) > c.timing.SequenceTimeout {
		c.failRun(&Fault{
			Err:           ErrSequenceTimeout,
			Phase:         Sequence,
			Lines:         []string{c.lines.Label(c.run.Expected)},
			Expected:      c.run.Expected,
			ExpectedLabel: c.lines.Label(c.run.Expected),
			Received:      -1,
		})
	}
}

func (c *Controller) failRun(f *Fault) {
	c.run.Fault = f
	c.emitFault(f)
	c.finish(Failed)
	c.toPhase(Fail)
}

func (c *Controller) finish(o Outcome) {
	c.outcome = o
	c.observer.RunFinished(o, c.clock.Now().Sub(c.run.Started), c.run.Fault)
	debug.InfoLog.Printf("run %s %v after %v", c.run.ID, o, c.clock.Now().Sub(c.run.Started))
}

func (c *Controller) flash() {
	c.emit(status.Event{Kind: status.FlashCommand})
	c.unlocked(func() {
		if err := c.pulser.Double(); err != nil {
			debug.ErrorLog.Printf("can't send flash request: %v", err)
		}
	})
}

// unlocked runs a blocking hardware wait without holding mu, so Status readers are not
// stalled. Only Step writes the state, it stays consistent while the lock is released.
func (c *Controller) unlocked(f func()) {
	c.mu.Unlock()
	defer c.mu.Lock()
	f()
}

func (c *Controller) toPhase(p Phase) {
	c.phase = p
	c.phaseStart = c.clock.Now()
	c.begun = false
	c.observer.PhaseEntered(p)
}

func (c *Controller) beginMarker() {
	if !c.begun {
		c.emit(status.Event{Kind: status.Begin, Stage: c.phase.Stage()})
		c.begun = true
	}
}

func (c *Controller) setLED(on bool) {
	c.ledOn = on
	if c.led == nil {
		return
	}

	level := port.Low
	if on {
		level = port.High
	}
	if err := c.led.Set(level); err != nil {
		debug.ErrorLog.Printf("can't set status led: %v", err)
	}
}

func (c *Controller) labels(idx []int) []string {
	labels := make([]string, len(idx))
	for i, n := range idx {
		labels[i] = c.lines[n].Label
	}
	return labels
}

func (c *Controller) emit(e status.Event) {
	e.Time = c.clock.Now()
	e.Source = status.Master
	e.RunID = c.run.ID
	c.report.Report(e)
}

func (c *Controller) emitFault(f *Fault) {
	c.emit(status.Event{Kind: status.Error, Stage: f.Phase.Stage(), Detail: f.Detail(), Lines: f.Lines})
}
