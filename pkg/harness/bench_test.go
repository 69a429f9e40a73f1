package harness

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pintest/pkg/port"
	"pintest/pkg/sequencer"
	"pintest/pkg/status"
)

// labels is the line set of the reference harness, line 0 monitors the target power rail.
var labels = []string{
	"P1_07(VCC)", "P0_31", "P0_29", "P0_02", "P1_15", "P1_13", "P1_11", "P0_10", "P0_09", "P1_06",
	"P1_04", "P0_11", "P1_00", "P0_24", "P0_22", "P0_20", "P0_17", "P0_08", "P0_06",
}

func testLines() port.LineSet {
	ls := make(port.LineSet, len(labels))
	for i, l := range labels {
		ls[i] = port.Line{Label: l, Offset: i}
	}
	return ls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeOutput records the levels written to it.
type fakeOutput struct {
	levels []port.StateType
}

func (o *fakeOutput) Set(s port.StateType) error {
	o.levels = append(o.levels, s)
	return nil
}

func (o *fakeOutput) last() port.StateType {
	if len(o.levels) == 0 {
		return port.Invalid
	}
	return o.levels[len(o.levels)-1]
}

// fakeButton is pressed (low) between pressAt and releaseAt.
type fakeButton struct {
	clock     *fakeClock
	pressAt   time.Time
	releaseAt time.Time
}

func (b *fakeButton) Level() (port.StateType, error) {
	now := b.clock.Now()
	if !now.Before(b.pressAt) && now.Before(b.releaseAt) {
		return port.Low, nil
	}
	return port.High, nil
}

// press holds the button from now for d.
func (b *fakeButton) press(d time.Duration) {
	b.pressAt = b.clock.Now()
	b.releaseAt = b.pressAt.Add(d)
}

// bench is a master controller wired to a simulated target.
type bench struct {
	t      *testing.T
	clock  *fakeClock
	sim    *sequencer.Sim
	rec    *status.Recorder
	led    *fakeOutput
	button *fakeButton
	ctl    *Controller
}

func standardPlan() sequencer.Plan {
	return sequencer.Standard(len(labels), sequencer.DefaultTiming())
}

// orderedPlan is the standard plan with the sequence stage raising lines in the given order.
func orderedPlan(steps ...[]int) sequencer.Plan {
	t := sequencer.DefaultTiming()
	p := standardPlan()
	p.Steps = p.Steps[:2]
	for _, high := range steps {
		p.Steps = append(p.Steps,
			sequencer.Step{High: high, Hold: t.High, Stage: status.Sequence},
			sequencer.Step{Hold: t.Low, Stage: status.Sequence},
		)
	}
	return p
}

func newBench(t *testing.T, plan sequencer.Plan) *bench {
	t.Helper()

	clock := newFakeClock()
	b := &bench{
		t:      t,
		clock:  clock,
		sim:    sequencer.NewSim(plan, clock),
		rec:    status.NewRecorder(0),
		led:    &fakeOutput{},
		button: &fakeButton{clock: clock},
	}

	ctl, err := New(testLines(), DefaultTiming(), Hardware{
		Lines:  b.sim,
		Reset:  b.sim,
		LED:    b.led,
		Button: b.button,
	}, WithClock(clock), WithReporter(b.rec))
	require.NoError(t, err)
	b.ctl = ctl
	return b
}

// step runs one iteration and waits one poll interval.
func (b *bench) step() {
	b.ctl.Step()
	b.clock.Sleep(b.ctl.Timing().Poll)
}

// runUntil steps until cond holds, at most for max of simulated time.
func (b *bench) runUntil(cond func(Snapshot) bool, max time.Duration) Snapshot {
	b.t.Helper()

	end := b.clock.Now().Add(max)
	for b.clock.Now().Before(end) {
		b.step()
		if s := b.ctl.Status(); cond(s) {
			return s
		}
	}
	b.t.Fatalf("condition not reached within %v, phase %v", max, b.ctl.Status().Phase)
	return Snapshot{}
}

// start requests a start and runs the iteration that consumes it.
func (b *bench) start() {
	b.ctl.RequestStart()
	b.step()
}

func inPhase(p Phase) func(Snapshot) bool {
	return func(s Snapshot) bool { return s.Phase == p }
}

// finished waits for the end of the current run.
func (b *bench) finished() Snapshot {
	b.t.Helper()
	return b.runUntil(func(s Snapshot) bool {
		return s.Phase == WaitButton || s.Phase == Fail
	}, 30*time.Second)
}

// accepted returns the labels of all line ok events.
func (b *bench) accepted() []string {
	var l []string
	for _, e := range b.rec.Filter(status.LineOK) {
		l = append(l, e.Line)
	}
	return l
}

func (b *bench) faults() []status.Event {
	return b.rec.Filter(status.Error)
}
