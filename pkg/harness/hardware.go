package harness

import (
	"time"

	"github.com/womat/debug"
	"pintest/pkg/port"
)

// Sampler reads one snapshot of the line set.
type Sampler interface {
	Sample() (port.Sample, error)
}

// Output is a single output line.
type Output interface {
	Set(port.StateType) error
}

// Input is a single input line.
type Input interface {
	Level() (port.StateType, error)
}

// Hardware holds the lines used by the controller.
// LED and Button are optional.
type Hardware struct {
	Lines  Sampler
	Reset  Output
	LED    Output
	Button Input
}

// Button debounces the active low start button.
// A press counts once the level was low for longer than the debounce time.
type Button struct {
	in       Input
	clock    Clock
	debounce time.Duration
	poll     time.Duration

	last     port.StateType
	lastEdge time.Time
}

// NewButton creates a debounced button, assumed released at start.
func NewButton(in Input, clock Clock, debounce, poll time.Duration) *Button {
	return &Button{in: in, clock: clock, debounce: debounce, poll: poll, last: port.High}
}

// Pressed samples the button. It must be called once per iteration to follow the edges.
func (b *Button) Pressed() bool {
	level, err := b.in.Level()
	if err != nil {
		debug.ErrorLog.Printf("can't read button: %v", err)
		return false
	}

	now := b.clock.Now()
	if level != b.last {
		b.lastEdge = now
		b.last = level
	}
	return level == port.Low && now.Sub(b.lastEdge) > b.debounce
}

// WaitRelease blocks until the button reads high.
func (b *Button) WaitRelease() {
	for {
		level, err := b.in.Level()
		if err != nil {
			debug.ErrorLog.Printf("can't read button: %v", err)
			return
		}
		if level != port.Low {
			return
		}
		b.clock.Sleep(b.poll)
	}
}

// Pulser drives the reset line of the target.
type Pulser struct {
	line  Output
	clock Clock
	width time.Duration
	gap   time.Duration
	// sent is called before each pulse
	sent func()
}

// NewPulser creates a reset pulser and releases the reset line.
func NewPulser(line Output, clock Clock, width, gap time.Duration, sent func()) *Pulser {
	p := &Pulser{line: line, clock: clock, width: width, gap: gap, sent: sent}
	if err := line.Set(port.High); err != nil {
		debug.ErrorLog.Printf("can't release reset line: %v", err)
	}
	return p
}

// Pulse holds the reset line low for the pulse width and releases it.
// The target restarts its sequence from the top on release.
func (p *Pulser) Pulse() error {
	if p.sent != nil {
		p.sent()
	}

	if err := p.line.Set(port.Low); err != nil {
		return err
	}
	p.clock.Sleep(p.width)
	return p.line.Set(port.High)
}

// Double issues two pulses separated by the gap, the bootloader entry request of the target.
func (p *Pulser) Double() error {
	if err := p.Pulse(); err != nil {
		return err
	}
	p.clock.Sleep(p.gap)
	return p.Pulse()
}
