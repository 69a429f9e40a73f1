//go:build linux
// +build linux

package raspberry

import (
	"fmt"
	"sync"

	"github.com/warthog618/gpio"
	"pintest/pkg/port"
)

// Mem is the raspberry pi gpio memory (/dev/gpiomem).
type Mem struct {
	// pins holds the BCM numbers in use, the memory map allows one owner per pin
	pins map[int]bool
	mu   sync.Mutex
}

// MemPins is a group of pins of the gpio memory.
type MemPins struct {
	mem  *Mem
	pins []*gpio.Pin
}

// MemPin is a single pin of the gpio memory.
type MemPin struct {
	mem *Mem
	pin *gpio.Pin
}

// openMem maps the GPIO memory range from /dev/gpiomem.
func openMem() (Driver, error) {
	if err := gpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpiomem: %w", err)
	}
	return &Mem{pins: map[int]bool{}}, nil
}

// Close unmaps GPIO memory.
func (m *Mem) Close() error {
	return gpio.Close()
}

// claim marks the pins as used.
func (m *Mem) claim(pins ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range pins {
		if m.pins[p] {
			return fmt.Errorf("pin %v already used", p)
		}
	}
	for _, p := range pins {
		m.pins[p] = true
	}
	return nil
}

func (m *Mem) release(pins ...*gpio.Pin) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range pins {
		delete(m.pins, p.Pin())
	}
}

// input configures a pin as input with the requested pull.
func input(p *gpio.Pin, terminator string) {
	p.Input()
	switch terminator {
	case "pullup":
		p.PullUp()
	case "pulldown":
		p.PullDown()
	default:
		p.PullNone()
	}
}

// NewInputs creates a group of input pins.
// The pins are read one after another, each level is read exactly once per Sample.
func (m *Mem) NewInputs(bcm []int, terminator string) (Inputs, error) {
	if err := checkTerminator(terminator); err != nil {
		return nil, err
	}
	if err := m.claim(bcm...); err != nil {
		return nil, err
	}

	p := &MemPins{mem: m}
	for _, n := range bcm {
		pin := gpio.NewPin(n)
		input(pin, terminator)
		p.pins = append(p.pins, pin)
	}
	return p, nil
}

// NewInput creates a single input pin.
func (m *Mem) NewInput(bcm int, terminator string) (Input, error) {
	if err := checkTerminator(terminator); err != nil {
		return nil, err
	}
	if err := m.claim(bcm); err != nil {
		return nil, err
	}

	pin := gpio.NewPin(bcm)
	input(pin, terminator)
	return &MemPin{mem: m, pin: pin}, nil
}

// NewOutput creates a single output pin, driven to initial.
func (m *Mem) NewOutput(bcm int, initial port.StateType) (Output, error) {
	if _, err := toValue(initial); err != nil {
		return nil, err
	}
	if err := m.claim(bcm); err != nil {
		return nil, err
	}

	p := &MemPin{mem: m, pin: gpio.NewPin(bcm)}
	_ = p.Set(initial)
	p.pin.Output()
	return p, nil
}

// NewOutputBank creates a group of output pins, all driven to initial.
func (m *Mem) NewOutputBank(bcm []int, initial port.StateType) (OutputBank, error) {
	if _, err := toValue(initial); err != nil {
		return nil, err
	}
	if err := m.claim(bcm...); err != nil {
		return nil, err
	}

	p := &MemPins{mem: m}
	for _, n := range bcm {
		pin := gpio.NewPin(n)
		pin.Write(gpio.Level(initial == port.High))
		pin.Output()
		p.pins = append(p.pins, pin)
	}
	return p, nil
}

// Sample reads the level of all pins.
func (p *MemPins) Sample() (port.Sample, error) {
	if p.pins == nil {
		return nil, ErrClosed
	}

	s := make(port.Sample, len(p.pins))
	for i, pin := range p.pins {
		if pin.Read() == gpio.High {
			s[i] = port.High
		} else {
			s[i] = port.Low
		}
	}
	return s, nil
}

// Write drives all pins of the group.
func (p *MemPins) Write(s port.Sample) error {
	if len(s) != len(p.pins) {
		return fmt.Errorf("sample of %d lines for bank of %d: %w", len(s), len(p.pins), ErrInvalidParam)
	}

	for i, level := range s {
		if _, err := toValue(level); err != nil {
			return err
		}
		p.pins[i].Write(gpio.Level(level == port.High))
	}
	return nil
}

// Close releases the pins. Output pins are switched back to input.
func (p *MemPins) Close() error {
	for _, pin := range p.pins {
		pin.Input()
	}
	p.mem.release(p.pins...)
	p.pins = nil
	return nil
}

// Level reads the pin state (high/low).
func (p *MemPin) Level() (port.StateType, error) {
	if p.pin.Read() == gpio.High {
		return port.High, nil
	}
	return port.Low, nil
}

// Set drives the pin.
func (p *MemPin) Set(s port.StateType) error {
	switch s {
	case port.High:
		p.pin.High()
	case port.Low:
		p.pin.Low()
	default:
		return fmt.Errorf("level %v: %w", s, ErrInvalidParam)
	}
	return nil
}

// Close switches the pin back to input and releases it.
func (p *MemPin) Close() error {
	p.pin.Input()
	p.mem.release(p.pin)
	return nil
}
