//go:build linux
// +build linux

package raspberry

import (
	"fmt"

	"github.com/warthog618/gpiod"
	"pintest/pkg/port"
)

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Lines is a set of requested input lines.
type Lines struct {
	gpiodLines *gpiod.Lines
	values     []int
}

// Line represents a single requested line.
type Line struct {
	gpiodLine *gpiod.Line
}

// Bank is a set of requested output lines.
type Bank struct {
	gpiodLines *gpiod.Lines
	values     []int
}

// openChip opens a GPIO character device.
func openChip(name string) (Driver, error) {
	c, err := gpiod.NewChip(name, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Chip{gpiodChip: c}, nil
}

// bias returns the request option of the terminator.
func bias(terminator string) ([]gpiod.LineReqOption, error) {
	if err := checkTerminator(terminator); err != nil {
		return nil, err
	}

	opts := []gpiod.LineReqOption{gpiod.AsInput}
	switch terminator {
	case "pullup":
		opts = append(opts, gpiod.WithPullUp)
	case "pulldown":
		opts = append(opts, gpiod.WithPullDown)
	}
	return opts, nil
}

// NewInputs requests a set of input lines.
// All lines are read by a single request, so a Sample is one atomic snapshot.
func (c *Chip) NewInputs(offsets []int, terminator string) (Inputs, error) {
	opts, err := bias(terminator)
	if err != nil {
		return nil, err
	}

	l, err := c.gpiodChip.RequestLines(offsets, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input lines %v: %w", offsets, err)
	}
	return &Lines{gpiodLines: l, values: make([]int, len(offsets))}, nil
}

// NewInput requests a single input line.
func (c *Chip) NewInput(offset int, terminator string) (Input, error) {
	opts, err := bias(terminator)
	if err != nil {
		return nil, err
	}

	l, err := c.gpiodChip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input line %v: %w", offset, err)
	}
	return &Line{gpiodLine: l}, nil
}

// NewOutput requests a single output line, driven to initial.
func (c *Chip) NewOutput(offset int, initial port.StateType) (Output, error) {
	v, err := toValue(initial)
	if err != nil {
		return nil, err
	}

	l, err := c.gpiodChip.RequestLine(offset, gpiod.AsOutput(v))
	if err != nil {
		return nil, fmt.Errorf("request output line %v: %w", offset, err)
	}
	return &Line{gpiodLine: l}, nil
}

// NewOutputBank requests a set of output lines, all driven to initial.
func (c *Chip) NewOutputBank(offsets []int, initial port.StateType) (OutputBank, error) {
	v, err := toValue(initial)
	if err != nil {
		return nil, err
	}

	values := make([]int, len(offsets))
	for i := range values {
		values[i] = v
	}

	l, err := c.gpiodChip.RequestLines(offsets, gpiod.AsOutput(values...))
	if err != nil {
		return nil, fmt.Errorf("request output lines %v: %w", offsets, err)
	}
	return &Bank{gpiodLines: l, values: values}, nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Sample reads the current level of all lines.
func (l *Lines) Sample() (port.Sample, error) {
	if err := l.gpiodLines.Values(l.values); err != nil {
		return nil, err
	}

	s := make(port.Sample, len(l.values))
	for i, v := range l.values {
		s[i] = port.Level(v)
	}
	return s, nil
}

// Close releases all resources held by the requested lines.
func (l *Lines) Close() error {
	return l.gpiodLines.Close()
}

// Level reads the current level of the line.
func (l *Line) Level() (port.StateType, error) {
	v, err := l.gpiodLine.Value()
	if err != nil {
		return port.Invalid, err
	}
	return port.Level(v), nil
}

// Set drives the output line.
func (l *Line) Set(s port.StateType) error {
	v, err := toValue(s)
	if err != nil {
		return err
	}
	return l.gpiodLine.SetValue(v)
}

// Close releases all resources held by the requested line.
func (l *Line) Close() error {
	return l.gpiodLine.Close()
}

// Write drives all lines of the bank with a single request.
func (b *Bank) Write(s port.Sample) error {
	if len(s) != len(b.values) {
		return fmt.Errorf("sample of %d lines for bank of %d: %w", len(s), len(b.values), ErrInvalidParam)
	}

	for i, level := range s {
		v, err := toValue(level)
		if err != nil {
			return err
		}
		b.values[i] = v
	}
	return b.gpiodLines.SetValues(b.values)
}

// Close releases all resources held by the requested lines.
func (b *Bank) Close() error {
	return b.gpiodLines.Close()
}
