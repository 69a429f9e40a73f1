// Package raspberry provides access to the gpio lines of the master and target boards.
//
// Two drivers are supported:
//   - gpiod    uses the gpio character device (/dev/gpiochipN), lines are addressed by chip offset
//   - gpiomem  uses the memory mapped gpio registers of a raspberry pi, lines are addressed by BCM number
package raspberry

import (
	"errors"
	"fmt"

	"pintest/pkg/port"
)

const (
	DriverGpiod   = "gpiod"
	DriverGpiomem = "gpiomem"

	// consumer is the label shown for requested lines (e.g. by gpioinfo).
	consumer = "pintest"
)

var (
	ErrInvalidParam = fmt.Errorf("invalid parameters")
	ErrUnsupported  = errors.New("gpio driver not supported on this platform")
	ErrClosed       = errors.New("gpio line already closed")
)

// Inputs is a group of input lines sampled together.
type Inputs interface {
	// Sample reads all lines. The driver reads the levels as close to one instant as it can.
	Sample() (port.Sample, error)
	Close() error
}

// Input is a single input line, e.g. the start button.
type Input interface {
	Level() (port.StateType, error)
	Close() error
}

// Output is a single output line, e.g. the reset line or the status led.
type Output interface {
	Set(port.StateType) error
	Close() error
}

// OutputBank is a group of output lines written together (used by the target).
type OutputBank interface {
	Write(port.Sample) error
	Close() error
}

// Driver hands out lines of one gpio controller.
type Driver interface {
	NewInputs(offsets []int, terminator string) (Inputs, error)
	NewInput(offset int, terminator string) (Input, error)
	NewOutput(offset int, initial port.StateType) (Output, error)
	NewOutputBank(offsets []int, initial port.StateType) (OutputBank, error)
	Close() error
}

// Open opens the gpio driver.
// chip is only used by the gpiod driver (e.g. gpiochip0).
func Open(driver, chip string) (Driver, error) {
	switch driver {
	case DriverGpiod:
		return openChip(chip)
	case DriverGpiomem:
		return openMem()
	default:
		return nil, fmt.Errorf("driver %q: %w", driver, ErrInvalidParam)
	}
}

// checkTerminator validates the pull configuration of an input line.
func checkTerminator(terminator string) error {
	switch terminator {
	case "pullup", "pulldown", "none":
		return nil
	default:
		return fmt.Errorf("terminator %q: %w", terminator, ErrInvalidParam)
	}
}

// toValue converts a level to the raw line value.
func toValue(s port.StateType) (int, error) {
	switch s {
	case port.High:
		return 1, nil
	case port.Low:
		return 0, nil
	default:
		return 0, fmt.Errorf("level %v: %w", s, ErrInvalidParam)
	}
}
