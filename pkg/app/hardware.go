package app

import (
	"io"

	"github.com/womat/debug"
	"pintest/pkg/app/config"
	"pintest/pkg/harness"
	"pintest/pkg/port"
	"pintest/pkg/raspberry"
	"pintest/pkg/sequencer"
)

// openHardware requests the test lines, the reset line and the optional button and led.
// With the emulate driver the lines are served by an in-memory target.
func (app *App) openHardware() (harness.Hardware, error) {
	cfg := app.config

	if cfg.GPIO.Driver == config.DriverEmulate {
		debug.InfoLog.Printf("emulating target with %d lines", len(cfg.Lines))
		sim := sequencer.NewSim(sequencer.Standard(len(cfg.Lines), cfg.TargetTiming), nil)
		return harness.Hardware{Lines: sim, Reset: sim}, nil
	}

	var err error
	if app.gpio, err = raspberry.Open(cfg.GPIO.Driver, cfg.GPIO.Chip); err != nil {
		return harness.Hardware{}, err
	}

	var hw harness.Hardware

	lines, err := app.gpio.NewInputs(cfg.Lines.Offsets(), cfg.GPIO.Terminator)
	if err != nil {
		return hw, err
	}
	app.keep(lines)
	hw.Lines = lines

	reset, err := app.gpio.NewOutput(cfg.GPIO.Reset, port.High)
	if err != nil {
		return hw, err
	}
	app.keep(reset)
	hw.Reset = reset

	if cfg.GPIO.Button >= 0 {
		button, err := app.gpio.NewInput(cfg.GPIO.Button, "pullup")
		if err != nil {
			return hw, err
		}
		app.keep(button)
		hw.Button = button
	}

	if cfg.GPIO.LED >= 0 {
		led, err := app.gpio.NewOutput(cfg.GPIO.LED, port.Low)
		if err != nil {
			return hw, err
		}
		app.keep(led)
		hw.LED = led
	}

	debug.InfoLog.Printf("%s: %d test lines, reset %d, button %d, led %d",
		cfg.GPIO.Driver, len(cfg.Lines), cfg.GPIO.Reset, cfg.GPIO.Button, cfg.GPIO.LED)
	return hw, nil
}

// keep registers a line to be closed with the app.
func (app *App) keep(c io.Closer) {
	app.lines = append(app.lines, c)
}
