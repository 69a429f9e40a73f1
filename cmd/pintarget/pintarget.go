package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
	"pintest/pkg/app"
	"pintest/pkg/app/config"
	"pintest/pkg/port"
	"pintest/pkg/raspberry"
	"pintest/pkg/sequencer"
	"pintest/pkg/status"
)

const (
	module            = "pintarget"
	defaultConfigFile = "/opt/womat/config/" + module + ".yaml"
)

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    module,
		Usage:   "Target sequencer of the two node gpio test harness",
		Version: app.VERSION,
		Description: "Drive the test lines once after start: all high, all low, then every line alone in line set order." +
			"\n The master's reset line is wired to the board reset (e.g. the RUN pin of a raspberry pi)," +
			"\n so every reset pulse restarts the board and this sequence from the top.",
		UsageText: "pintarget [--config <file>] [--log error|standard|debug|trace]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (error|standard|debug|trace)"},
		},
		Action: func(*cli.Context) error {
			if err := cfg.LoadConfig(); err != nil {
				return err
			}

			debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			defer func() { _ = cfg.Debug.File.Close() }()

			if cfg.GPIO.Driver == config.DriverEmulate {
				return errors.New("the target drives real gpio lines, use pinmaster --emulate instead")
			}

			gpio, err := raspberry.Open(cfg.GPIO.Driver, cfg.GPIO.Chip)
			if err != nil {
				return err
			}
			defer func() { _ = gpio.Close() }()

			bank, err := gpio.NewOutputBank(cfg.Lines.Offsets(), port.Low)
			if err != nil {
				return err
			}
			defer func() { _ = bank.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			plan := sequencer.Standard(len(cfg.Lines), cfg.TargetTiming)
			seq := sequencer.New(plan, bank, cfg.TargetTiming.Heartbeat, nil, status.NewConsole(os.Stdout))

			debug.InfoLog.Printf("starting %s with %d lines", module, len(cfg.Lines))
			if err = seq.Run(ctx); errors.Is(err, context.Canceled) {
				debug.InfoLog.Print("Got signal. Aborting...")
				return nil
			}
			return err
		},
	}

	sort.Sort(cli.FlagsByName(cliApp.Flags))

	if err := cliApp.Run(os.Args); err != nil {
		debug.FatalLog.Print(err)
		return
	}

	exitCode = 0
}
