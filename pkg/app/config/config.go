package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
	"pintest/pkg/harness"
	"pintest/pkg/port"
	"pintest/pkg/raspberry"
	"pintest/pkg/sequencer"
)

// DriverEmulate runs the master against an in-memory target.
const DriverEmulate = "emulate"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration. Attention!
// To make it possible to overwrite fields with the -overwrite command
// line option each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Flag      FlagConfig      `yaml:"-"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Lines     port.LineSet    `yaml:"lines"`
	Timing    TimingConfig    `yaml:"timing"`
	Target    TargetConfig    `yaml:"target"`
	Commands  CommandsConfig  `yaml:"commands"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`

	// MasterTiming and TargetTiming are converted from the millisecond fields.
	MasterTiming harness.Timing   `yaml:"-"`
	TargetTiming sequencer.Timing `yaml:"-"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Version    bool
	Debug      string
	ConfigFile string
	Emulate    bool
}

// GPIOConfig defines the gpio driver and the control lines.
// Button and LED are optional, a negative offset disables them.
type GPIOConfig struct {
	Driver     string `yaml:"driver"`
	Chip       string `yaml:"chip"`
	Terminator string `yaml:"terminator"`
	Reset      int    `yaml:"reset"`
	Button     int    `yaml:"button"`
	LED        int    `yaml:"led"`
}

// TimingConfig holds the master timing in milliseconds.
type TimingConfig struct {
	PollInt        int `yaml:"poll"`
	HeartbeatInt   int `yaml:"heartbeat"`
	FailBlinkInt   int `yaml:"failblink"`
	AllHighInt     int `yaml:"allhigh"`
	AllLowInt      int `yaml:"alllow"`
	SequenceInt    int `yaml:"sequence"`
	DebounceInt    int `yaml:"debounce"`
	ReleasePollInt int `yaml:"releasepoll"`
	ResetPulseInt  int `yaml:"resetpulse"`
	ResetGapInt    int `yaml:"resetgap"`
}

// TargetConfig holds the hold times of the target in milliseconds.
type TargetConfig struct {
	AllHighInt   int `yaml:"allhigh"`
	AllLowInt    int `yaml:"alllow"`
	HighInt      int `yaml:"high"`
	LowInt       int `yaml:"low"`
	HeartbeatInt int `yaml:"heartbeat"`
}

// CommandsConfig defines where operator commands are read from:
// "stdin", a file or tty path, or empty for none.
type CommandsConfig struct {
	Source string `yaml:"source"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection   string `yaml:"connection"`
	Topic        string `yaml:"topic"`
	CommandTopic string `yaml:"commandtopic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

// DefaultLines is the line set of the reference harness on BCM numbered pins.
// Line 0 monitors the target power rail.
func DefaultLines() port.LineSet {
	labels := []string{
		"P1_07(VCC)", "P0_31", "P0_29", "P0_02", "P1_15", "P1_13", "P1_11", "P0_10", "P0_09", "P1_06",
		"P1_04", "P0_11", "P1_00", "P0_24", "P0_22", "P0_20", "P0_17", "P0_08", "P0_06",
	}
	offsets := []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 18, 19, 20, 21}

	ls := make(port.LineSet, len(labels))
	for i := range labels {
		ls[i] = port.Line{Label: labels[i], Offset: offsets[i]}
	}
	return ls
}

func NewConfig() *Config {
	return &Config{
		Flag: FlagConfig{},
		GPIO: GPIOConfig{
			Driver:     raspberry.DriverGpiod,
			Chip:       "gpiochip0",
			Terminator: "pulldown",
			Reset:      17,
			Button:     27,
			LED:        22,
		},
		Timing: TimingConfig{
			PollInt:        5,
			HeartbeatInt:   500,
			FailBlinkInt:   150,
			AllHighInt:     3000,
			AllLowInt:      3000,
			SequenceInt:    15000,
			DebounceInt:    50,
			ReleasePollInt: 10,
			ResetPulseInt:  100,
			ResetGapInt:    200,
		},
		Target: TargetConfig{
			AllHighInt:   1000,
			AllLowInt:    1000,
			HighInt:      150,
			LowInt:       150,
			HeartbeatInt: 1000,
		},
		Commands: CommandsConfig{Source: "stdin"},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"status":  true,
				"start":   true,
				"flash":   true,
				"command": true,
				"metrics": true,
			},
		},
		MQTT: MQTTConfig{
			Topic:        "pintest/status",
			CommandTopic: "pintest/command",
		},
	}
}

func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if c.Flag.Emulate {
		c.GPIO.Driver = DriverEmulate
	}
	if len(c.Lines) == 0 {
		c.Lines = DefaultLines()
	}

	c.convert()
	if err := c.Validate(); err != nil {
		return err
	}

	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}
	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// convert fills the timing structs from the millisecond fields.
func (c *Config) convert() {
	t := c.Timing
	c.MasterTiming = harness.Timing{
		Poll:            ms(t.PollInt),
		Heartbeat:       ms(t.HeartbeatInt),
		FailBlink:       ms(t.FailBlinkInt),
		AllHighTimeout:  ms(t.AllHighInt),
		AllLowTimeout:   ms(t.AllLowInt),
		SequenceTimeout: ms(t.SequenceInt),
		Debounce:        ms(t.DebounceInt),
		ReleasePoll:     ms(t.ReleasePollInt),
		ResetPulse:      ms(t.ResetPulseInt),
		ResetGap:        ms(t.ResetGapInt),
	}

	g := c.Target
	c.TargetTiming = sequencer.Timing{
		AllHigh:   ms(g.AllHighInt),
		AllLow:    ms(g.AllLowInt),
		High:      ms(g.HighInt),
		Low:       ms(g.LowInt),
		Heartbeat: ms(g.HeartbeatInt),
	}
}

// Validate checks the line set, the control lines and the timing contract.
func (c *Config) Validate() error {
	switch c.GPIO.Driver {
	case raspberry.DriverGpiod, raspberry.DriverGpiomem, DriverEmulate:
	default:
		return fmt.Errorf("gpio driver %q: %w", c.GPIO.Driver, ErrInvalidConfig)
	}

	if len(c.Lines) == 0 {
		return fmt.Errorf("lines: %w", harness.ErrNoLines)
	}

	labels := map[string]bool{}
	offsets := map[int]string{}
	for name, o := range map[string]int{"reset": c.GPIO.Reset, "button": c.GPIO.Button, "led": c.GPIO.LED} {
		if o >= 0 {
			if other, ok := offsets[o]; ok {
				return fmt.Errorf("offset %d used by %s and %s: %w", o, other, name, ErrInvalidConfig)
			}
			offsets[o] = name
		}
	}
	if c.GPIO.Reset < 0 {
		return fmt.Errorf("reset offset %d: %w", c.GPIO.Reset, ErrInvalidConfig)
	}

	for _, l := range c.Lines {
		if l.Label == "" {
			return fmt.Errorf("line at offset %d without label: %w", l.Offset, ErrInvalidConfig)
		}
		if labels[l.Label] {
			return fmt.Errorf("duplicate label %q: %w", l.Label, ErrInvalidConfig)
		}
		labels[l.Label] = true

		if other, ok := offsets[l.Offset]; ok {
			return fmt.Errorf("offset %d used by %s and %s: %w", l.Offset, other, l.Label, ErrInvalidConfig)
		}
		offsets[l.Offset] = l.Label
	}

	if err := c.MasterTiming.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	t := c.TargetTiming
	if t.AllHigh <= 0 || t.AllLow <= 0 || t.High <= 0 || t.Low <= 0 || t.Heartbeat <= 0 {
		return fmt.Errorf("target timing must be positive: %w", ErrInvalidConfig)
	}
	return harness.CheckMargin(c.MasterTiming.Poll, t.MinHold())
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard", "info":
		c.Debug.Flag = debug.Standard
	case "error":
		c.Debug.Flag = debug.Error | debug.Fatal
	default:
		return fmt.Errorf("log level %q: %w", c.Debug.FlagString, ErrInvalidConfig)
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
