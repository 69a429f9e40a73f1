package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pintest/pkg/harness"
	"pintest/pkg/port"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pinmaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.LoadConfig())

	assert.Equal(t, harness.DefaultTiming(), c.MasterTiming)
	assert.Equal(t, 150*time.Millisecond, c.TargetTiming.MinHold())
	assert.Len(t, c.Lines, 19)
	assert.Equal(t, "P1_07(VCC)", c.Lines[0].Label)
	assert.Equal(t, "P0_06", c.Lines[18].Label)
}

func TestLoadConfig(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, `
gpio:
  driver: gpiomem
  reset: 25
  button: -1
  led: -1
lines:
  - label: VCC
    offset: 2
  - label: A
    offset: 3
timing:
  poll: 10
  sequence: 5000
target:
  high: 40
  low: 30
commands:
  source: ""
debug:
  flag: debug
  file: stdout
mqtt:
  connection: tcp://127.0.0.1:1883
  topic: bench/status
`)
	require.NoError(t, c.LoadConfig())

	assert.Equal(t, "gpiomem", c.GPIO.Driver)
	assert.Equal(t, "gpiochip0", c.GPIO.Chip)
	assert.Equal(t, 25, c.GPIO.Reset)
	assert.Equal(t, port.LineSet{{Label: "VCC", Offset: 2}, {Label: "A", Offset: 3}}, c.Lines)
	assert.Equal(t, 10*time.Millisecond, c.MasterTiming.Poll)
	assert.Equal(t, 5*time.Second, c.MasterTiming.SequenceTimeout)
	assert.Equal(t, 3*time.Second, c.MasterTiming.AllHighTimeout)
	assert.Equal(t, 30*time.Millisecond, c.TargetTiming.MinHold())
	assert.Empty(t, c.Commands.Source)
	assert.Equal(t, os.Stdout, c.Debug.File)
	assert.Equal(t, "bench/status", c.MQTT.Topic)
	assert.Equal(t, "pintest/command", c.MQTT.CommandTopic)
}

func TestFlagsOverride(t *testing.T) {
	c := NewConfig()
	c.Flag.Emulate = true
	c.Flag.Debug = "trace"
	require.NoError(t, c.LoadConfig())

	assert.Equal(t, DriverEmulate, c.GPIO.Driver)
	assert.Equal(t, "trace", c.Debug.FlagString)
}

func TestMissingFile(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.ErrorIs(t, c.LoadConfig(), os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		err    error
	}{
		{"driver", func(c *Config) { c.GPIO.Driver = "serial" }, ErrInvalidConfig},
		{"no lines", func(c *Config) { c.Lines = port.LineSet{} }, harness.ErrNoLines},
		{"duplicate label", func(c *Config) { c.Lines[1].Label = c.Lines[0].Label }, ErrInvalidConfig},
		{"duplicate offset", func(c *Config) { c.Lines[1].Offset = c.Lines[0].Offset }, ErrInvalidConfig},
		{"reset on a test line", func(c *Config) { c.GPIO.Reset = c.Lines[3].Offset }, ErrInvalidConfig},
		{"no reset", func(c *Config) { c.GPIO.Reset = -1 }, ErrInvalidConfig},
		{"zero timing", func(c *Config) { c.MasterTiming.Debounce = 0 }, ErrInvalidConfig},
		{"zero target timing", func(c *Config) { c.TargetTiming.AllLow = 0 }, ErrInvalidConfig},
		{"poll margin", func(c *Config) { c.MasterTiming.Poll = 60 * time.Millisecond }, harness.ErrTimingMargin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			c.Lines = DefaultLines()
			c.convert()
			require.NoError(t, c.Validate())

			tt.modify(c)
			assert.ErrorIs(t, c.Validate(), tt.err)
		})
	}
}

func TestLogLevel(t *testing.T) {
	c := NewConfig()
	c.Flag.Debug = "verbose"
	assert.ErrorIs(t, c.LoadConfig(), ErrInvalidConfig)
}
