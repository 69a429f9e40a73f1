package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pintest/pkg/port"
)

type brokenInput struct{}

func (brokenInput) Level() (port.StateType, error) { return port.Invalid, errors.New("read failed") }

func TestButtonDebounce(t *testing.T) {
	clock := newFakeClock()
	in := &fakeButton{clock: clock}
	b := NewButton(in, clock, 50*time.Millisecond, 10*time.Millisecond)

	assert.False(t, b.Pressed())

	in.press(time.Second)
	for i := 0; i <= 10; i++ {
		assert.False(t, b.Pressed(), "pressed after %d ms", i*5)
		clock.Sleep(5 * time.Millisecond)
	}
	assert.True(t, b.Pressed())

	b.WaitRelease()
	assert.False(t, clock.Now().Before(in.releaseAt))
	assert.False(t, b.Pressed())
}

func TestButtonReadError(t *testing.T) {
	b := NewButton(brokenInput{}, newFakeClock(), 50*time.Millisecond, 10*time.Millisecond)
	assert.False(t, b.Pressed())
	b.WaitRelease()
}

func TestPulser(t *testing.T) {
	clock := newFakeClock()
	line := &fakeOutput{}
	sent := 0

	p := NewPulser(line, clock, 100*time.Millisecond, 200*time.Millisecond, func() { sent++ })
	assert.Equal(t, []port.StateType{port.High}, line.levels)

	start := clock.Now()
	require.NoError(t, p.Pulse())
	assert.Equal(t, []port.StateType{port.High, port.Low, port.High}, line.levels)
	assert.Equal(t, 100*time.Millisecond, clock.Now().Sub(start))
	assert.Equal(t, 1, sent)

	start = clock.Now()
	require.NoError(t, p.Double())
	assert.Equal(t, []port.StateType{port.High, port.Low, port.High, port.Low, port.High, port.Low, port.High}, line.levels)
	assert.Equal(t, 400*time.Millisecond, clock.Now().Sub(start))
	assert.Equal(t, 3, sent)
}
