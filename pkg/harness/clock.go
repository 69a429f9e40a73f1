package harness

import "time"

// Clock is the time source of the controller.
// Sleep is used for the blocking parts (reset pulse, button release) only.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
