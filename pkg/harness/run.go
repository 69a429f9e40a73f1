package harness

import (
	"time"

	"github.com/google/uuid"
)

// Run is the state of a single test run, from start request to Success or Fail.
// It is created from scratch on every start, nothing is carried over.
type Run struct {
	ID      string
	Started time.Time
	// Expected is the index of the next line expected to rise. It only increases.
	Expected int
	// Latched holds per line whether it was last observed high (edge detection).
	Latched []bool
	// AllHighOK and AllLowOK are informational, the outcome only depends on the sequence.
	AllHighOK bool
	AllLowOK  bool
	// Holds are the non-fatal hold phase timeouts.
	Holds []*Fault
	// Fault is the fatal violation which failed the run.
	Fault *Fault
}

func newRun(lines int, now time.Time) Run {
	return Run{
		ID:      uuid.NewString(),
		Started: now,
		Latched: make([]bool, lines),
	}
}
