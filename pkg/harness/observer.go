package harness

import (
	"time"

	"pintest/pkg/port"
)

// Observer is notified about the progress of the state machine (e.g. metrics).
type Observer interface {
	PhaseEntered(Phase)
	Edge(port.Event)
	HoldTimeout(Phase)
	RunFinished(o Outcome, d time.Duration, f *Fault)
}

type nopObserver struct{}

func (nopObserver) PhaseEntered(Phase)                         {}
func (nopObserver) Edge(port.Event)                            {}
func (nopObserver) HoldTimeout(Phase)                          {}
func (nopObserver) RunFinished(Outcome, time.Duration, *Fault) {}
