package sequencer

import (
	"sync"
	"time"

	"pintest/pkg/port"
)

// Sim is an in-memory target. It answers samples from its plan relative to the last
// reset release and takes the master's reset line as input.
//
// Lines can be forced to a level to simulate wiring faults.
type Sim struct {
	plan  Plan
	clock Clock

	mu      sync.Mutex
	boot    time.Time
	inReset bool
	boots   int
	forced  map[int]port.StateType
}

// NewSim creates a target that boots now. clock may be nil for the wall clock.
func NewSim(plan Plan, clock Clock) *Sim {
	if clock == nil {
		clock = systemClock{}
	}
	return &Sim{plan: plan, clock: clock, boot: clock.Now(), boots: 1, forced: map[int]port.StateType{}}
}

// Sample returns the line levels driven by the target now.
func (s *Sim) Sample() (port.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var levels port.Sample
	if s.inReset {
		levels = port.NewSample(s.plan.Lines, port.Low)
	} else {
		levels = s.plan.LevelsAt(s.clock.Now().Sub(s.boot))
	}

	for i, l := range s.forced {
		levels[i] = l
	}
	return levels, nil
}

// Set is the reset input of the target: low holds it in reset, the release restarts the plan.
func (s *Sim) Set(level port.StateType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case level == port.Low:
		s.inReset = true
	case s.inReset:
		s.inReset = false
		s.boot = s.clock.Now()
		s.boots++
	}
	return nil
}

// Close implements the output interface of the gpio drivers.
func (s *Sim) Close() error { return nil }

// Force pins line i to level regardless of the plan.
func (s *Sim) Force(i int, level port.StateType) {
	s.mu.Lock()
	s.forced[i] = level
	s.mu.Unlock()
}

// Release removes a forced level.
func (s *Sim) Release(i int) {
	s.mu.Lock()
	delete(s.forced, i)
	s.mu.Unlock()
}

// Boots returns how often the target started, including power up.
func (s *Sim) Boots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boots
}
