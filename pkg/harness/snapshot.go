package harness

import (
	"time"

	"pintest/pkg/port"
)

// Snapshot is a copy of the controller state for display.
type Snapshot struct {
	Phase         Phase     `json:"phase"`
	PhaseStart    time.Time `json:"phaseStart"`
	RunID         string    `json:"run,omitempty"`
	Runs          int       `json:"runs"`
	Expected      int       `json:"expected"`
	ExpectedLabel string    `json:"expectedLabel,omitempty"`
	Latched       []bool    `json:"latched,omitempty"`
	AllHighOK     bool      `json:"allHighOk"`
	AllLowOK      bool      `json:"allLowOk"`
	Holds         []string  `json:"holds,omitempty"`
	Outcome       Outcome   `json:"outcome"`
	Fault         string    `json:"fault,omitempty"`
}

// Status returns a snapshot of the current state.
func (c *Controller) Status() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Phase:      c.phase,
		PhaseStart: c.phaseStart,
		RunID:      c.run.ID,
		Runs:       c.runs,
		Expected:   c.run.Expected,
		Latched:    append([]bool(nil), c.run.Latched...),
		AllHighOK:  c.run.AllHighOK,
		AllLowOK:   c.run.AllLowOK,
		Outcome:    c.outcome,
	}
	if c.run.ID != "" {
		s.ExpectedLabel = c.lines.Label(c.run.Expected)
	}
	for _, h := range c.run.Holds {
		s.Holds = append(s.Holds, h.Error())
	}
	if c.run.Fault != nil {
		s.Fault = c.run.Fault.Error()
	}
	return s
}

// Lines returns the line set under test.
func (c *Controller) Lines() port.LineSet {
	return c.lines
}

// Timing returns the timing constants of the controller.
func (c *Controller) Timing() Timing {
	return c.timing
}
