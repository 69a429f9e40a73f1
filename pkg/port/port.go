// Package port holds the definition of the physical test lines
package port

import (
	"strings"
	"time"
)

// EventType indicates the type of change to the line active state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

// Event is a detected level change of one line of the line set.
type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Time
	// Index is the position of the line in the line set.
	Index int
	// The type of state change event this structure represents.
	Type EventType
}

type StateType int

const (
	// High indicates a logical 1.
	High StateType = 1
	// Low indicates a logical 0.
	Low StateType = 0
	// Invalid indicates an unknown or invalid state.
	Invalid StateType = -1
)

// Level converts a raw line value (0/1) to a StateType.
func Level(v int) StateType {
	switch v {
	case 0:
		return Low
	case 1:
		return High
	default:
		return Invalid
	}
}

func (s StateType) String() string {
	switch s {
	case High:
		return "HIGH"
	case Low:
		return "LOW"
	default:
		return "INVALID"
	}
}

// Line is one test line. The position inside the LineSet is the contractual sequence order.
type Line struct {
	Label  string `yaml:"label"`
	Offset int    `yaml:"offset"`
}

// LineSet is the ordered set of test lines shared between master and target.
type LineSet []Line

// Labels returns the labels in line set order.
func (ls LineSet) Labels() []string {
	labels := make([]string, len(ls))
	for i, l := range ls {
		labels[i] = l.Label
	}
	return labels
}

// Offsets returns the gpio offsets in line set order.
func (ls LineSet) Offsets() []int {
	offsets := make([]int, len(ls))
	for i, l := range ls {
		offsets[i] = l.Offset
	}
	return offsets
}

// Label returns the label of line i, or "end" if i is past the last line.
func (ls LineSet) Label(i int) string {
	if i < 0 || i >= len(ls) {
		return "end"
	}
	return ls[i].Label
}

// Sample is the snapshot of all line levels taken at one instant.
// Every decision within one controller iteration uses the same Sample.
type Sample []StateType

// NewSample returns a sample of n lines, all at level.
func NewSample(n int, level StateType) Sample {
	s := make(Sample, n)
	for i := range s {
		s[i] = level
	}
	return s
}

// All reports whether every line is at level.
func (s Sample) All(level StateType) bool {
	for _, v := range s {
		if v != level {
			return false
		}
	}
	return true
}

// Count returns the number of lines at level and the index of the last one found (-1 if none).
func (s Sample) Count(level StateType) (n, last int) {
	last = -1
	for i, v := range s {
		if v == level {
			n++
			last = i
		}
	}
	return n, last
}

// Indices returns the indices of all lines at level, in ascending order.
func (s Sample) Indices(level StateType) []int {
	var idx []int
	for i, v := range s {
		if v == level {
			idx = append(idx, i)
		}
	}
	return idx
}

// String renders the sample as a bit string, line 0 first.
func (s Sample) String() string {
	var b strings.Builder
	for _, v := range s {
		switch v {
		case High:
			b.WriteByte('1')
		case Low:
			b.WriteByte('0')
		default:
			b.WriteByte('x')
		}
	}
	return b.String()
}
