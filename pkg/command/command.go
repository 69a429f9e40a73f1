// Package command parses operator commands and feeds them to the controller.
//
// Commands are free text lines, surrounding white space and case are ignored:
//
//	START        start a test run
//	FLASH | DFU  send the bootloader entry request to the target
//
// Anything else is ignored.
package command

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/womat/debug"
)

// Command is a parsed operator command.
type Command int

const (
	Unknown Command = iota
	Start
	Flash
)

func (c Command) String() string {
	switch c {
	case Start:
		return "START"
	case Flash:
		return "FLASH"
	default:
		return "UNKNOWN"
	}
}

// Parse returns the command in text.
func Parse(text string) Command {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "START":
		return Start
	case "FLASH", "DFU":
		return Flash
	default:
		return Unknown
	}
}

// Target receives the requests of the operator.
type Target interface {
	RequestStart()
	RequestFlash()
}

// Dispatch parses text and posts the request to t. It returns the parsed command.
func Dispatch(t Target, text string) Command {
	c := Parse(text)
	switch c {
	case Start:
		t.RequestStart()
	case Flash:
		t.RequestFlash()
	default:
		debug.DebugLog.Printf("ignoring command %q", strings.TrimSpace(text))
	}
	return c
}

// Listen reads commands line by line from r until EOF, a read error or ctx is done.
// The reader is not closed.
func Listen(ctx context.Context, r io.Reader, t Target) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)

		s := bufio.NewScanner(r)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- s.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return <-errc
			}
			Dispatch(t, l)
		}
	}
}
