package status

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console writes status lines to a terminal or file.
// Colors are only used if the writer is a terminal.
type Console struct {
	w      io.Writer
	mu     sync.Mutex
	colors map[Kind]*color.Color
}

// NewConsole creates a console reporter writing to w.
func NewConsole(w io.Writer) *Console {
	tty := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	colors := map[Kind]*color.Color{
		Heartbeat: color.New(color.Faint),
		Begin:     color.New(color.FgYellow),
		OK:        color.New(color.FgGreen),
		LineOK:    color.New(color.FgGreen),
		AllOK:     color.New(color.FgGreen, color.Bold),
		Error:     color.New(color.FgRed),
		Fail:      color.New(color.FgRed, color.Bold),
	}
	for _, c := range colors {
		if tty {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &Console{w: w, colors: colors}
}

func (c *Console) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if col, ok := c.colors[e.Kind]; ok {
		_, _ = col.Fprintln(c.w, e.String())
		return
	}
	_, _ = fmt.Fprintln(c.w, e.String())
}
