package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"portfolio/model"
)

var severityIcons = map[model.Severity]string{
	model.SeveritySuccess: "✔",
	model.SeverityError:   "✖",
	model.SeverityWarning: "▲",
	model.SeverityInfo:    "ℹ",
}

var severityColors = map[model.Severity]*color.Color{
	model.SeveritySuccess: color.New(color.FgGreen),
	model.SeverityError:   color.New(color.FgRed),
	model.SeverityWarning: color.New(color.FgYellow),
	model.SeverityInfo:    color.New(color.FgCyan),
}

// TerminalDisplay prints each notification as one coloured line.
type TerminalDisplay struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalDisplay(out io.Writer) *TerminalDisplay {
	return &TerminalDisplay{out: out}
}

func (d *TerminalDisplay) Show(n model.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := severityColors[n.Severity]
	if !ok {
		c = severityColors[model.SeverityInfo]
	}
	icon := severityIcons[n.Severity]
	if icon == "" {
		icon = severityIcons[model.SeverityInfo]
	}
	_, _ = c.Fprintln(d.out, fmt.Sprintf("%s %s", icon, n.Message))
}

// Hide is a no-op: printed lines stay in the scrollback.
func (d *TerminalDisplay) Hide(model.Notification) {}

// Multi fans notifications out to several displays in order.
type Multi []Display

func (m Multi) Show(n model.Notification) {
	for _, d := range m {
		d.Show(n)
	}
}

func (m Multi) Hide(n model.Notification) {
	for _, d := range m {
		d.Hide(n)
	}
}
