package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	nameStyle   = lipgloss.NewStyle().Width(28)
	activeStyle = lipgloss.NewStyle().Bold(true)
)

// Swatches renders one line per palette with a colour block for each
// hex-valued variable. The active palette is marked with an asterisk.
func Swatches(active Palette) string {
	var b strings.Builder
	for _, p := range builtins {
		marker := "  "
		label := nameStyle.Render(fmt.Sprintf("%s (%s)", p.ID, p.Display))
		if p.ID == active.ID {
			marker = "* "
			label = activeStyle.Inherit(nameStyle).Render(fmt.Sprintf("%s (%s)", p.ID, p.Display))
		}
		b.WriteString(marker)
		b.WriteString(label)
		b.WriteString(" ")
		for _, v := range p.vars {
			if !strings.HasPrefix(v.Value, "#") {
				continue
			}
			b.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(v.Value)).Render("  "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
