package theme

import (
	"html"
	"strings"
	"sync"

	"portfolio/model"
)

// MenuIndicator tracks what the theme switcher UI should show: the toggle
// icon, the highlighted option and the body class.
type MenuIndicator struct {
	mu     sync.RWMutex
	active model.ThemeID
	icon   string
}

func NewMenuIndicator() *MenuIndicator {
	return &MenuIndicator{icon: "fa-palette"}
}

func (m *MenuIndicator) Indicate(p Palette) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = p.ID
	m.icon = p.Icon
	if m.icon == "" {
		m.icon = "fa-palette"
	}
}

func (m *MenuIndicator) Active() model.ThemeID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

func (m *MenuIndicator) Icon() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.icon
}

// BodyClass is the class set on <body> for palette-specific overrides.
func (m *MenuIndicator) BodyClass() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return ""
	}
	return "theme-" + string(m.active)
}

// MenuHTML renders the toggle button and option list.
func (m *MenuIndicator) MenuHTML() string {
	active := m.Active()

	var b strings.Builder
	b.WriteString(`<button class="theme-toggle" id="themeToggle"><i class="fas `)
	b.WriteString(html.EscapeString(m.Icon()))
	b.WriteString(`"></i></button><div class="theme-dropdown"><h4>Select Theme</h4><div class="theme-options">`)
	for _, p := range builtins {
		b.WriteString(`<button class="theme-option`)
		if p.ID == active {
			b.WriteString(` active`)
		}
		b.WriteString(`" data-theme="`)
		b.WriteString(string(p.ID))
		b.WriteString(`"><span class="theme-preview `)
		b.WriteString(string(p.ID))
		b.WriteString(`"></span><span>`)
		b.WriteString(html.EscapeString(p.Display))
		b.WriteString(`</span></button>`)
	}
	b.WriteString(`</div></div>`)
	return b.String()
}
