package theme

import (
	"sort"
	"strings"
	"sync"
)

// StylesheetScope collects variables and renders them as a :root block.
type StylesheetScope struct {
	mu    sync.RWMutex
	props map[string]string
}

// NewStylesheetScope creates an empty scope.
func NewStylesheetScope() *StylesheetScope {
	return &StylesheetScope{props: make(map[string]string)}
}

// SetProperty applies one variable.
func (s *StylesheetScope) SetProperty(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[name] = value
}

// Property returns the applied value of name.
func (s *StylesheetScope) Property(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[name]
	return v, ok
}

// Properties returns a copy of every applied variable.
func (s *StylesheetScope) Properties() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.props))
	for k, v := range s.props {
		out[k] = v
	}
	return out
}

// CSS renders the applied variables, sorted by name.
func (s *StylesheetScope) CSS() string {
	return renderRoot(s.Properties())
}

// PaletteCSS renders p as a :root block.
func PaletteCSS(p Palette) string {
	props := make(map[string]string, len(p.vars))
	for _, v := range p.vars {
		props["--"+v.Name] = v.Value
	}
	return renderRoot(props)
}

func renderRoot(props map[string]string) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range names {
		b.WriteString("  ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(props[name])
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// ParseRootVariables reads the custom properties declared in the first :root
// block of css.
func ParseRootVariables(css string) map[string]string {
	out := make(map[string]string)

	start := strings.Index(css, ":root")
	if start == -1 {
		return out
	}
	open := strings.Index(css[start:], "{")
	if open == -1 {
		return out
	}
	open += start
	end := findBlockEnd(css, start)
	if end > open+1 && css[end-1] == '}' {
		end--
	}
	body := css[open+1 : end]
	for _, decl := range strings.Split(body, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if !strings.HasPrefix(name, "--") {
			continue
		}
		out[name] = strings.TrimSpace(value)
	}
	return out
}

// MissingVars returns the theme variables that the first :root block of css
// does not declare, sorted by name.
func MissingVars(css string) []string {
	declared := ParseRootVariables(css)
	var missing []string
	for _, v := range builtins[0].vars {
		if _, ok := declared["--"+v.Name]; !ok {
			missing = append(missing, "--"+v.Name)
		}
	}
	sort.Strings(missing)
	return missing
}

// findBlockEnd returns the index just past the brace that closes the first
// block opened at or after startPos, or len(content) when it is unterminated.
func findBlockEnd(content string, startPos int) int {
	if startPos >= len(content) {
		return len(content)
	}

	openBrace := strings.Index(content[startPos:], "{")
	if openBrace == -1 {
		return len(content)
	}
	openBrace += startPos

	depth := 1
	pos := openBrace + 1
	for pos < len(content) && depth > 0 {
		switch content[pos] {
		case '{':
			depth++
		case '}':
			depth--
		}
		pos++
	}

	return pos
}
