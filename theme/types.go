package theme

import (
	"errors"

	"portfolio/model"
)

// ErrUnknownTheme is returned by lookups for ids outside the palette set.
var ErrUnknownTheme = errors.New("unknown theme")

// Var is a single style variable, applied as --Name.
type Var struct {
	Name  string
	Value string
}

// Palette is an immutable named set of style variables.
type Palette struct {
	ID      model.ThemeID
	Display string
	Icon    string
	vars    []Var
}

// Vars returns a copy of the palette's variables in declaration order.
func (p Palette) Vars() []Var {
	return append([]Var(nil), p.vars...)
}

// Value returns the value of the named variable.
func (p Palette) Value(name string) (string, bool) {
	for _, v := range p.vars {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// StyleScope receives style variables, e.g. the document root of a page.
type StyleScope interface {
	SetProperty(name, value string)
}

// Indicator reflects the active palette in the UI.
type Indicator interface {
	Indicate(p Palette)
}

// Store persists the selected palette id between sessions.
type Store interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// Notifier shows transient feedback after a change.
type Notifier interface {
	NotifyTransient(message string, severity model.Severity) model.Notification
}

// ChangeEvent is emitted to subscribers after every successful SetTheme.
type ChangeEvent struct {
	Previous model.ThemeID `json:"previous,omitempty"`
	Current  model.ThemeID `json:"current"`
}
