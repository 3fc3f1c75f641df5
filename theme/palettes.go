package theme

import "portfolio/model"

// Variable names shared by every palette.
const (
	VarPrimary       = "primary"
	VarSecondary     = "secondary"
	VarAccent        = "accent"
	VarDark          = "dark"
	VarDarker        = "darker"
	VarGlass         = "glass"
	VarText          = "text"
	VarTextSecondary = "text-secondary"
)

func newPalette(id model.ThemeID, display, icon string, primary, secondary, accent, dark, darker, glass, text, textSecondary string) Palette {
	return Palette{
		ID:      id,
		Display: display,
		Icon:    icon,
		vars: []Var{
			{VarPrimary, primary},
			{VarSecondary, secondary},
			{VarAccent, accent},
			{VarDark, dark},
			{VarDarker, darker},
			{VarGlass, glass},
			{VarText, text},
			{VarTextSecondary, textSecondary},
		},
	}
}

// builtins lists the palettes in cycle order.
var builtins = []Palette{
	newPalette(model.ThemeDark, "Dark Futuristic", "fa-moon",
		"#00f3ff", "#ff00ff", "#00ff9d", "#0a0a14", "#050510",
		"rgba(255, 255, 255, 0.05)", "#f0f0ff", "rgba(240, 240, 255, 0.7)"),
	newPalette(model.ThemeLight, "Light Futuristic", "fa-sun",
		"#0066cc", "#cc00cc", "#00cc66", "#f0f0ff", "#ffffff",
		"rgba(0, 0, 0, 0.05)", "#0a0a14", "rgba(10, 10, 20, 0.7)"),
	newPalette(model.ThemeCyberpunk, "Cyberpunk", "fa-robot",
		"#ff00ff", "#00ffff", "#ffff00", "#0a0a0a", "#000000",
		"rgba(255, 0, 255, 0.05)", "#ffffff", "rgba(255, 255, 255, 0.7)"),
	newPalette(model.ThemeMatrix, "Matrix", "fa-code",
		"#00ff00", "#00ff00", "#00ff00", "#000000", "#000000",
		"rgba(0, 255, 0, 0.05)", "#00ff00", "rgba(0, 255, 0, 0.7)"),
}

// Palettes returns every built-in palette in cycle order.
func Palettes() []Palette {
	return append([]Palette(nil), builtins...)
}

// Lookup returns the built-in palette with the given id.
func Lookup(id model.ThemeID) (Palette, error) {
	for _, p := range builtins {
		if p.ID == id {
			return p, nil
		}
	}
	return Palette{}, ErrUnknownTheme
}
