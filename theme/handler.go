package theme

import (
	"encoding/json"
	"net/http"

	"portfolio/model"
)

// Handler serves the palette list, the current selection and palette CSS.
type Handler struct {
	registry *Registry
	menu     *MenuIndicator
	scope    *StylesheetScope
}

// NewHandler creates a handler backed by registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// WithStylesheet makes HandleCSS serve scope when no theme is requested.
// scope must be the one the registry writes into.
func (h *Handler) WithStylesheet(scope *StylesheetScope) *Handler {
	h.scope = scope
	return h
}

// WithMenu enables HandleMenu. ind must be the indicator registered with the
// handler's registry.
func (h *Handler) WithMenu(ind *MenuIndicator) *Handler {
	h.menu = ind
	return h
}

type paletteResponse struct {
	ID      model.ThemeID     `json:"id"`
	Display string            `json:"display"`
	Icon    string            `json:"icon"`
	Vars    map[string]string `json:"vars"`
}

type themesResponse struct {
	Current  model.ThemeID     `json:"current"`
	Palettes []paletteResponse `json:"palettes"`
}

func toResponse(p Palette) paletteResponse {
	vars := make(map[string]string, len(p.vars))
	for _, v := range p.vars {
		vars[v.Name] = v.Value
	}
	return paletteResponse{ID: p.ID, Display: p.Display, Icon: p.Icon, Vars: vars}
}

func (h *Handler) themes() themesResponse {
	resp := themesResponse{Current: h.registry.Current()}
	for _, p := range builtins {
		resp.Palettes = append(resp.Palettes, toResponse(p))
	}
	return resp
}

// HandleThemes lists every palette and the current selection.
func (h *Handler) HandleThemes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, model.Ack{Success: false, Message: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, h.themes())
}

// HandleTheme returns the current selection on GET and switches it on POST.
// Unknown ids leave the selection unchanged.
func (h *Handler) HandleTheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toResponse(h.registry.CurrentPalette()))

	case http.MethodPost:
		var req struct {
			Theme model.ThemeID `json:"theme"`
			Cycle bool          `json:"cycle,omitempty"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4*1024)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, model.Ack{Success: false, Message: "invalid json"})
			return
		}
		if req.Cycle {
			h.registry.CycleTheme()
		} else {
			h.registry.SetTheme(req.Theme)
		}
		writeJSON(w, http.StatusOK, toResponse(h.registry.CurrentPalette()))

	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, model.Ack{Success: false, Message: "method not allowed"})
	}
}

// HandleCSS serves a palette as a :root stylesheet. Without a valid theme
// query parameter it serves the applied stylesheet scope, or the current
// palette while nothing has been applied.
func (h *Handler) HandleCSS(w http.ResponseWriter, r *http.Request) {
	var css string
	if q := r.URL.Query().Get("theme"); q != "" {
		if found, err := Lookup(model.ThemeID(q)); err == nil {
			css = PaletteCSS(found)
		}
	}
	if css == "" && h.scope != nil {
		if props := h.scope.Properties(); len(props) > 0 {
			css = renderRoot(props)
		}
	}
	if css == "" {
		css = PaletteCSS(h.registry.CurrentPalette())
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(css))
}

// HandleMenu serves the theme switcher markup for the current selection.
func (h *Handler) HandleMenu(w http.ResponseWriter, r *http.Request) {
	if h.menu == nil {
		writeJSON(w, http.StatusNotFound, model.Ack{Success: false, Message: "API endpoint not found"})
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, model.Ack{Success: false, Message: "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(h.menu.MenuHTML()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
