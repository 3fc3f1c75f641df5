package theme

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/model"
	"portfolio/storage"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) NotifyTransient(message string, sev model.Severity) model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, message)
	return model.Notification{ID: uint64(len(n.msgs)), Message: message, Severity: sev}
}

type failingStore struct{}

func (failingStore) Get(string, any) (bool, error) { return false, errors.New("disk gone") }
func (failingStore) Set(string, any) error         { return errors.New("disk gone") }

func TestSetThemeAppliesEveryVariable(t *testing.T) {
	for _, p := range Palettes() {
		p := p
		t.Run(string(p.ID), func(t *testing.T) {
			scope := NewStylesheetScope()
			reg := NewRegistry(scope)

			require.True(t, reg.SetTheme(p.ID))
			assert.Equal(t, p.ID, reg.Current())

			for _, v := range p.Vars() {
				got, ok := scope.Property("--" + v.Name)
				require.True(t, ok, "variable %s not applied", v.Name)
				assert.Equal(t, v.Value, got, v.Name)
			}
		})
	}
}

func TestSetThemeUnknownLeavesCurrent(t *testing.T) {
	scope := NewStylesheetScope()
	ind := NewMenuIndicator()
	notes := &recordingNotifier{}
	reg := NewRegistry(scope, WithIndicator(ind), WithNotifier(notes))
	require.True(t, reg.SetTheme(model.ThemeCyberpunk))
	before := scope.Properties()

	var events int
	reg.Subscribe(func(ChangeEvent) { events++ })

	assert.False(t, reg.SetTheme("solarized"))
	assert.Equal(t, model.ThemeCyberpunk, reg.Current())
	assert.Equal(t, model.ThemeCyberpunk, ind.Active())
	assert.Zero(t, events)
	assert.Len(t, notes.msgs, 1)
	if diff := cmp.Diff(before, scope.Properties()); diff != "" {
		t.Fatalf("scope changed (-before +after):\n%s", diff)
	}
}

func TestSetThemeSideEffects(t *testing.T) {
	local := storage.NewLocal(t.TempDir())
	ind := NewMenuIndicator()
	notes := &recordingNotifier{}
	reg := NewRegistry(NewStylesheetScope(), WithIndicator(ind), WithStore(local), WithNotifier(notes))

	var got []ChangeEvent
	unsubscribe := reg.Subscribe(func(ev ChangeEvent) { got = append(got, ev) })

	require.True(t, reg.SetTheme(model.ThemeLight))

	var saved model.ThemeID
	found, err := local.Get(storage.KeyTheme, &saved)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.ThemeLight, saved)

	assert.Equal(t, "fa-sun", ind.Icon())
	assert.Equal(t, "theme-light", ind.BodyClass())
	assert.Contains(t, ind.MenuHTML(), `class="theme-option active" data-theme="light"`)
	assert.Equal(t, []ChangeEvent{{Previous: model.ThemeDark, Current: model.ThemeLight}}, got)
	assert.Equal(t, []string{"Theme changed to: Light Futuristic"}, notes.msgs)

	unsubscribe()
	reg.SetTheme(model.ThemeMatrix)
	assert.Len(t, got, 1)
}

func TestCycleThemeWraps(t *testing.T) {
	reg := NewRegistry(NewStylesheetScope())
	reg.SetTheme(model.ThemeDark)

	var seen []model.ThemeID
	for range Palettes() {
		seen = append(seen, reg.CycleTheme())
	}
	assert.Equal(t, []model.ThemeID{model.ThemeLight, model.ThemeCyberpunk, model.ThemeMatrix, model.ThemeDark}, seen)
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name  string
		saved any
		def   model.ThemeID
		want  model.ThemeID
	}{
		{name: "nothing saved", want: model.ThemeDark},
		{name: "saved known", saved: "matrix", want: model.ThemeMatrix},
		{name: "saved unknown", saved: "neon", want: model.ThemeDark},
		{name: "configured default", def: model.ThemeLight, want: model.ThemeLight},
		{name: "bad default ignored", def: "neon", want: model.ThemeDark},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			local := storage.NewLocal(t.TempDir())
			if tt.saved != nil {
				require.NoError(t, local.Set(storage.KeyTheme, tt.saved))
			}
			opts := []Option{WithStore(local)}
			if tt.def != "" {
				opts = append(opts, WithDefault(tt.def))
			}
			scope := NewStylesheetScope()
			reg := NewRegistry(scope, opts...)

			assert.Equal(t, tt.want, reg.Restore())
			want, err := Lookup(tt.want)
			require.NoError(t, err)
			primary, _ := want.Value(VarPrimary)
			got, _ := scope.Property("--primary")
			assert.Equal(t, primary, got)
		})
	}
}

func TestRestoreSurvivesStoreFailure(t *testing.T) {
	reg := NewRegistry(NewStylesheetScope(), WithStore(failingStore{}))
	assert.Equal(t, model.ThemeDark, reg.Restore())
	assert.True(t, reg.SetTheme(model.ThemeMatrix))
}

func TestPaletteImmutable(t *testing.T) {
	p, err := Lookup(model.ThemeDark)
	require.NoError(t, err)
	vars := p.Vars()
	vars[0].Value = "#000000"

	again, err := Lookup(model.ThemeDark)
	require.NoError(t, err)
	v, _ := again.Value(VarPrimary)
	assert.Equal(t, "#00f3ff", v)

	_, err = Lookup("neon")
	assert.ErrorIs(t, err, ErrUnknownTheme)
}

func TestStylesheetRoundTrip(t *testing.T) {
	for _, p := range Palettes() {
		parsed := ParseRootVariables(PaletteCSS(p))
		require.Len(t, parsed, len(p.Vars()), p.ID)
		for _, v := range p.Vars() {
			assert.Equal(t, v.Value, parsed["--"+v.Name], "%s %s", p.ID, v.Name)
		}
	}

	assert.Empty(t, ParseRootVariables("body { color: red; }"))
	assert.Equal(t, map[string]string{"--a": "1"}, ParseRootVariables(":root { --a: 1; color: red; }\n.x { --b: 2; }"))
	assert.Equal(t, map[string]string{"--a": "b"}, ParseRootVariables(":root { --a: b"))
	assert.Empty(t, ParseRootVariables(":root {}"))
}

func TestMissingVars(t *testing.T) {
	p, err := Lookup(model.ThemeLight)
	require.NoError(t, err)
	assert.Empty(t, MissingVars(PaletteCSS(p)))

	missing := MissingVars(":root { --primary: #fff; }")
	assert.Len(t, missing, len(p.Vars())-1)
	assert.NotContains(t, missing, "--primary")
	assert.Contains(t, missing, "--secondary")
}

func TestHandleCSSServesAppliedScope(t *testing.T) {
	scope := NewStylesheetScope()
	reg := NewRegistry(scope)
	h := NewHandler(reg).WithStylesheet(scope)

	css := func() map[string]string {
		rec := httptest.NewRecorder()
		h.HandleCSS(rec, httptest.NewRequest(http.MethodGet, "/api/theme.css", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		return ParseRootVariables(rec.Body.String())
	}
	assert.Equal(t, "#00f3ff", css()["--primary"], "current palette before anything is applied")

	rec := httptest.NewRecorder()
	h.HandleTheme(rec, httptest.NewRequest(http.MethodPost, "/api/theme", strings.NewReader(`{"theme":"cyberpunk"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, scope.Properties(), css())
	assert.Equal(t, "#ff00ff", css()["--primary"])

	scope.SetProperty("--primary", "#123456")
	assert.Equal(t, "#123456", css()["--primary"], "served stylesheet is the applied scope")
}

func TestHandler(t *testing.T) {
	reg := NewRegistry(NewStylesheetScope())
	h := NewHandler(reg)

	rec := httptest.NewRecorder()
	h.HandleThemes(rec, httptest.NewRequest(http.MethodGet, "/api/themes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list themesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, model.ThemeDark, list.Current)
	require.Len(t, list.Palettes, 4)
	assert.Equal(t, "#00f3ff", list.Palettes[0].Vars["primary"])

	rec = httptest.NewRecorder()
	h.HandleTheme(rec, httptest.NewRequest(http.MethodPost, "/api/theme", strings.NewReader(`{"theme":"matrix"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ThemeMatrix, reg.Current())

	rec = httptest.NewRecorder()
	h.HandleTheme(rec, httptest.NewRequest(http.MethodPost, "/api/theme", strings.NewReader(`{"theme":"neon"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ThemeMatrix, reg.Current())

	rec = httptest.NewRecorder()
	h.HandleTheme(rec, httptest.NewRequest(http.MethodPost, "/api/theme", strings.NewReader(`{"cycle":true}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ThemeDark, reg.Current())

	rec = httptest.NewRecorder()
	h.HandleTheme(rec, httptest.NewRequest(http.MethodPost, "/api/theme", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleTheme(rec, httptest.NewRequest(http.MethodDelete, "/api/theme", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleCSS(rec, httptest.NewRequest(http.MethodGet, "/api/theme.css?theme=cyberpunk", nil))
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "#ff00ff", ParseRootVariables(rec.Body.String())["--primary"])
}

func TestHandleMenu(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(NewRegistry(nil)).HandleMenu(rec, httptest.NewRequest(http.MethodGet, "/api/theme/menu", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ind := NewMenuIndicator()
	reg := NewRegistry(nil, WithIndicator(ind))
	h := NewHandler(reg).WithMenu(ind)
	reg.SetTheme(model.ThemeCyberpunk)

	rec = httptest.NewRecorder()
	h.HandleMenu(rec, httptest.NewRequest(http.MethodGet, "/api/theme/menu", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `<i class="fas fa-robot">`)
	assert.Contains(t, rec.Body.String(), `class="theme-option active" data-theme="cyberpunk"`)
}

func TestSwatchesMarksActive(t *testing.T) {
	p, _ := Lookup(model.ThemeMatrix)
	out := Swatches(p)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[3], "* "))
	assert.Contains(t, lines[3], "matrix")
	assert.True(t, strings.HasPrefix(lines[0], "  "))
}
