// Package api is the backend intake service: health, contact and analytics
// endpoints, the theme endpoints, a websocket hub and the static site.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolio/logging"
	"portfolio/model"
	"portfolio/scheduler"
	"portfolio/theme"
)

const (
	Version      = "1.0.0"
	maxViewBytes = 16 * 1024
)

// Response messages.
const (
	MsgRequired       = "Name, email, and message are required"
	MsgReceived       = "Thank you! Your message has been received. I'll get back to you soon."
	MsgInternal       = "Internal server error"
	MsgInvalidJSON    = "Invalid JSON body"
	MsgAPINotFound    = "API endpoint not found"
	MsgRouteNotFound  = "Route not found"
	MsgMethodNotAllow = "Method not allowed"
)

// ContactSink receives accepted contact submissions.
type ContactSink interface {
	Append(rec model.ContactRecord) error
}

// ViewStore records and summarizes analytics events.
type ViewStore interface {
	RecordPageView(ctx context.Context, v model.PageView) error
	RecordProjectView(ctx context.Context, v model.ProjectView, receivedAt time.Time) error
	PageCounts(ctx context.Context) ([]model.PageCount, error)
	ProjectViewCount(ctx context.Context, projectID string) (int64, error)
}

// Server routes the backend API and the static site.
type Server struct {
	contacts ContactSink
	views    ViewStore
	themes   *theme.Handler
	hub      *Hub
	siteDir  string
	origins  []string
	clock    scheduler.Clock
	logger   *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithViewStore enables analytics storage and the summary endpoint.
func WithViewStore(v ViewStore) Option { return func(s *Server) { s.views = v } }

func WithThemes(h *theme.Handler) Option { return func(s *Server) { s.themes = h } }

func WithHub(h *Hub) Option { return func(s *Server) { s.hub = h } }

// WithSiteDir serves the static site from dir with index.html as the SPA
// fallback.
func WithSiteDir(dir string) Option { return func(s *Server) { s.siteDir = dir } }

func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func WithClock(c scheduler.Clock) Option { return func(s *Server) { s.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.logger = l } }

// NewServer creates a server that appends accepted contacts to contacts.
func NewServer(contacts ContactSink, opts ...Option) *Server {
	s := &Server{
		contacts: contacts,
		clock:    scheduler.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).Named("api")
	return s
}

// Register mounts every route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/contact", s.handleContact)
	mux.HandleFunc("/api/analytics/view", s.handlePageView)
	mux.HandleFunc("/api/analytics/project-view", s.handleProjectView)
	mux.HandleFunc("/api/analytics/summary", s.handleSummary)
	if s.themes != nil {
		mux.HandleFunc("/api/themes", s.themes.HandleThemes)
		mux.HandleFunc("/api/theme", s.themes.HandleTheme)
		mux.HandleFunc("/api/theme.css", s.themes.HandleCSS)
		mux.HandleFunc("/api/theme/menu", s.themes.HandleMenu)
	}
	if s.hub != nil {
		mux.Handle("/api/ws", s.hub)
	}
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, MsgAPINotFound)
	})
	mux.Handle("/", s.siteHandler())
}

// Handler returns the routed mux wrapped in CORS, request logging and panic
// recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return withCORS(s.origins, logRequests(s.logger, recoverPanics(s.logger, mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	writeJSON(w, http.StatusOK, model.HealthStatus{
		Status:    "OK",
		Message:   "Portfolio backend is running",
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339Nano),
		Version:   Version,
	})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var f model.ContactFields
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, model.MaxContactBytes)).Decode(&f); err != nil {
		s.logger.Warn("contact rejected", zap.String("reason", "bad_json"), zap.Error(err))
		writeError(w, http.StatusBadRequest, MsgInvalidJSON)
		return
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Message = strings.TrimSpace(f.Message)
	if f.Name == "" || f.Email == "" || f.Message == "" {
		writeError(w, http.StatusBadRequest, MsgRequired)
		return
	}

	subject := strings.TrimSpace(f.Subject)
	if subject == "" {
		subject = model.DefaultSubject
	}
	rec := model.ContactRecord{
		Name:      f.Name,
		Email:     f.Email,
		Subject:   subject,
		Message:   f.Message,
		Timestamp: s.clock.Now().UTC(),
		IP:        clientIP(r),
	}
	if err := s.contacts.Append(rec); err != nil {
		s.logger.Error("write contact log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	s.logger.Info("contact received",
		zap.String("name", rec.Name),
		zap.String("email", rec.Email),
		zap.String("subject", rec.Subject))

	writeJSON(w, http.StatusOK, model.Ack{
		Success: true,
		Message: MsgReceived,
		Data:    map[string]string{"name": rec.Name, "email": rec.Email},
	})
}

// handlePageView always acknowledges. Storage is best-effort.
func (s *Server) handlePageView(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	raw, _ := io.ReadAll(io.LimitReader(r.Body, maxViewBytes))
	var view model.PageView
	if len(raw) > 0 && json.Valid(raw) {
		if err := json.Unmarshal(raw, &view); err != nil {
			s.logger.Debug("page view metadata not an object", zap.Error(err))
		}
		view.RawJSON = raw
	}
	view.ID = uuid.NewString()
	view.ReceivedAt = s.clock.Now().UTC()
	if view.Referrer == "" {
		view.Referrer = "direct"
	}
	s.logger.Info("page view", zap.String("page", view.Page), zap.String("referrer", view.Referrer))

	if s.views != nil {
		if err := s.views.RecordPageView(r.Context(), view); err != nil {
			s.logger.Warn("record page view", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, model.Ack{Success: true})
}

func (s *Server) handleProjectView(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var v model.ProjectView
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxViewBytes)).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidJSON)
		return
	}
	if strings.TrimSpace(v.ProjectID) == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	s.logger.Info("project view", zap.String("project", v.ProjectID))

	if s.views != nil {
		if err := s.views.RecordProjectView(r.Context(), v, s.clock.Now()); err != nil {
			s.logger.Warn("record project view", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, model.Ack{Success: true})
}

type summaryResponse struct {
	Total        int64             `json:"total"`
	Pages        []model.PageCount `json:"pages"`
	Project      string            `json:"project,omitempty"`
	ProjectViews *int64            `json:"projectViews,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if s.views == nil {
		writeJSON(w, http.StatusOK, model.Ack{Success: true, Data: summaryResponse{Pages: []model.PageCount{}}})
		return
	}

	pages, err := s.views.PageCounts(r.Context())
	if err != nil {
		s.logger.Error("load page counts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	resp := summaryResponse{Pages: pages}
	for _, p := range pages {
		resp.Total += p.Views
	}

	if id := r.URL.Query().Get("project"); id != "" {
		n, err := s.views.ProjectViewCount(r.Context(), id)
		if err != nil {
			s.logger.Error("load project views", zap.String("project", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, MsgInternal)
			return
		}
		resp.Project = id
		resp.ProjectViews = &n
	}
	writeJSON(w, http.StatusOK, model.Ack{Success: true, Data: resp})
}

// allow writes a 405 and reports false when r's method is not listed.
func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllow)
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.Ack{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
