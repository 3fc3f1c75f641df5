package theme

import (
	"sync"

	"go.uber.org/zap"

	"portfolio/logging"
	"portfolio/model"
	"portfolio/storage"
)

// Registry holds the current palette selection and applies it.
type Registry struct {
	scope     StyleScope
	indicator Indicator
	store     Store
	notifier  Notifier
	fallback  model.ThemeID
	logger    *zap.Logger

	mu        sync.Mutex
	current   model.ThemeID
	listeners map[int]func(ChangeEvent)
	nextID    int
}

type Option func(*Registry)

func WithIndicator(i Indicator) Option { return func(r *Registry) { r.indicator = i } }

func WithStore(s Store) Option { return func(r *Registry) { r.store = s } }

func WithNotifier(n Notifier) Option { return func(r *Registry) { r.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(r *Registry) { r.logger = l } }

// WithDefault sets the palette used when nothing valid was persisted.
// Unknown ids are ignored.
func WithDefault(id model.ThemeID) Option {
	return func(r *Registry) {
		if _, err := Lookup(id); err == nil {
			r.fallback = id
		}
	}
}

// NewRegistry returns a registry writing into scope. The current palette is
// the default until Restore or SetTheme is called.
func NewRegistry(scope StyleScope, opts ...Option) *Registry {
	r := &Registry{
		scope:     scope,
		fallback:  model.ThemeDark,
		listeners: make(map[int]func(ChangeEvent)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).Named("theme")
	r.current = r.fallback
	return r
}

// Restore applies the persisted selection, or the default when none was
// persisted or the persisted id is unknown.
func (r *Registry) Restore() model.ThemeID {
	id := r.fallback
	if r.store != nil {
		var saved model.ThemeID
		found, err := r.store.Get(storage.KeyTheme, &saved)
		switch {
		case err != nil:
			r.logger.Warn("read saved theme", zap.Error(err))
		case found:
			if _, err := Lookup(saved); err == nil {
				id = saved
			} else {
				r.logger.Debug("ignoring unknown saved theme", zap.String("theme", string(saved)))
			}
		}
	}
	r.SetTheme(id)
	return r.Current()
}

// SetTheme switches to the palette id. Unknown ids are ignored and false is
// returned; the current palette stays as it was.
func (r *Registry) SetTheme(id model.ThemeID) bool {
	p, err := Lookup(id)
	if err != nil {
		r.logger.Debug("ignoring unknown theme", zap.String("theme", string(id)))
		return false
	}

	r.mu.Lock()
	prev := r.current
	r.current = id
	if r.scope != nil {
		for _, v := range p.vars {
			r.scope.SetProperty("--"+v.Name, v.Value)
		}
	}
	if r.indicator != nil {
		r.indicator.Indicate(p)
	}
	listeners := make([]func(ChangeEvent), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Set(storage.KeyTheme, id); err != nil {
			r.logger.Warn("persist theme", zap.String("theme", string(id)), zap.Error(err))
		}
	}

	ev := ChangeEvent{Previous: prev, Current: id}
	for _, fn := range listeners {
		fn(ev)
	}

	if r.notifier != nil {
		r.notifier.NotifyTransient("Theme changed to: "+p.Display, model.SeverityInfo)
	}
	r.logger.Info("theme applied", zap.String("theme", string(id)))
	return true
}

// CycleTheme advances to the next palette in order, wrapping around.
func (r *Registry) CycleTheme() model.ThemeID {
	cur := r.Current()
	next := builtins[0].ID
	for i, p := range builtins {
		if p.ID == cur {
			next = builtins[(i+1)%len(builtins)].ID
			break
		}
	}
	r.SetTheme(next)
	return next
}

func (r *Registry) Current() model.ThemeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// CurrentPalette returns the palette for Current.
func (r *Registry) CurrentPalette() Palette {
	p, _ := Lookup(r.Current())
	return p
}

// Subscribe registers fn for change events and returns its removal func.
func (r *Registry) Subscribe(fn func(ChangeEvent)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}
