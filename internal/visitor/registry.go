// Package visitor keeps one session controller per browser.
//
// A browser is identified by the visitor_id cookie (a random UUID). The first
// request from an unknown visitor builds a backend client seeded with the
// tokens from its cookies, a view.Page, and a controller over both, then
// resumes whatever session the tokens still carry. Visitors that stay idle
// longer than the configured timeout are closed and forgotten; their next
// request starts over from the cookies.
package visitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/fitness-hub/internal/controller"
	"github.com/sakif/fitness-hub/internal/metrics"
	"github.com/sakif/fitness-hub/internal/view"
)

// Client is one visitor's connection to the backend.
type Client interface {
	controller.IdentityService
	controller.RecordStore
	AccessToken() string
	RefreshToken() string
}

// Backend creates per-visitor clients.
type Backend interface {
	Connect(accessToken, refreshToken string) Client
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(accessToken, refreshToken string) Client

func (f BackendFunc) Connect(accessToken, refreshToken string) Client {
	return f(accessToken, refreshToken)
}

// Visitor is one browser's live state.
type Visitor struct {
	ID         string
	Controller *controller.Controller
	Page       *view.Page
	Client     Client

	cancel   context.CancelFunc
	lastSeen time.Time // guarded by Registry.mu
}

type Registry struct {
	backend  Backend
	logger   *slog.Logger
	metrics  metrics.Recorder
	idle     time.Duration
	ctrlOpts []controller.Option
	now      func() time.Time

	mu       sync.Mutex
	visitors map[string]*Visitor
}

type Option func(*Registry)

// WithControllerOptions passes opts to every controller the registry creates.
func WithControllerOptions(opts ...controller.Option) Option {
	return func(r *Registry) { r.ctrlOpts = append(r.ctrlOpts, opts...) }
}

// WithNow replaces time.Now for idle bookkeeping.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(backend Backend, idle time.Duration, logger *slog.Logger, rec metrics.Recorder, opts ...Option) *Registry {
	if rec == nil {
		rec = metrics.Nop{}
	}
	r := &Registry{
		backend:  backend,
		logger:   logger,
		metrics:  rec,
		idle:     idle,
		now:      time.Now,
		visitors: make(map[string]*Visitor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the visitor for id, creating it when id is unknown. An empty
// or malformed id gets a fresh UUID; callers must write v.ID back to the
// cookie. created reports whether a new visitor was built.
//
// A new visitor's session is resumed before Get returns, so the first page
// render already shows the logged-in state.
func (r *Registry) Get(ctx context.Context, id, accessToken, refreshToken string) (v *Visitor, created bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	if v, ok := r.visitors[id]; ok {
		v.lastSeen = r.now()
		r.mu.Unlock()
		return v, false
	}

	client := r.backend.Connect(accessToken, refreshToken)
	page := view.New()
	logger := r.logger.With(slog.String("visitor", id))
	ctrl := controller.New(client, client, page, logger, r.ctrlOpts...)
	runCtx, cancel := context.WithCancel(context.Background())

	v = &Visitor{
		ID:         id,
		Controller: ctrl,
		Page:       page,
		Client:     client,
		cancel:     cancel,
		lastSeen:   r.now(),
	}
	r.visitors[id] = v
	n := len(r.visitors)
	r.mu.Unlock()

	r.metrics.SetActiveVisitors(n)
	go ctrl.Run(runCtx)

	if accessToken != "" {
		if err := ctrl.ResumeSession(ctx); err != nil {
			logger.Warn("resuming session", slog.String("error", err.Error()))
		}
	}
	logger.Debug("visitor created")
	return v, true
}

// Len returns the number of live visitors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Sweep closes visitors idle since before now minus the idle timeout and
// returns how many were evicted.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.idle)

	r.mu.Lock()
	var idle []*Visitor
	for id, v := range r.visitors {
		if v.lastSeen.Before(cutoff) {
			idle = append(idle, v)
			delete(r.visitors, id)
		}
	}
	n := len(r.visitors)
	r.mu.Unlock()

	for _, v := range idle {
		v.close()
	}
	if len(idle) > 0 {
		r.metrics.SetActiveVisitors(n)
		r.logger.Debug("evicted idle visitors", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps periodically until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

// Shutdown closes and forgets every visitor.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*Visitor, 0, len(r.visitors))
	for _, v := range r.visitors {
		all = append(all, v)
	}
	r.visitors = make(map[string]*Visitor)
	r.mu.Unlock()

	for _, v := range all {
		v.close()
	}
	r.metrics.SetActiveVisitors(0)
	r.logger.Info("visitors closed", slog.Int("count", len(all)))
}

func (v *Visitor) close() {
	v.Controller.Close()
	v.cancel()
}
