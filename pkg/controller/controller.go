package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/cwlens/pkg/journal"
	"mercator-hq/cwlens/pkg/limit"
	"mercator-hq/cwlens/pkg/reconcile"
	"mercator-hq/cwlens/pkg/session"
	"mercator-hq/cwlens/pkg/telemetry/metrics"
	"mercator-hq/cwlens/pkg/telemetry/tracing"
	"mercator-hq/cwlens/pkg/upstream"
	"mercator-hq/cwlens/pkg/window"
)

var (
	// ErrStale is returned when a response was superseded by a session or
	// profile switch before it could be applied.
	ErrStale = errors.New("response superseded by a newer session or profile")

	// ErrNoSession is returned by operations that need an active session.
	ErrNoSession = errors.New("no active session")

	// ErrSessionMismatch is returned for a snapshot addressed to another session.
	ErrSessionMismatch = errors.New("snapshot is for a different session")
)

// ConfigSource serves profiles and window types.
// Implemented by *upstream.Client and *catalog.Store.
type ConfigSource interface {
	Profiles(ctx context.Context) ([]window.Profile, error)
	WindowType(ctx context.Context, id string) (*window.Type, error)
}

// LimitSource serves model capabilities and session overrides.
// Implemented by *upstream.Client.
type LimitSource interface {
	ModelLimit(ctx context.Context, llmConfigID string) (upstream.ModelCapability, error)
	SessionOverride(ctx context.Context, sessionID string) (*int, error)
	SetSessionOverride(ctx context.Context, sessionID string, tokens *int) error
}

// Options configures a Controller.
type Options struct {
	// Config is required.
	Config ConfigSource

	// Limits is optional. Without it the fallback model limit applies and
	// session overrides live only in memory.
	Limits LimitSource

	// Journal is optional.
	Journal journal.Store

	// FallbackModelLimit replaces a failed capability lookup.
	// Default: limit.DefaultModelLimit
	FallbackModelLimit int

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

// Status is the published state of the active session.
type Status struct {
	SessionID string `json:"session_id"`
	ProfileID string `json:"profile_id,omitempty"`
	State     string `json:"state"`

	// Guidance explains why no view is available.
	Guidance string `json:"guidance,omitempty"`

	Profiles []ProfileRef    `json:"profiles,omitempty"`
	View     *reconcile.View `json:"view,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileRef is the selectable summary of a profile.
type ProfileRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// Controller coordinates sources, the session cache, and subscribers.
// It is safe for concurrent use.
type Controller struct {
	config   ConfigSource
	limits   LimitSource
	journal  journal.Store
	fallback int

	cache   *session.Cache
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	now     func() time.Time

	// mu serialises tag checks with the cache writes that follow them.
	mu       sync.Mutex
	guidance string
	profiles []ProfileRef

	pubMu  sync.RWMutex
	status *Status
	subs   map[int]chan *Status
	nextID int
}

// New creates a Controller with no active session.
func New(opts Options) (*Controller, error) {
	if opts.Config == nil {
		return nil, errors.New("controller requires a configuration source")
	}
	fallback := opts.FallbackModelLimit
	if fallback <= 0 {
		fallback = limit.DefaultModelLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		config:   opts.Config,
		limits:   opts.Limits,
		journal:  opts.Journal,
		fallback: fallback,
		cache:    session.NewCache(),
		logger:   logger.With("component", "controller"),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		now:      time.Now,
		subs:     make(map[int]chan *Status),
	}
	c.status = &Status{State: session.StateEmpty.String(), UpdatedAt: c.now()}
	return c, nil
}

// Status returns the most recently published status.
func (c *Controller) Status() *Status {
	c.pubMu.RLock()
	defer c.pubMu.RUnlock()
	return c.status
}

// SessionID returns the active session.
func (c *Controller) SessionID() string {
	return c.cache.SessionID()
}

// Ready reports an error while the active session has no usable view.
func (c *Controller) Ready(ctx context.Context) error {
	st := c.Status()
	if st.Guidance != "" {
		return errors.New(st.Guidance)
	}
	if st.SessionID != "" && st.View == nil {
		return errors.New("session configuration not loaded")
	}
	return nil
}
