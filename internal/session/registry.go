package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/admin-console/internal/auth"
	"github.com/SAP-F-2025/admin-console/internal/events"
)

var ErrRegistryClosed = errors.New("session registry closed")

const defaultIdleTTL = 30 * time.Minute

// ProviderFactory returns the auth provider of one console
type ProviderFactory func(consoleID string) auth.Provider

// ArtifactsFactory returns the persisted storage of one console
type ArtifactsFactory func(consoleID string) Artifacts

type RegistryOptions struct {
	Providers     ProviderFactory
	Artifacts     ArtifactsFactory
	Resolver      ProfileResolver
	Publisher     events.EventPublisher
	Logger        *slog.Logger
	RedirectDelay time.Duration
	IdleTTL       time.Duration
}

type entry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Registry keeps one started controller per console. Resetting a console is
// the server-side form of a full page reload: the controller is stopped and
// the next request builds a fresh one.
type Registry struct {
	opts   RegistryOptions
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	feeds   map[string]*Feed
	closed  bool
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Providers == nil {
		opts.Providers = func(string) auth.Provider { return auth.Disabled{} }
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
		feeds:   make(map[string]*Feed),
	}
}

// Get returns the controller of a console, creating and starting it on
// first use
func (r *Registry) Get(ctx context.Context, consoleID string) (*Controller, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if e, ok := r.entries[consoleID]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.ctrl, nil
	}

	feed := r.feedLocked(consoleID)
	nav := &navigator{registry: r, consoleID: consoleID, feed: feed}
	var artifacts Artifacts
	if r.opts.Artifacts != nil {
		artifacts = r.opts.Artifacts(consoleID)
	}
	ctrl := NewController(Options{
		ConsoleID:     consoleID,
		Provider:      r.opts.Providers(consoleID),
		Resolver:      r.opts.Resolver,
		Notifier:      feed,
		Navigator:     nav,
		Artifacts:     artifacts,
		Publisher:     r.opts.Publisher,
		Logger:        r.logger,
		RedirectDelay: r.opts.RedirectDelay,
	})
	nav.ctrl = ctrl
	r.entries[consoleID] = &entry{ctrl: ctrl, lastSeen: r.now()}
	r.mu.Unlock()

	r.logger.Debug("Starting session controller", "console_id", consoleID)
	if err := ctrl.Start(ctx); err != nil {
		r.remove(consoleID, ctrl)
		ctrl.Stop()
		return nil, err
	}
	return ctrl, nil
}

// Feed returns the notification feed of a console
func (r *Registry) Feed(consoleID string) *Feed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.feedLocked(consoleID)
}

func (r *Registry) feedLocked(consoleID string) *Feed {
	feed, ok := r.feeds[consoleID]
	if !ok {
		feed = NewFeed()
		r.feeds[consoleID] = feed
	}
	return feed
}

// Reset stops and forgets the controller of a console
func (r *Registry) Reset(consoleID string) {
	r.mu.Lock()
	e, ok := r.entries[consoleID]
	if ok {
		delete(r.entries, consoleID)
	}
	r.mu.Unlock()

	if ok {
		e.ctrl.Stop()
	}
}

func (r *Registry) remove(consoleID string, ctrl *Controller) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[consoleID]; ok && e.ctrl == ctrl {
		delete(r.entries, consoleID)
		return true
	}
	return false
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run evicts idle consoles until ctx is done
func (r *Registry) Run(ctx context.Context) {
	interval := r.opts.IdleTTL / 2
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
			if n := r.EvictIdle(); n > 0 {
				r.logger.Info("Evicted idle consoles", "count", n)
			}
		}
	}
}

// EvictIdle stops controllers untouched for longer than the idle TTL and
// drops their feeds
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.opts.IdleTTL)

	r.mu.Lock()
	var stale []*Controller
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.ctrl)
			delete(r.entries, id)
			if feed, ok := r.feeds[id]; ok {
				feed.Close()
				delete(r.feeds, id)
			}
		}
	}
	r.mu.Unlock()

	for _, ctrl := range stale {
		ctrl.Stop()
	}
	return len(stale)
}

// Shutdown stops every controller. It returns ctx.Err() if the controllers
// did not stop in time.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	ctrls := make([]*Controller, 0, len(r.entries))
	for id, e := range r.entries {
		ctrls = append(ctrls, e.ctrl)
		delete(r.entries, id)
	}
	for id, feed := range r.feeds {
		feed.Close()
		delete(r.feeds, id)
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, ctrl := range ctrls {
		g.Go(func() error {
			ctrl.Stop()
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// navigator turns a controller's navigation request into a feed directive
// followed by a reset of that controller
type navigator struct {
	registry  *Registry
	consoleID string
	feed      *Feed
	ctrl      *Controller
}

func (n *navigator) Navigate(path string) {
	n.feed.Redirect(path)
	if n.registry.remove(n.consoleID, n.ctrl) {
		n.ctrl.Stop()
	}
}
