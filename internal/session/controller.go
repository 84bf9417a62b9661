package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SAP-F-2025/admin-console/internal/auth"
	"github.com/SAP-F-2025/admin-console/internal/events"
	"github.com/SAP-F-2025/admin-console/internal/models"
)

var (
	ErrStopped        = errors.New("session controller stopped")
	ErrAlreadyStarted = errors.New("session controller already started")
)

const (
	eventBuffer      = 16
	subscriberBuffer = 8

	defaultRedirectDelay = 100 * time.Millisecond
	rootPath             = "/"
)

// Notifier receives user-visible notifications
type Notifier interface {
	Notify(n Notification)
}

// Navigator performs full navigations. Navigating tears the console down and
// the next request starts from a fresh controller.
type Navigator interface {
	Navigate(path string)
}

// Artifacts is the console's persisted client-side storage
type Artifacts interface {
	PurgeAuth(ctx context.Context) error
	Clear(ctx context.Context) error
}

// ProfileResolver turns an identity into a profile. It never returns nil for
// a non-nil identity.
type ProfileResolver interface {
	// Resolve may join a resolution already running for the same identity
	Resolve(ctx context.Context, identity *models.Identity) *models.Profile
	// Refresh always performs a fresh lookup
	Refresh(ctx context.Context, identity *models.Identity) *models.Profile
}

type Options struct {
	ConsoleID string
	Provider  auth.Provider
	Resolver  ProfileResolver
	Notifier  Notifier
	Navigator Navigator
	Artifacts Artifacts
	Publisher events.EventPublisher
	Logger    *slog.Logger

	// RedirectDelay postpones navigation after sign-out and expiry
	RedirectDelay time.Duration
}

type resolution struct {
	identityID string
	epoch      uint64
	seq        uint64
}

// Controller owns the auth state of one console. Provider events are applied
// by a single goroutine in emission order; profile resolutions run in the
// background and are tagged so only the newest result of the current epoch
// is applied.
type Controller struct {
	consoleID     string
	provider      auth.Provider
	resolver      ProfileResolver
	notifier      Notifier
	navigator     Navigator
	artifacts     Artifacts
	publisher     events.EventPublisher
	logger        *slog.Logger
	redirectDelay time.Duration
	configured    bool

	mu         sync.Mutex
	state      State
	epoch      uint64
	seq        uint64
	appliedSeq uint64
	inflight   *resolution
	started    bool
	stopped    bool
	subs       map[int]chan State
	nextSub    int
	timers     []*time.Timer

	events      chan auth.Event
	done        chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	sub         auth.Subscription
	redirecting atomic.Bool
	loopWG      sync.WaitGroup
	work        sync.WaitGroup
	stopOnce    sync.Once
}

func NewController(opts Options) *Controller {
	provider := opts.Provider
	if provider == nil {
		provider = auth.Disabled{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	delay := opts.RedirectDelay
	if delay <= 0 {
		delay = defaultRedirectDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		consoleID:     opts.ConsoleID,
		provider:      provider,
		resolver:      opts.Resolver,
		notifier:      opts.Notifier,
		navigator:     opts.Navigator,
		artifacts:     opts.Artifacts,
		publisher:     publisher,
		logger:        logger.With("console_id", opts.ConsoleID),
		redirectDelay: delay,
		subs:          make(map[int]chan State),
		events:        make(chan auth.Event, eventBuffer),
		done:          make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
	c.configured = auth.Configured(provider)
	c.state = State{Loading: true, Phase: PhaseUnresolved, Configured: c.configured}
	return c
}

func (c *Controller) ConsoleID() string {
	return c.consoleID
}

// Start subscribes to provider events and feeds the current session through
// the same path as an INITIAL_SESSION event. Without a configured provider it
// settles as anonymous immediately.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	if !c.configured {
		c.logger.Warn("Auth service not configured, skipping session initialization")
		c.update(func(s *State) {
			s.Loading = false
			s.Phase = PhaseAnonymous
		})
		return nil
	}

	sub := c.provider.OnAuthStateChange(c.enqueue)

	// Stop may have run while subscribing
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		sub.Unsubscribe()
		return ErrStopped
	}
	c.sub = sub
	c.loopWG.Add(1)
	c.mu.Unlock()

	go c.loop()

	session, err := c.provider.GetSession(ctx)
	if err != nil {
		c.logger.Error("Failed to get initial session", "error", err)
		session = nil
	}
	c.enqueue(auth.Event{Kind: auth.EventInitialSession, Session: session})
	return nil
}

func (c *Controller) enqueue(evt auth.Event) {
	select {
	case c.events <- evt:
	case <-c.done:
	}
}

func (c *Controller) loop() {
	defer c.loopWG.Done()
	for {
		select {
		case <-c.done:
			return
		case evt := <-c.events:
			c.handle(evt)
		}
	}
}

func (c *Controller) handle(evt auth.Event) {
	c.logger.Debug("Auth state change", "event", evt.Kind, "has_session", evt.Session != nil)

	switch {
	case evt.Kind == auth.EventTokenRefreshed && evt.Session == nil:
		c.logger.Warn("Token refresh failed, session expired")
		c.expire()
	case evt.Kind == auth.EventSignedOut:
		c.clear(PhaseAnonymous)
	case evt.Kind == auth.EventSignedIn, evt.Kind == auth.EventTokenRefreshed:
		c.adopt(evt.Session)
	case evt.Kind == auth.EventInitialSession:
		if evt.Session != nil {
			c.adopt(evt.Session)
			return
		}
		// A newer sign-in owns loading until its profile lands
		c.update(func(s *State) {
			if s.Identity == nil {
				s.Loading = false
				s.Phase = PhaseAnonymous
			}
		})
	default:
		c.logger.Warn("Ignoring unknown auth event", "event", evt.Kind)
	}
}

// adopt takes over the session and its identity and starts profile
// resolution unless one is already running for the same identity
func (c *Controller) adopt(session *models.Session) {
	if session == nil || session.User == nil {
		c.logger.Warn("Ignoring session without user")
		return
	}
	identity := session.User

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	next := c.state
	next.Session = session
	next.Identity = identity
	if c.state.Identity != nil && c.state.Identity.ID != identity.ID {
		c.epoch++
		next.Profile = nil
	}
	if next.Profile == nil {
		next.Phase = PhaseAuthenticating
	}
	c.setLocked(next)

	if c.inflight != nil && c.inflight.identityID == identity.ID && c.inflight.epoch == c.epoch {
		c.mu.Unlock()
		c.logger.Debug("Profile resolution already in flight, joining", "user_id", identity.ID)
		return
	}
	r := c.beginLocked(identity.ID)
	c.mu.Unlock()

	go c.run(r, identity, c.resolver.Resolve)
}

// beginLocked reserves a resolution slot; c.mu must be held
func (c *Controller) beginLocked(identityID string) *resolution {
	c.seq++
	r := &resolution{identityID: identityID, epoch: c.epoch, seq: c.seq}
	c.inflight = r
	c.work.Add(1)
	return r
}

func (c *Controller) run(r *resolution, identity *models.Identity, resolve func(context.Context, *models.Identity) *models.Profile) {
	defer c.work.Done()
	profile := resolve(c.ctx, identity)
	c.apply(r, profile)
}

// apply stores a resolved profile unless the result is stale
func (c *Controller) apply(r *resolution, profile *models.Profile) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight == r {
		c.inflight = nil
	}

	switch {
	case c.stopped:
		return false
	case r.epoch != c.epoch, r.seq <= c.appliedSeq:
		c.logger.Debug("Discarding stale profile resolution", "user_id", r.identityID, "seq", r.seq)
		return false
	case c.state.Identity == nil || c.state.Identity.ID != r.identityID:
		return false
	case profile == nil:
		c.logger.Error("Profile resolver returned nil", "user_id", r.identityID)
		return false
	}

	c.appliedSeq = r.seq
	next := c.state
	next.Profile = profile
	next.Loading = false
	next.Phase = PhaseAuthenticated
	c.setLocked(next)
	return true
}

// RefreshProfile re-resolves the profile of the current identity, bypassing
// any resolution in flight
func (c *Controller) RefreshProfile(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	identity := c.state.Identity
	if identity == nil {
		c.mu.Unlock()
		return auth.ErrNoSession
	}
	r := c.beginLocked(identity.ID)
	c.mu.Unlock()

	defer c.work.Done()
	profile := c.resolver.Refresh(ctx, identity)
	c.apply(r, profile)
	return nil
}

// expire runs the session-loss path. Only one expiry redirect can be pending.
func (c *Controller) expire() {
	if !c.redirecting.CompareAndSwap(false, true) {
		c.logger.Debug("Redirect already pending, ignoring expiry")
		return
	}

	c.notify(LevelError, MsgSessionExpired)

	var userID string
	if current := c.State(); current.Identity != nil {
		userID = current.Identity.ID
	}
	c.clear(PhaseExpired)

	if c.artifacts != nil {
		if err := c.artifacts.Clear(c.ctx); err != nil {
			c.logger.Warn("Failed to clear console artifacts", "error", err)
		}
	}
	c.publish(events.EventSessionExpired, userID, nil)

	c.after(c.redirectDelay, func() {
		c.update(func(s *State) { s.Phase = PhaseAnonymous })
		c.redirecting.Store(false)
	}, rootPath)
}

// SignIn verifies credentials with the provider. State changes arrive through
// the provider's SIGNED_IN event.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	if !c.configured {
		c.notify(LevelError, MsgNotConfigured)
		return auth.ErrNotConfigured
	}
	if c.isStopped() {
		return ErrStopped
	}

	session, err := c.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			c.logger.Warn("Sign in rejected", "error", err)
			c.notify(LevelError, authErr.Message)
		} else {
			c.logger.Error("Sign in failed", "error", err)
			c.notify(LevelError, MsgUnexpectedError)
		}
		return err
	}

	c.notify(LevelSuccess, MsgSignedIn)
	var userID string
	if session != nil && session.User != nil {
		userID = session.User.ID
	}
	c.publish(events.EventSignedIn, userID, nil)
	return nil
}

// SignOut always succeeds from the caller's point of view. Local state is
// cleared before the provider is contacted.
func (c *Controller) SignOut(ctx context.Context) error {
	if !c.configured {
		c.clear(PhaseAnonymous)
		c.notify(LevelSuccess, MsgSignedOutLocal)
		return nil
	}

	var userID string
	if current := c.State(); current.Identity != nil {
		userID = current.Identity.ID
	}
	c.clear(PhaseAnonymous)

	if err := c.provider.SignOut(ctx, auth.ScopeGlobal); err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			c.logger.Error("Sign out rejected by provider", "error", err)
			c.notify(LevelError, authErr.Message)
		} else {
			c.logger.Error("Sign out failed", "error", err)
			c.notify(LevelError, MsgSignOutFailed)
		}
	} else {
		c.notify(LevelSuccess, MsgSignedOut)
	}

	if c.artifacts != nil {
		if err := c.artifacts.PurgeAuth(ctx); err != nil {
			c.logger.Warn("Could not purge auth artifacts", "error", err)
		}
	}
	c.publish(events.EventSignedOut, userID, nil)

	c.after(c.redirectDelay, nil, rootPath)
	return nil
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe delivers the current snapshot followed by every change. Slow
// subscribers lose intermediate snapshots, never the latest one. The channel
// is closed by the returned func or by Stop.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, subscriberBuffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Stop tears the controller down. Resolutions still running are waited for
// and their results dropped.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		c.epoch++
		c.inflight = nil
		timers := c.timers
		c.timers = nil
		sub := c.sub
		c.sub = nil
		c.mu.Unlock()

		if sub != nil {
			sub.Unsubscribe()
		}
		close(c.done)
		c.cancel()
		c.loopWG.Wait()

		for _, t := range timers {
			if t.Stop() {
				c.work.Done()
			}
		}
		c.work.Wait()

		c.mu.Lock()
		for id, ch := range c.subs {
			delete(c.subs, id)
			close(ch)
		}
		c.mu.Unlock()

		if closer, ok := c.provider.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				c.logger.Warn("Failed to close auth provider", "error", err)
			}
		}
		c.logger.Debug("Session controller stopped")
	})
}

func (c *Controller) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Controller) clear(phase Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.epoch++
	c.inflight = nil
	c.setLocked(State{Loading: false, Phase: phase, Configured: c.configured})
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	next := c.state
	fn(&next)
	c.setLocked(next)
}

// setLocked publishes a new snapshot; c.mu must be held
func (c *Controller) setLocked(next State) {
	c.state = next
	for _, ch := range c.subs {
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}

// after runs fn and then navigates to path once delay has passed. Stop
// cancels timers that have not fired yet.
func (c *Controller) after(delay time.Duration, fn func(), path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.work.Add(1)
	t := time.AfterFunc(delay, func() {
		if c.isStopped() {
			c.work.Done()
			return
		}
		if fn != nil {
			fn()
		}
		// Navigating may stop this controller, which waits on c.work
		c.work.Done()
		if c.navigator != nil {
			c.navigator.Navigate(path)
		}
	})
	c.timers = append(c.timers, t)
}

func (c *Controller) notify(level Level, message string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(newNotification(level, message))
}

func (c *Controller) publish(eventType, subject string, data map[string]any) {
	evt := events.NewEvent(eventType, subject, data).ForConsole(c.consoleID)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), 2*time.Second)
	defer cancel()
	if err := c.publisher.Publish(ctx, evt); err != nil {
		c.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}
