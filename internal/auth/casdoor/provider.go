package casdoor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SAP-F-2025/admin-console/internal/auth"
	"github.com/SAP-F-2025/admin-console/internal/cache"
	"github.com/SAP-F-2025/admin-console/internal/models"
)

// storedSession is the persisted form of a session. models.Session hides its
// tokens from JSON, so the artifact uses its own shape.
type storedSession struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresAt    time.Time        `json:"expires_at"`
	User         *models.Identity `json:"user"`
	TokenID      string           `json:"token_id,omitempty"`
}

func toStored(s *models.Session) storedSession {
	return storedSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresAt:    s.ExpiresAt,
		User:         s.User,
		TokenID:      s.TokenID,
	}
}

func (s storedSession) session() *models.Session {
	return &models.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresAt:    s.ExpiresAt,
		User:         s.User,
		TokenID:      s.TokenID,
	}
}

// Provider is the auth.Provider of a single console
type Provider struct {
	client      *Client
	consoleID   string
	artifacts   *cache.ConsoleArtifacts
	broadcaster *auth.Broadcaster
	logger      *slog.Logger

	mu      sync.Mutex
	session *models.Session
	loaded  bool
	closed  bool
	renewal *time.Timer
	renewWG sync.WaitGroup
}

var _ auth.Provider = (*Provider)(nil)

// GetSession returns the current session, restoring it from the console
// artifacts on first use. An expired session is renewed once; if renewal
// fails the console is left without a session.
func (p *Provider) GetSession(ctx context.Context) (*models.Session, error) {
	p.mu.Lock()
	if p.loaded {
		session := p.session
		p.mu.Unlock()
		return session, nil
	}
	p.mu.Unlock()

	var stored storedSession
	err := p.artifacts.Get(ctx, SessionArtifactKey, &stored)
	switch {
	case errors.Is(err, cache.ErrCacheNotFound), errors.Is(err, cache.ErrCacheNotAvailable):
		p.setLoaded(nil)
		return nil, nil
	case err != nil:
		return nil, err
	}

	session := stored.session()
	if session.User == nil {
		p.discardStored(ctx, "")
		p.setLoaded(nil)
		return nil, nil
	}

	if session.Expired(p.client.now()) {
		renewed, err := p.renewTokens(session)
		if err != nil {
			p.logger.Info("Stored session could not be renewed", "error", err, "user_id", session.User.ID)
			p.discardStored(ctx, session.User.ID)
			p.setLoaded(nil)
			return nil, nil
		}
		session = renewed
		p.persist(ctx, session)
	}

	p.setLoaded(session)
	return session, nil
}

func (p *Provider) setLoaded(session *models.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.session = session
	p.loaded = true
	p.scheduleRenewalLocked()
}

func (p *Provider) OnAuthStateChange(fn func(auth.Event)) auth.Subscription {
	return p.broadcaster.Subscribe(fn)
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	token, err := p.client.passwordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}

	session, err := p.client.sessionFromToken(token)
	if err != nil {
		return nil, err
	}

	p.persist(ctx, session)
	p.client.indexConsole(ctx, session.User.ID, p.consoleID)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return session, nil
	}
	if previous := p.session; previous != nil && previous.User != nil && previous.User.ID != session.User.ID {
		defer p.client.unindexConsole(ctx, previous.User.ID, p.consoleID)
	}
	p.session = session
	p.loaded = true
	p.stopRenewalLocked()
	p.mu.Unlock()

	p.logger.Info("User signed in", "user_id", session.User.ID)
	p.broadcaster.Broadcast(auth.Event{Kind: auth.EventSignedIn, Session: session})

	// Renewal starts after SIGNED_IN so TOKEN_REFRESHED can never precede it
	p.mu.Lock()
	if p.session == session {
		p.scheduleRenewalLocked()
	}
	p.mu.Unlock()
	return session, nil
}

// SignOut ends the session on this console and, depending on scope, on the
// user's other consoles. The local session is always cleared.
func (p *Provider) SignOut(ctx context.Context, scope auth.SignOutScope) error {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	var userID string
	if session != nil && session.User != nil {
		userID = session.User.ID
	}

	var err error
	if userID != "" && scope != auth.ScopeLocal {
		err = p.client.signOutUser(ctx, userID, p.consoleID)
	}

	if scope != auth.ScopeOthers {
		p.terminate(ctx, userID)
	}
	return err
}

// terminate clears the session of this console, revokes its token upstream
// and emits SIGNED_OUT
func (p *Provider) terminate(ctx context.Context, userID string) {
	p.mu.Lock()
	session := p.session
	p.session = nil
	p.loaded = true
	p.stopRenewalLocked()
	closed := p.closed
	p.mu.Unlock()

	if session != nil {
		p.client.revoke(session.TokenID)
	}
	p.discardStored(ctx, userID)
	if !closed {
		p.broadcaster.Broadcast(auth.Event{Kind: auth.EventSignedOut})
	}
}

// GetUser re-verifies the current access token
func (p *Provider) GetUser(ctx context.Context) (*models.Identity, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return nil, auth.ErrNoSession
	}

	claims, err := p.client.sdk.ParseJwtToken(session.AccessToken)
	if err != nil {
		return nil, &auth.Error{Code: auth.CodeSessionMissing, Message: err.Error(), Status: http.StatusUnauthorized}
	}
	identity := identityFromClaims(claims)
	if identity == nil {
		return nil, auth.ErrNoSession
	}
	return identity, nil
}

// Close stops renewal and drops subscribers. Persisted artifacts stay so a
// later provider for the console can restore the session.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.stopRenewalLocked()
	p.mu.Unlock()

	p.renewWG.Wait()
	p.broadcaster.Close()
	p.client.release(p)
	return nil
}

// ===== RENEWAL =====

func (p *Provider) scheduleRenewalLocked() {
	p.stopRenewalLocked()
	if p.closed || p.session == nil || p.session.RefreshToken == "" || p.session.ExpiresAt.IsZero() {
		return
	}

	delay := max(p.session.ExpiresAt.Sub(p.client.now())-p.client.leeway, 0)
	p.renewal = time.AfterFunc(delay, p.renew)
}

func (p *Provider) stopRenewalLocked() {
	if p.renewal != nil {
		p.renewal.Stop()
		p.renewal = nil
	}
}

// renew runs on the renewal timer. Success emits TOKEN_REFRESHED with the new
// session, failure emits TOKEN_REFRESHED without one.
func (p *Provider) renew() {
	p.mu.Lock()
	if p.closed || p.session == nil {
		p.mu.Unlock()
		return
	}
	current := p.session
	p.renewWG.Add(1)
	p.mu.Unlock()
	defer p.renewWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	renewed, err := p.renewTokens(current)

	p.mu.Lock()
	if p.closed || p.session != current {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.session = nil
		p.renewal = nil
		p.mu.Unlock()

		p.logger.Warn("Token renewal failed", "error", err, "user_id", current.User.ID)
		p.discardStored(ctx, current.User.ID)
		p.broadcaster.Broadcast(auth.Event{Kind: auth.EventTokenRefreshed})
		return
	}
	p.session = renewed
	p.scheduleRenewalLocked()
	p.mu.Unlock()

	p.persist(ctx, renewed)
	p.logger.Debug("Token renewed", "user_id", renewed.User.ID, "expires_at", renewed.ExpiresAt)
	p.broadcaster.Broadcast(auth.Event{Kind: auth.EventTokenRefreshed, Session: renewed})
}

func (p *Provider) renewTokens(current *models.Session) (*models.Session, error) {
	if current.RefreshToken == "" {
		return nil, auth.ErrNoSession
	}
	token, err := p.client.refresh(current.RefreshToken)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}
	return p.client.sessionFromToken(token)
}

// ===== PERSISTENCE =====

func (p *Provider) persist(ctx context.Context, session *models.Session) {
	if err := p.artifacts.Set(ctx, SessionArtifactKey, toStored(session), 0); err != nil {
		p.logger.Warn("Failed to persist session", "error", err)
	}
}

func (p *Provider) discardStored(ctx context.Context, userID string) {
	if err := p.artifacts.Delete(ctx, SessionArtifactKey); err != nil {
		p.logger.Warn("Failed to delete persisted session", "error", err)
	}
	if userID != "" {
		p.client.unindexConsole(ctx, userID, p.consoleID)
	}
}
