package auth

import (
	"context"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// EventKind names an auth state change
type EventKind string

const (
	EventInitialSession EventKind = "INITIAL_SESSION"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventSignedOut      EventKind = "SIGNED_OUT"
)

// Event is delivered to OnAuthStateChange callbacks. Session is nil when the
// change left the console without a session.
type Event struct {
	Kind    EventKind
	Session *models.Session
}

// SignOutScope selects which sessions of the user are terminated
type SignOutScope string

const (
	ScopeGlobal SignOutScope = "global"
	ScopeLocal  SignOutScope = "local"
	ScopeOthers SignOutScope = "others"
)

// Subscription cancels an OnAuthStateChange registration
type Subscription interface {
	Unsubscribe()
}

// Provider is the upstream authentication service as seen by one console
type Provider interface {
	GetSession(ctx context.Context) (*models.Session, error)
	OnAuthStateChange(fn func(Event)) Subscription
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, scope SignOutScope) error
	GetUser(ctx context.Context) (*models.Identity, error)
}

// Configured reports whether p talks to a real auth service
func Configured(p Provider) bool {
	if p == nil {
		return false
	}
	if c, ok := p.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}
