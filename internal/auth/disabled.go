package auth

import (
	"context"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// Disabled stands in when no auth service is configured. It never has a
// session and rejects sign-in.
type Disabled struct{}

func (Disabled) Configured() bool { return false }

func (Disabled) GetSession(context.Context) (*models.Session, error) { return nil, nil }

func (Disabled) OnAuthStateChange(func(Event)) Subscription {
	return &subscription{cancel: func() {}}
}

func (Disabled) SignInWithPassword(context.Context, string, string) (*models.Session, error) {
	return nil, ErrNotConfigured
}

func (Disabled) SignOut(context.Context, SignOutScope) error { return ErrNotConfigured }

func (Disabled) GetUser(context.Context) (*models.Identity, error) { return nil, ErrNoSession }
