package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SAP-F-2025/admin-console/internal/events"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

const defaultResolveTimeout = 5 * time.Second

// Resolver loads profiles from the profile store and repairs missing ones.
// It is shared by every console; concurrent lookups for the same identity
// share one store round trip.
type Resolver struct {
	profiles  repositories.ProfileRepository
	publisher events.EventPublisher
	logger    *slog.Logger
	timeout   time.Duration
	flight    singleflight.Group
}

func NewResolver(profiles repositories.ProfileRepository, publisher events.EventPublisher, logger *slog.Logger) *Resolver {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		profiles:  profiles,
		publisher: publisher,
		logger:    logger,
		timeout:   defaultResolveTimeout,
	}
}

// Resolve returns the stored profile of identity, joining a lookup already
// running for the same id
func (r *Resolver) Resolve(ctx context.Context, identity *models.Identity) *models.Profile {
	if identity == nil {
		return nil
	}
	// The first caller's context drives the shared lookup, so it must not be
	// cancelled by that caller going away
	lookupCtx := context.WithoutCancel(ctx)
	v, _, _ := r.flight.Do(identity.ID, func() (any, error) {
		return r.lookup(lookupCtx, identity, false), nil
	})
	return cloneProfile(v.(*models.Profile))
}

// Refresh reads the profile store even if a lookup is running or a cached
// copy exists. Lookups starting meanwhile join the refresh.
func (r *Resolver) Refresh(ctx context.Context, identity *models.Identity) *models.Profile {
	if identity == nil {
		return nil
	}
	r.flight.Forget(identity.ID)
	lookupCtx := context.WithoutCancel(ctx)
	v, _, _ := r.flight.Do(identity.ID, func() (any, error) {
		return r.lookup(lookupCtx, identity, true), nil
	})
	return cloneProfile(v.(*models.Profile))
}

func (r *Resolver) lookup(ctx context.Context, identity *models.Identity, fresh bool) *models.Profile {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := r.logger.With("user_id", identity.ID)

	get := r.profiles.GetByID
	if fresh {
		get = r.profiles.Reload
	}
	profile, err := get(ctx, nil, identity.ID)
	if err == nil {
		return profile
	}

	fallback := FallbackProfile(identity)

	if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("Failed to load profile, using fallback", "error", err)
		r.publish(ctx, events.EventProfileFallback, identity.ID, map[string]any{"reason": "store_error"})
		return fallback
	}

	logger.Info("Profile not found, creating default profile", "role", fallback.Role)
	created, err := r.profiles.CreateIfAbsent(ctx, nil, cloneProfile(fallback))
	if err != nil {
		logger.Error("Failed to create default profile, using fallback", "error", err)
		r.publish(ctx, events.EventProfileFallback, identity.ID, map[string]any{"reason": "create_failed"})
		return fallback
	}

	r.publish(ctx, events.EventProfileCreated, identity.ID, map[string]any{"role": string(created.Role)})
	return created
}

func (r *Resolver) publish(ctx context.Context, eventType, subject string, data map[string]any) {
	if err := r.publisher.Publish(ctx, events.NewEvent(eventType, subject, data)); err != nil {
		r.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

// FallbackProfile synthesizes a profile from identity alone. The result is
// deterministic for a given identity.
func FallbackProfile(identity *models.Identity) *models.Profile {
	profile := &models.Profile{
		ID:       identity.ID,
		FullName: fallbackName(identity),
		Role:     fallbackRole(identity),
	}
	if avatar, ok := identity.UserMeta("avatar_url"); ok {
		profile.AvatarURL = &avatar
	}
	return profile
}

func fallbackRole(identity *models.Identity) models.UserRole {
	if hint, ok := identity.UserMeta("role"); ok {
		if role, ok := models.ParseUserRole(hint); ok {
			return role
		}
	}
	if hint, ok := identity.AppMeta("role"); ok {
		if role, ok := models.ParseUserRole(hint); ok {
			return role
		}
	}

	email := strings.ToLower(identity.Email)
	switch {
	case strings.Contains(email, "teacher"):
		return models.RoleTeacher
	case strings.Contains(email, "admin"):
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

func fallbackName(identity *models.Identity) string {
	if local, _, _ := strings.Cut(identity.Email, "@"); strings.TrimSpace(local) != "" {
		return local
	}
	if name, ok := identity.UserMeta("full_name"); ok {
		return name
	}
	return "User"
}

func cloneProfile(p *models.Profile) *models.Profile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
