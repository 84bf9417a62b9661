package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/admin-console/internal/events"
	"github.com/SAP-F-2025/admin-console/internal/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	publishTimeout  = 2 * time.Second
)

// normalizePage returns a 1-based page and a bounded size
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	return page, min(size, maxPageSize)
}

func requireActor(actor *models.Profile) error {
	if actor == nil || actor.ID == "" {
		return ErrUnauthorized
	}
	return nil
}

func isAdmin(actor *models.Profile) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

// publishEvent delivers an event without failing the caller. The request
// context may end before the broker acknowledges.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event *events.Event) {
	if publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := publisher.Publish(pubCtx, event); err != nil {
		logger.Warn("Failed to publish event",
			"error", err,
			"event_type", event.Type,
			"subject", event.Subject)
	}
}

// timeAgo renders a coarse relative time for activity feeds
func timeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	default:
		return t.Format("2006-01-02")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
