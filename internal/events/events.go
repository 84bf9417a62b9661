package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "admin-console"
	EventVersion = "1.0"
)

// Event types emitted by the console
const (
	EventSignedIn          = "auth.signed_in"
	EventSignedOut         = "auth.signed_out"
	EventSessionExpired    = "auth.session_expired"
	EventProfileCreated    = "profile.created"
	EventProfileFallback   = "profile.fallback_used"
	EventAccessDenied      = "console.access_denied"
	EventSubmissionGraded  = "submission.graded"
	EventMessageSent       = "message.sent"
	EventDiscussionCreated = "discussion.created"
)

// Event is the envelope published for every domain event
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	ConsoleID string         `json:"console_id,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent builds an event envelope. Subject is the profile or entity the
// event is about.
func NewEvent(eventType, subject string, data map[string]any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Subject:   subject,
		Data:      data,
	}
}

// ForConsole tags the event with the console it originated from
func (e *Event) ForConsole(consoleID string) *Event {
	e.ConsoleID = consoleID
	return e
}

// EventPublisher delivers events to the configured broker
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }
func (NopPublisher) Close() error                          { return nil }
