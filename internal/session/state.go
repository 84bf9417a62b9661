package session

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// Phase is the coarse position of a console in the auth lifecycle
type Phase int

const (
	PhaseUnresolved Phase = iota
	PhaseAnonymous
	PhaseAuthenticating
	PhaseAuthenticated
	PhaseExpired
)

var phaseNames = map[Phase]string{
	PhaseUnresolved:     "unresolved",
	PhaseAnonymous:      "anonymous",
	PhaseAuthenticating: "authenticating",
	PhaseAuthenticated:  "authenticated",
	PhaseExpired:        "expired",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// State is an immutable snapshot of a console's auth state. Pointers in a
// snapshot are never mutated after publication.
type State struct {
	Identity *models.Identity `json:"user"`
	Profile  *models.Profile  `json:"profile"`
	Session  *models.Session  `json:"session"`
	Loading  bool             `json:"loading"`
	Phase    Phase            `json:"phase"`

	// Configured is false when no auth service is wired in
	Configured bool `json:"configured"`
}

// Signed reports whether an identity is present
func (s State) Signed() bool {
	return s.Identity != nil
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a transient user-visible message
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func newNotification(level Level, message string) Notification {
	return Notification{Level: level, Message: message, At: time.Now().UTC()}
}

// User-visible messages
const (
	MsgSignedIn        = "Successfully signed in!"
	MsgSignedOut       = "Successfully signed out!"
	MsgSignedOutLocal  = "Signed out locally"
	MsgSignOutFailed   = "Error signing out"
	MsgSessionExpired  = "Your session has expired. Please sign in again."
	MsgNotConfigured   = "Authentication service not configured"
	MsgUnexpectedError = "An unexpected error occurred"
)
