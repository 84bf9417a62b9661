// Package guard decides which top-level view a console may see for a given
// auth state.
package guard

import (
	"slices"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/session"
)

type View string

const (
	// ViewSetup is shown when no auth service is configured
	ViewSetup View = "setup"
	// ViewLoading means nothing conclusive is known yet
	ViewLoading View = "loading"
	ViewSignIn  View = "sign_in"
	// ViewProfilePending is an identity whose profile is still resolving
	ViewProfilePending View = "profile_pending"
	ViewAccessDenied   View = "access_denied"
	ViewConsole        View = "console"
)

// Allowed is the set of roles that may enter the console
var Allowed = models.ConsoleRoles

// Decide maps a controller snapshot to a view. Checks run in order: setup,
// loading, sign-in, pending profile, role.
func Decide(s session.State) View {
	switch {
	case !s.Configured:
		return ViewSetup
	case s.Loading:
		return ViewLoading
	case s.Identity == nil:
		return ViewSignIn
	case s.Profile == nil:
		if s.Phase == session.PhaseAuthenticating {
			return ViewProfilePending
		}
		return ViewSignIn
	case !slices.Contains(Allowed, s.Profile.Role):
		return ViewAccessDenied
	default:
		return ViewConsole
	}
}

// Conclusive reports whether the view will not change without a new event
func (v View) Conclusive() bool {
	return v != ViewLoading && v != ViewProfilePending
}
