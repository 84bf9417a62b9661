package handlers

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/admin-console/internal/guard"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/session"
	"github.com/SAP-F-2025/admin-console/internal/utils"
)

const (
	// ConsoleCookie identifies the browser context of a console
	ConsoleCookie = "console_id"

	consoleIDKey  = "console_id"
	controllerKey = "session_controller"
	profileKey    = "profile"

	defaultSettle = 2 * time.Second
	retryAfter    = 1
)

// ConsoleMiddleware binds requests to the session controller of their console
// and gates the console API on the controller's state
type ConsoleMiddleware struct {
	registry *session.Registry
	secure   bool
	logger   utils.Logger

	// settle bounds how long Guard waits for a conclusive view
	settle time.Duration
}

func NewConsoleMiddleware(registry *session.Registry, secureCookie bool, logger utils.Logger) *ConsoleMiddleware {
	return &ConsoleMiddleware{
		registry: registry,
		secure:   secureCookie,
		logger:   logger,
		settle:   defaultSettle,
	}
}

// Attach reads or issues the console cookie and loads the console's controller
func (cm *ConsoleMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		consoleID, err := c.Cookie(ConsoleCookie)
		if err != nil || uuid.Validate(consoleID) != nil {
			consoleID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ConsoleCookie, consoleID, 0, "/", "", cm.secure, true)
		}
		c.Set(consoleIDKey, consoleID)

		ctrl, err := cm.registry.Get(c.Request.Context(), consoleID)
		if err != nil {
			utils.GetLogger(c, cm.logger).Error("Failed to load session controller", "console_id", consoleID, "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Message: "Console session unavailable",
			})
			return
		}
		c.Set(controllerKey, ctrl)
		c.Next()
	}
}

// Guard admits only consoles whose view is ViewConsole. The acting profile is
// placed in the context for the handlers behind it.
func (cm *ConsoleMiddleware) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := controller(c)
		if ctrl == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Message: "Console session unavailable",
			})
			return
		}

		state, view := awaitConclusive(c.Request.Context(), ctrl, cm.settle)
		switch view {
		case guard.ViewConsole:
			c.Set(profileKey, state.Profile)
			c.Set("user_id", state.Profile.ID)
			c.Set("user_role", state.Profile.Role)
			c.Next()
		case guard.ViewLoading, guard.ViewProfilePending:
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"view": view})
		case guard.ViewSetup:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Message: session.MsgNotConfigured,
				Details: gin.H{"view": view},
			})
		case guard.ViewAccessDenied:
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Access denied",
				Details: gin.H{"view": view, "role": state.Profile.Role},
			})
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Sign in required",
				Details: gin.H{"view": view},
			})
		}
	}
}

// RequireRole lets admins through every route and everybody else only when
// their role is listed
func (cm *ConsoleMiddleware) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := actor(c)
		if profile == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}
		if profile.Role == models.RoleAdmin || slices.Contains(roles, profile.Role) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient permissions",
			Details: gin.H{"required_roles": roles, "role": profile.Role},
		})
	}
}

func controller(c *gin.Context) *session.Controller {
	if value, ok := c.Get(controllerKey); ok {
		if ctrl, ok := value.(*session.Controller); ok {
			return ctrl
		}
	}
	return nil
}

// awaitConclusive waits up to settle for the controller to reach a view that
// will not change on its own, returning the last snapshot seen otherwise
func awaitConclusive(ctx context.Context, ctrl *session.Controller, settle time.Duration) (session.State, guard.View) {
	state := ctrl.State()
	view := guard.Decide(state)
	if view.Conclusive() || settle <= 0 {
		return state, view
	}

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	timer := time.NewTimer(settle)
	defer timer.Stop()

	for {
		select {
		case next, ok := <-updates:
			if !ok {
				return state, view
			}
			state, view = next, guard.Decide(next)
			if view.Conclusive() {
				return state, view
			}
		case <-timer.C:
			return state, view
		case <-ctx.Done():
			return state, view
		}
	}
}
