package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/admin-console/internal/auth"
	"github.com/SAP-F-2025/admin-console/internal/guard"
	"github.com/SAP-F-2025/admin-console/internal/session"
	"github.com/SAP-F-2025/admin-console/internal/utils"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

// SessionResponse is the console's view of its own auth state. Feed holds
// the notifications and navigation directives produced since the last read.
type SessionResponse struct {
	State session.State      `json:"state"`
	View  guard.View         `json:"view"`
	Feed  []session.FeedItem `json:"feed"`
}

type SessionHandler struct {
	BaseHandler
	registry  *session.Registry
	validator *validator.Validator
}

func NewSessionHandler(registry *session.Registry, validator *validator.Validator, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		registry:    registry,
		validator:   validator,
	}
}

func (h *SessionHandler) snapshot(c *gin.Context, state session.State) SessionResponse {
	feed := h.registry.Feed(c.GetString(consoleIDKey)).Drain()
	if feed == nil {
		feed = []session.FeedItem{}
	}
	return SessionResponse{
		State: state,
		View:  guard.Decide(state),
		Feed:  feed,
	}
}

// GetSession returns the current auth state of the console
// @Summary Get console session
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 503 {object} ErrorResponse
// @Router /session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	ctrl := controller(c)
	c.JSON(http.StatusOK, h.snapshot(c, ctrl.State()))
}

// StreamSession pushes state snapshots and feed items as server-sent events
// until the client goes away or the console is reset
// @Summary Stream console session
// @Tags session
// @Produce text/event-stream
// @Router /session/events [get]
func (h *SessionHandler) StreamSession(c *gin.Context) {
	ctrl := controller(c)
	consoleID := c.GetString(consoleIDKey)

	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()
	items, stopListening := h.registry.Feed(consoleID).Listen()
	defer stopListening()

	h.LogRequest(c, "Session stream opened", "console_id", consoleID)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case state, ok := <-states:
			if !ok {
				// The controller stopped; flush directives issued while it did.
				for {
					select {
					case item, ok := <-items:
						if !ok {
							return false
						}
						c.SSEvent(string(item.Kind), item)
					default:
						return false
					}
				}
			}
			c.SSEvent("state", gin.H{"state": state, "view": guard.Decide(state)})
			return true
		case item, ok := <-items:
			if !ok {
				return false
			}
			c.SSEvent(string(item.Kind), item)
			return true
		case <-ctx.Done():
			return false
		}
	})

	h.LogRequest(c, "Session stream closed", "console_id", consoleID)
}

// SignIn verifies password credentials
// @Summary Sign in
// @Tags session
// @Accept json
// @Produce json
// @Param credentials body validator.SignInRequest true "Credentials"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /session/sign-in [post]
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req validator.SignInRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Signing in", "console_id", c.GetString(consoleIDKey))

	if err := controller(c).SignIn(c.Request.Context(), req.Email, req.Password); err != nil {
		var authErr *auth.Error
		if !errors.As(err, &authErr) && !errors.Is(err, auth.ErrNotConfigured) {
			c.JSON(http.StatusBadGateway, ErrorResponse{Message: session.MsgUnexpectedError})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	h.success(c, http.StatusOK, session.MsgSignedIn, nil)
}

// SignOut clears the console's session. It never fails from the caller's view.
// @Summary Sign out
// @Tags session
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /session/sign-out [post]
func (h *SessionHandler) SignOut(c *gin.Context) {
	h.LogRequest(c, "Signing out", "console_id", c.GetString(consoleIDKey))

	ctrl := controller(c)
	if err := ctrl.SignOut(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.snapshot(c, ctrl.State()))
}

// RefreshProfile re-reads the profile of the signed-in identity
// @Summary Refresh profile
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ErrorResponse
// @Router /session/refresh [post]
func (h *SessionHandler) RefreshProfile(c *gin.Context) {
	ctrl := controller(c)
	if err := ctrl.RefreshProfile(c.Request.Context()); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.snapshot(c, ctrl.State()))
}
