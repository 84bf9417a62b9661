package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/services"
	"github.com/SAP-F-2025/admin-console/internal/utils"
)

type ProfileHandler struct {
	BaseHandler
	service services.ProfileService
}

func NewProfileHandler(service services.ProfileService, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListProfiles lists user profiles
// @Summary List profiles
// @Tags profiles
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param role query string false "Role filter"
// @Param search query string false "Name search"
// @Success 200 {object} models.PaginatedResponse
// @Failure 400 {object} ErrorResponse
// @Router /profiles [get]
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	params := models.ListProfilesParams{
		Page:   h.parseIntQuery(c, "page", 1),
		Size:   h.parseIntQuery(c, "size", 10),
		Search: c.Query("search"),
	}
	if role := queryPtr(c, "role"); role != nil {
		parsed, ok := models.ParseUserRole(*role)
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid role",
				Details: *role,
			})
			return
		}
		params.Role = &parsed
	}

	result, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCurrentProfile returns the acting profile
// @Summary Current profile
// @Tags profiles
// @Produce json
// @Success 200 {object} models.Profile
// @Router /profiles/me [get]
func (h *ProfileHandler) GetCurrentProfile(c *gin.Context) {
	c.JSON(http.StatusOK, actor(c))
}

// ListRecipients lists the profiles the actor can message
// @Summary Message recipients
// @Tags profiles
// @Produce json
// @Success 200 {array} models.Profile
// @Router /profiles/recipients [get]
func (h *ProfileHandler) ListRecipients(c *gin.Context) {
	recipients, err := h.service.Recipients(c.Request.Context(), actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipients)
}

// GetProfile retrieves a profile by ID
// @Summary Get profile
// @Tags profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} ErrorResponse
// @Router /profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	profile, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile edits a profile. Editing your own profile refreshes the
// console's session so the new role and name apply immediately.
// @Summary Update profile
// @Tags profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param profile body services.ProfileUpdateRequest true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /profiles/{id} [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.ProfileUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	current := actor(c)
	h.LogRequest(c, "Updating profile", "profile_id", id, "actor_id", current.ID)

	profile, err := h.service.Update(c.Request.Context(), current, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if profile.ID == current.ID {
		if ctrl := controller(c); ctrl != nil {
			if err := ctrl.RefreshProfile(c.Request.Context()); err != nil {
				utils.GetLogger(c, h.logger).Warn("Failed to refresh session profile", "profile_id", id, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, profile)
}
