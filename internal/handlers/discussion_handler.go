package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/services"
	"github.com/SAP-F-2025/admin-console/internal/utils"
)

type DiscussionHandler struct {
	BaseHandler
	service services.DiscussionService
}

func NewDiscussionHandler(service services.DiscussionService, logger utils.Logger) *DiscussionHandler {
	return &DiscussionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListDiscussions lists discussions by last activity
// @Summary List discussions
// @Tags discussions
// @Produce json
// @Param category query string false "Category"
// @Param status query string false "open or closed"
// @Param search query string false "Title or content search"
// @Success 200 {array} models.Discussion
// @Failure 400 {object} ErrorResponse
// @Router /discussions [get]
func (h *DiscussionHandler) ListDiscussions(c *gin.Context) {
	params := models.ListDiscussionsParams{
		Category: queryPtr(c, "category"),
		Search:   c.Query("search"),
	}
	if status := queryPtr(c, "status"); status != nil {
		value := models.DiscussionStatus(*status)
		params.Status = &value
	}

	discussions, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, discussions)
}

// GetDiscussion retrieves a discussion with its replies
// @Summary Get discussion
// @Tags discussions
// @Produce json
// @Param id path string true "Discussion ID"
// @Success 200 {object} services.DiscussionDetail
// @Failure 404 {object} ErrorResponse
// @Router /discussions/{id} [get]
func (h *DiscussionHandler) GetDiscussion(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	discussion, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, discussion)
}

// CreateDiscussion starts a discussion
// @Summary Create discussion
// @Tags discussions
// @Accept json
// @Produce json
// @Param discussion body services.DiscussionCreateRequest true "Discussion"
// @Success 201 {object} models.Discussion
// @Failure 400 {object} ErrorResponse
// @Router /discussions [post]
func (h *DiscussionHandler) CreateDiscussion(c *gin.Context) {
	var req services.DiscussionCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating discussion", "category", req.Category)

	discussion, err := h.service.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, discussion)
}

// ReplyToDiscussion appends a reply to an open discussion
// @Summary Reply to discussion
// @Tags discussions
// @Accept json
// @Produce json
// @Param id path string true "Discussion ID"
// @Param reply body services.DiscussionReplyRequest true "Reply"
// @Success 201 {object} models.DiscussionReply
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /discussions/{id}/replies [post]
func (h *DiscussionHandler) ReplyToDiscussion(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.DiscussionReplyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	reply, err := h.service.Reply(c.Request.Context(), actor(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// UpdateDiscussionStatus closes or reopens a discussion
// @Summary Update discussion status
// @Tags discussions
// @Accept json
// @Produce json
// @Param id path string true "Discussion ID"
// @Param status body services.DiscussionStatusRequest true "New status"
// @Success 200 {object} models.Discussion
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /discussions/{id}/status [put]
func (h *DiscussionHandler) UpdateDiscussionStatus(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.DiscussionStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating discussion status", "discussion_id", id, "status", req.Status)

	discussion, err := h.service.SetStatus(c.Request.Context(), actor(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, discussion)
}
