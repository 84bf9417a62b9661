package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/services"
	"github.com/SAP-F-2025/admin-console/internal/utils"
)

type MessageHandler struct {
	BaseHandler
	service services.MessageService
}

func NewMessageHandler(service services.MessageService, logger utils.Logger) *MessageHandler {
	return &MessageHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListMessages lists the messages the actor received or sent
// @Summary List messages
// @Tags messages
// @Produce json
// @Param type query string false "inbox or sent; both when omitted"
// @Success 200 {array} models.UserMessage
// @Failure 400 {object} ErrorResponse
// @Router /messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var box *models.MessageBox
	if value := queryPtr(c, "type"); value != nil {
		b := models.MessageBox(*value)
		box = &b
	}

	messages, err := h.service.List(c.Request.Context(), actor(c), box)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessage sends a direct message from the actor
// @Summary Send message
// @Tags messages
// @Accept json
// @Produce json
// @Param message body services.SendMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} ErrorResponse
// @Router /messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req services.SendMessageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Sending message", "recipient_id", req.RecipientID)

	message, err := h.service.Send(c.Request.Context(), actor(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// MarkRead marks a received message as read
// @Summary Mark message read
// @Tags messages
// @Param id path string true "Message ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /messages/{id}/read [put]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actor(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, http.StatusOK, "Message marked as read", nil)
}

// DeleteMessage removes a message the actor sent or received
// @Summary Delete message
// @Tags messages
// @Param id path string true "Message ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting message", "message_id", id)

	if err := h.service.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
