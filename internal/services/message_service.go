package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/admin-console/internal/events"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

type messageService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewMessageService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) MessageService {
	return &messageService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *messageService) List(ctx context.Context, actor *models.Profile, box *models.MessageBox) ([]*models.UserMessage, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if box != nil && *box != models.BoxInbox && *box != models.BoxSent {
		return nil, NewValidationError("type", "must be inbox or sent", *box)
	}

	messages, err := s.repo.Message().ListForUser(ctx, nil, actor.ID, box)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Send stores a message. Sender and recipient names are copied onto the
// message, so renaming a profile later leaves old messages unchanged.
func (s *messageService) Send(ctx context.Context, actor *models.Profile, req *SendMessageRequest) (*models.Message, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.RecipientID == actor.ID {
		return nil, NewValidationError("recipient_id", "cannot send a message to yourself", req.RecipientID)
	}

	recipient, err := s.repo.Profile().GetByID(ctx, nil, req.RecipientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewValidationError("recipient_id", "recipient does not exist", req.RecipientID)
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	message := &models.Message{
		SenderID:      actor.ID,
		SenderName:    actor.DisplayName(),
		SenderRole:    actor.EffectiveRole(),
		RecipientID:   recipient.ID,
		RecipientName: recipient.DisplayName(),
		RecipientRole: recipient.EffectiveRole(),
		Subject:       req.Subject,
		Content:       req.Content,
	}

	if err := s.repo.Message().Create(ctx, nil, message); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.logger.Info("Message sent",
		"message_id", message.ID,
		"sender_id", actor.ID,
		"recipient_id", recipient.ID)

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.EventMessageSent, recipient.ID, map[string]any{
		"message_id": message.ID,
		"sender_id":  actor.ID,
		"subject":    message.Subject,
	}))

	return message, nil
}

// MarkRead is only allowed for the recipient
func (s *messageService) MarkRead(ctx context.Context, actor *models.Profile, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}

	message, err := s.repo.Message().GetByID(ctx, nil, id)
	if err != nil {
		return lookupError(err, "message")
	}
	if message.RecipientID != actor.ID {
		return NewPermissionError(actor.ID, id, "message", "mark read", "not the recipient")
	}
	if message.Read {
		return nil
	}

	if err := s.repo.Message().MarkRead(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return nil
}

// Delete removes a message for both participants. Only the sender or the
// recipient may delete it.
func (s *messageService) Delete(ctx context.Context, actor *models.Profile, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}

	message, err := s.repo.Message().GetByID(ctx, nil, id)
	if err != nil {
		return lookupError(err, "message")
	}
	if message.SenderID != actor.ID && message.RecipientID != actor.ID {
		return NewPermissionError(actor.ID, id, "message", "delete", "not a participant")
	}

	if err := s.repo.Message().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	s.logger.Info("Message deleted", "message_id", id, "actor_id", actor.ID)
	return nil
}
