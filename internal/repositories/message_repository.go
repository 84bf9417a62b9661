package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

type MessageRepository interface {
	Create(ctx context.Context, tx *gorm.DB, message *models.Message) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Message, error)

	// ListForUser returns received messages as inbox and sent ones as sent,
	// newest first. A nil box returns both.
	ListForUser(ctx context.Context, tx *gorm.DB, userID string, box *models.MessageBox) ([]*models.UserMessage, error)

	MarkRead(ctx context.Context, tx *gorm.DB, id string) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}
