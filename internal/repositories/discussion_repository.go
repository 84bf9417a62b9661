package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

type DiscussionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, discussion *models.Discussion) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Discussion, error)

	// List orders by last activity and fills ReplyCount
	List(ctx context.Context, tx *gorm.DB, filters DiscussionFilters) ([]*models.Discussion, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.DiscussionStatus) error

	// Replies are returned oldest first
	ListReplies(ctx context.Context, tx *gorm.DB, discussionID string) ([]*models.DiscussionReply, error)

	// CreateReply also moves the discussion's last activity to the reply time
	CreateReply(ctx context.Context, tx *gorm.DB, reply *models.DiscussionReply) error
}
