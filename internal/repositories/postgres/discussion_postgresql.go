package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

type discussionPostgreSQL struct {
	db *gorm.DB
}

func NewDiscussionPostgreSQL(db *gorm.DB) repositories.DiscussionRepository {
	return &discussionPostgreSQL{db: db}
}

func (r *discussionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *discussionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, discussion *models.Discussion) error {
	if err := r.getDB(tx).WithContext(ctx).Create(discussion).Error; err != nil {
		return handleDBError(err, "create discussion")
	}
	return nil
}

func (r *discussionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Discussion, error) {
	var discussion models.Discussion
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Discussion{}).
		Select("discussions.*, (SELECT COUNT(*) FROM discussion_replies WHERE discussion_replies.discussion_id = discussions.id) AS reply_count").
		Where("id = ?", id).
		Take(&discussion).Error; err != nil {
		return nil, handleDBError(err, "get discussion by id")
	}
	return &discussion, nil
}

func (r *discussionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.DiscussionFilters) ([]*models.Discussion, error) {
	query := r.getDB(tx).WithContext(ctx).
		Model(&models.Discussion{}).
		Select("discussions.*, (SELECT COUNT(*) FROM discussion_replies WHERE discussion_replies.discussion_id = discussions.id) AS reply_count")

	if filters.Category != nil && *filters.Category != "" && *filters.Category != "all" {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if strings.TrimSpace(filters.Search) != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
	}

	var discussions []*models.Discussion
	if err := query.Order("last_activity_at DESC").Find(&discussions).Error; err != nil {
		return nil, handleDBError(err, "list discussions")
	}
	return discussions, nil
}

func (r *discussionPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.DiscussionStatus) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Discussion{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return handleDBError(result.Error, "update discussion status")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update discussion status")
	}
	return nil
}

func (r *discussionPostgreSQL) ListReplies(ctx context.Context, tx *gorm.DB, discussionID string) ([]*models.DiscussionReply, error) {
	var replies []*models.DiscussionReply
	if err := r.getDB(tx).WithContext(ctx).
		Where("discussion_id = ?", discussionID).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		return nil, handleDBError(err, "list discussion replies")
	}
	return replies, nil
}

func (r *discussionPostgreSQL) CreateReply(ctx context.Context, tx *gorm.DB, reply *models.DiscussionReply) error {
	return r.getDB(tx).WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Create(reply).Error; err != nil {
			return handleDBError(err, "create discussion reply")
		}

		result := db.Model(&models.Discussion{}).
			Where("id = ?", reply.DiscussionID).
			Update("last_activity_at", reply.CreatedAt)
		if result.Error != nil {
			return handleDBError(result.Error, "touch discussion activity")
		}
		if result.RowsAffected == 0 {
			return handleDBError(gorm.ErrRecordNotFound, "touch discussion activity")
		}
		return nil
	})
}
