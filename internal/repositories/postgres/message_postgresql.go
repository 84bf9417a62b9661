package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

type messagePostgreSQL struct {
	db *gorm.DB
}

func NewMessagePostgreSQL(db *gorm.DB) repositories.MessageRepository {
	return &messagePostgreSQL{db: db}
}

func (r *messagePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *messagePostgreSQL) Create(ctx context.Context, tx *gorm.DB, message *models.Message) error {
	if err := r.getDB(tx).WithContext(ctx).Create(message).Error; err != nil {
		return handleDBError(err, "create message")
	}
	return nil
}

func (r *messagePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Message, error) {
	var message models.Message
	if err := r.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		return nil, handleDBError(err, "get message by id")
	}
	return &message, nil
}

func (r *messagePostgreSQL) ListForUser(ctx context.Context, tx *gorm.DB, userID string, box *models.MessageBox) ([]*models.UserMessage, error) {
	var messages []*models.UserMessage
	if err := userMessagesQuery(r.getDB(tx).WithContext(ctx), userID, box).Find(&messages).Error; err != nil {
		return nil, handleDBError(err, "list user messages")
	}
	return messages, nil
}

// userMessagesQuery tags received rows as inbox and authored rows as sent
func userMessagesQuery(db *gorm.DB, userID string, box *models.MessageBox) *gorm.DB {
	inbox := db.Model(&models.Message{}).
		Select("messages.*, ? AS type", models.BoxInbox).
		Where("recipient_id = ?", userID)
	sent := db.Model(&models.Message{}).
		Select("messages.*, ? AS type", models.BoxSent).
		Where("sender_id = ?", userID)

	var query *gorm.DB
	switch {
	case box != nil && *box == models.BoxInbox:
		query = db.Table("(?) AS user_messages", inbox)
	case box != nil && *box == models.BoxSent:
		query = db.Table("(?) AS user_messages", sent)
	default:
		query = db.Table("(? UNION ALL ?) AS user_messages", inbox, sent)
	}
	return query.Order("sent_at DESC")
}

func (r *messagePostgreSQL) MarkRead(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return handleDBError(result.Error, "mark message read")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "mark message read")
	}
	return nil
}

func (r *messagePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).Where("id = ?", id).Delete(&models.Message{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete message")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete message")
	}
	return nil
}
