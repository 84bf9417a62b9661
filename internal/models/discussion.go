package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DiscussionStatus string

const (
	DiscussionOpen   DiscussionStatus = "open"
	DiscussionClosed DiscussionStatus = "closed"
)

var DiscussionCategories = []string{"general", "academic", "help", "ideas", "announcements"}

func (s DiscussionStatus) IsValid() bool {
	return s == DiscussionOpen || s == DiscussionClosed
}

// IsDiscussionCategory reports whether category is one of DiscussionCategories
func IsDiscussionCategory(category string) bool {
	return slices.Contains(DiscussionCategories, category)
}

type Discussion struct {
	ID             string           `json:"id" gorm:"primaryKey;size:36"`
	Title          string           `json:"title" gorm:"not null;size:200"`
	Content        string           `json:"content" gorm:"type:text;not null"`
	AuthorID       string           `json:"author_id" gorm:"not null;size:255;index"`
	AuthorName     string           `json:"author_name" gorm:"not null;size:255"`
	AuthorRole     UserRole         `json:"author_role" gorm:"size:20;default:student"`
	Category       string           `json:"category" gorm:"size:50;default:general;index"`
	Status         DiscussionStatus `json:"status" gorm:"size:20;default:open;index"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	LastActivityAt time.Time        `json:"last_activity_at" gorm:"index"`

	// Computed fields (not stored)
	ReplyCount int64 `json:"reply_count" gorm:"->;-:migration"`
}

func (Discussion) TableName() string {
	return "discussions"
}

func (d *Discussion) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.LastActivityAt.IsZero() {
		d.LastActivityAt = time.Now()
	}
	return nil
}

type DiscussionReply struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	DiscussionID string    `json:"discussion_id" gorm:"not null;size:36;index"`
	Content      string    `json:"content" gorm:"type:text;not null"`
	AuthorID     string    `json:"author_id" gorm:"not null;size:255"`
	AuthorName   string    `json:"author_name" gorm:"not null;size:255"`
	AuthorRole   UserRole  `json:"author_role" gorm:"size:20;default:student"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (DiscussionReply) TableName() string {
	return "discussion_replies"
}

func (r *DiscussionReply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
