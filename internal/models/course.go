package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

// PublishStatus is shared by courses and assignments.
type PublishStatus string

const (
	StatusDraft     PublishStatus = "draft"
	StatusPublished PublishStatus = "published"
	StatusArchived  PublishStatus = "archived"
)

func (l CourseLevel) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

func (s PublishStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type Course struct {
	ID           string        `json:"id" gorm:"primaryKey;size:36"`
	Title        string        `json:"title" gorm:"not null;size:200;index"`
	Description  *string       `json:"description" gorm:"type:text"`
	InstructorID string        `json:"instructor_id" gorm:"not null;size:255;index"`
	ThumbnailURL *string       `json:"thumbnail_url" gorm:"size:500"`
	Level        CourseLevel   `json:"level" gorm:"size:20;default:beginner"`
	Duration     *string       `json:"duration" gorm:"size:50"`
	Price        float64       `json:"price" gorm:"type:numeric(10,2);default:0"`
	Status       PublishStatus `json:"status" gorm:"size:20;default:draft;index"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	Instructor *Profile `json:"instructor,omitempty" gorm:"foreignKey:InstructorID"`

	// Computed fields (not stored)
	AssignmentCount int64 `json:"assignment_count" gorm:"-"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
