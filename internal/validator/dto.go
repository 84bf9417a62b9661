package validator

import (
	"time"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// SignInRequest carries password credentials
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdateRequest represents the editable profile fields
type ProfileUpdateRequest struct {
	FullName  *string          `json:"full_name" validate:"omitempty,not_blank,max=255"`
	Role      *models.UserRole `json:"role" validate:"omitempty,user_role"`
	AvatarURL *string          `json:"avatar_url" validate:"omitempty,url,max=500"`
	Bio       *string          `json:"bio" validate:"omitempty,max=2000"`
	MentorID  *string          `json:"mentor_id" validate:"omitempty,max=255"`
}

// CourseCreateRequest represents the request structure for creating courses
type CourseCreateRequest struct {
	Title        string               `json:"title" validate:"required,not_blank,max=200"`
	Description  *string              `json:"description" validate:"omitempty,max=5000"`
	InstructorID *string              `json:"instructor_id" validate:"omitempty,max=255"`
	ThumbnailURL *string              `json:"thumbnail_url" validate:"omitempty,url,max=500"`
	Level        models.CourseLevel   `json:"level" validate:"omitempty,course_level"`
	Duration     *string              `json:"duration" validate:"omitempty,max=50"`
	Price        float64              `json:"price" validate:"min=0"`
	Status       models.PublishStatus `json:"status" validate:"omitempty,course_status"`
}

// CourseUpdateRequest represents the request structure for updating courses
type CourseUpdateRequest struct {
	Title        *string               `json:"title" validate:"omitempty,not_blank,max=200"`
	Description  *string               `json:"description" validate:"omitempty,max=5000"`
	InstructorID *string               `json:"instructor_id" validate:"omitempty,max=255"`
	ThumbnailURL *string               `json:"thumbnail_url" validate:"omitempty,url,max=500"`
	Level        *models.CourseLevel   `json:"level" validate:"omitempty,course_level"`
	Duration     *string               `json:"duration" validate:"omitempty,max=50"`
	Price        *float64              `json:"price" validate:"omitempty,min=0"`
	Status       *models.PublishStatus `json:"status" validate:"omitempty,course_status"`
}

// AssignmentCreateRequest represents the request structure for creating assignments
type AssignmentCreateRequest struct {
	CourseID     string                `json:"course_id" validate:"required"`
	QuizID       *string               `json:"quiz_id"`
	Title        string                `json:"title" validate:"required,not_blank,max=200"`
	Description  *string               `json:"description" validate:"omitempty,max=5000"`
	Type         models.AssignmentType `json:"type" validate:"required,assignment_type"`
	DueDate      *time.Time            `json:"due_date"`
	MaxScore     float64               `json:"max_score" validate:"required,gt=0,max=1000"`
	Instructions *string               `json:"instructions" validate:"omitempty,max=10000"`
	Status       models.PublishStatus  `json:"status" validate:"omitempty,publish_status"`
}

// AssignmentUpdateRequest represents the request structure for updating assignments
type AssignmentUpdateRequest struct {
	Title        *string                `json:"title" validate:"omitempty,not_blank,max=200"`
	Description  *string                `json:"description" validate:"omitempty,max=5000"`
	Type         *models.AssignmentType `json:"type" validate:"omitempty,assignment_type"`
	DueDate      *time.Time             `json:"due_date"`
	MaxScore     *float64               `json:"max_score" validate:"omitempty,gt=0,max=1000"`
	Instructions *string                `json:"instructions" validate:"omitempty,max=10000"`
	Status       *models.PublishStatus  `json:"status" validate:"omitempty,publish_status"`
}

// GradeSubmissionRequest scores one submission
type GradeSubmissionRequest struct {
	Score    *float64 `json:"score" validate:"required,min=0"`
	Feedback *string  `json:"feedback" validate:"omitempty,max=5000"`
}

// SendMessageRequest represents a new direct message
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Subject     string `json:"subject" validate:"required,not_blank,max=255"`
	Content     string `json:"content" validate:"required,not_blank,max=10000"`
}

// DiscussionCreateRequest starts a discussion thread
type DiscussionCreateRequest struct {
	Title    string `json:"title" validate:"required,not_blank,max=200"`
	Content  string `json:"content" validate:"required,not_blank,max=10000"`
	Category string `json:"category" validate:"omitempty,discussion_category"`
}

// DiscussionReplyRequest adds a reply to a thread
type DiscussionReplyRequest struct {
	Content string `json:"content" validate:"required,not_blank,max=10000"`
}

// DiscussionStatusRequest closes or reopens a thread
type DiscussionStatusRequest struct {
	Status models.DiscussionStatus `json:"status" validate:"required,discussion_status"`
}
