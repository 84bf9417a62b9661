package repositories

import (
	"errors"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
)

// ===== SHARED FILTER STRUCTS =====

type ProfileFilters struct {
	Role      *models.UserRole `json:"role"`
	Search    string           `json:"search"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	SortBy    string           `json:"sort_by"`    // "created_at", "full_name", "role"
	SortOrder string           `json:"sort_order"` // "asc", "desc"
}

type CourseFilters struct {
	Status       *models.PublishStatus `json:"status"`
	Level        *models.CourseLevel   `json:"level"`
	InstructorID *string               `json:"instructor_id"`
	Search       string                `json:"search"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	SortBy       string                `json:"sort_by"`
	SortOrder    string                `json:"sort_order"`
}

type AssignmentFilters struct {
	CourseID  *string                `json:"course_id"`
	Type      *models.AssignmentType `json:"type"`
	Status    *models.PublishStatus  `json:"status"`
	Search    string                 `json:"search"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
	SortBy    string                 `json:"sort_by"` // "created_at", "title", "due_date"
	SortOrder string                 `json:"sort_order"`
}

type DiscussionFilters struct {
	Category *string                  `json:"category"`
	Status   *models.DiscussionStatus `json:"status"`
	Search   string                   `json:"search"`
}
