package models

import "time"

// ===== PAGINATION & FILTERING =====

type ListProfilesParams struct {
	Page   int       `json:"page" validate:"min=0"`
	Size   int       `json:"size" validate:"min=1,max=100"`
	Role   *UserRole `json:"role" validate:"omitempty,user_role"`
	Search string    `json:"search"`
}

type ListCoursesParams struct {
	Page         int            `json:"page" validate:"min=0"`
	Size         int            `json:"size" validate:"min=1,max=100"`
	Status       *PublishStatus `json:"status" validate:"omitempty,publish_status"`
	Level        *CourseLevel   `json:"level" validate:"omitempty,course_level"`
	InstructorID *string        `json:"instructor_id"`
	Search       string         `json:"search"`
}

type ListAssignmentsParams struct {
	Page     int             `json:"page" validate:"min=0"`
	Size     int             `json:"size" validate:"min=1,max=100"`
	CourseID *string         `json:"course_id"`
	Type     *AssignmentType `json:"type" validate:"omitempty,assignment_type"`
	Status   *PublishStatus  `json:"status" validate:"omitempty,publish_status"`
	Search   string          `json:"search"`
}

type ListDiscussionsParams struct {
	Category *string           `json:"category"`
	Status   *DiscussionStatus `json:"status" validate:"omitempty,discussion_status"`
	Search   string            `json:"search"`
}

type PaginatedResponse struct {
	Content          interface{} `json:"content"`
	TotalElements    int64       `json:"total_elements"`
	TotalPages       int         `json:"total_pages"`
	Size             int         `json:"size"`
	Page             int         `json:"page"`
	First            bool        `json:"first"`
	Last             bool        `json:"last"`
	NumberOfElements int         `json:"number_of_elements"`
	Empty            bool        `json:"empty"`
}

// NewPaginatedResponse builds the page envelope for a 1-based page number.
func NewPaginatedResponse(content interface{}, count int, total int64, page, size int) PaginatedResponse {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return PaginatedResponse{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		Size:             size,
		Page:             page,
		First:            page <= 1,
		Last:             page >= totalPages,
		NumberOfElements: count,
		Empty:            count == 0,
	}
}

// ===== STATISTICS =====

type AssignmentStatistics struct {
	TotalAssignments   int64   `json:"total_assignments"`
	TotalSubmissions   int64   `json:"total_submissions"`
	GradedSubmissions  int64   `json:"graded_submissions"`
	PendingSubmissions int64   `json:"pending_submissions"`
	AverageScore       float64 `json:"average_score"`
}

type SubmissionCounters struct {
	AssignmentID string  `json:"assignment_id"`
	Total        int64   `json:"total"`
	Graded       int64   `json:"graded"`
	Pending      int64   `json:"pending"`
	AverageScore float64 `json:"average_score"`
}

// ===== RESPONSES =====

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
