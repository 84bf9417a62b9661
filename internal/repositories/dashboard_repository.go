package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// DashboardRepository interface for dashboard analytics operations
type DashboardRepository interface {
	// Overview counts
	CountCoursesByStatus(ctx context.Context, tx *gorm.DB, status models.PublishStatus) (int64, error)
	CountAssignments(ctx context.Context, tx *gorm.DB) (int64, error)
	CountSubmissionsByStatus(ctx context.Context, tx *gorm.DB, statuses ...models.SubmissionStatus) (int64, error)

	// GradedOutcome counts graded submissions and those scoring at least
	// threshold (0..1) of the assignment max score
	GradedOutcome(ctx context.Context, tx *gorm.DB, threshold float64) (graded int64, successful int64, err error)

	// Recent activities across profiles, submissions, courses and discussions
	GetRecentActivities(ctx context.Context, tx *gorm.DB, limit int) ([]RecentActivityData, error)
}

// Activity kinds
const (
	ActivityProfileJoined     = "profile_joined"
	ActivitySubmissionCreated = "submission_created"
	ActivityCourseCreated     = "course_created"
	ActivityDiscussionStarted = "discussion_started"
)

type RecentActivityData struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	ActorID   string    `json:"actor_id,omitempty"`
	ActorName string    `json:"actor_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
