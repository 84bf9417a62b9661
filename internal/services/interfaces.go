package services

import (
	"context"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

// ===== REQUEST DTOs =====

type (
	ProfileUpdateRequest    = validator.ProfileUpdateRequest
	CourseCreateRequest     = validator.CourseCreateRequest
	CourseUpdateRequest     = validator.CourseUpdateRequest
	AssignmentCreateRequest = validator.AssignmentCreateRequest
	AssignmentUpdateRequest = validator.AssignmentUpdateRequest
	GradeSubmissionRequest  = validator.GradeSubmissionRequest
	SendMessageRequest      = validator.SendMessageRequest
	DiscussionCreateRequest = validator.DiscussionCreateRequest
	DiscussionReplyRequest  = validator.DiscussionReplyRequest
	DiscussionStatusRequest = validator.DiscussionStatusRequest
)

// ===== RESPONSE DTOs =====

type DiscussionDetail struct {
	*models.Discussion
	Replies []*models.DiscussionReply `json:"replies"`
}

type DashboardOverview struct {
	TotalUsers         int64                     `json:"total_users"`
	UsersByRole        map[models.UserRole]int64 `json:"users_by_role"`
	PublishedCourses   int64                     `json:"published_courses"`
	TotalAssignments   int64                     `json:"total_assignments"`
	PendingSubmissions int64                     `json:"pending_submissions"`
	GradedSubmissions  int64                     `json:"graded_submissions"`
	SuccessRate        float64                   `json:"success_rate"`
}

type RecentActivityResponse struct {
	repositories.RecentActivityData
	TimeAgo string `json:"time_ago"`
}

// ===== SERVICE INTERFACES =====

// Every mutating operation takes the acting profile resolved by the session
// controller of the caller's console.

type ProfileService interface {
	List(ctx context.Context, params models.ListProfilesParams) (*models.PaginatedResponse, error)
	Get(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, actor *models.Profile, id string, req *ProfileUpdateRequest) (*models.Profile, error)

	// Recipients lists named profiles other than the actor
	Recipients(ctx context.Context, actor *models.Profile) ([]*models.Profile, error)
}

type CourseService interface {
	List(ctx context.Context, params models.ListCoursesParams) (*models.PaginatedResponse, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, actor *models.Profile, req *CourseCreateRequest) (*models.Course, error)
	Update(ctx context.Context, actor *models.Profile, id string, req *CourseUpdateRequest) (*models.Course, error)
	Delete(ctx context.Context, actor *models.Profile, id string) error
}

type AssignmentService interface {
	// List and Get fill the submission counters of every assignment
	List(ctx context.Context, params models.ListAssignmentsParams) (*models.PaginatedResponse, error)
	Get(ctx context.Context, id string) (*models.Assignment, error)
	Create(ctx context.Context, actor *models.Profile, req *AssignmentCreateRequest) (*models.Assignment, error)
	Update(ctx context.Context, actor *models.Profile, id string, req *AssignmentUpdateRequest) (*models.Assignment, error)
	Delete(ctx context.Context, actor *models.Profile, id string) error

	// Statistics aggregates over every assignment matching params, ignoring paging
	Statistics(ctx context.Context, params models.ListAssignmentsParams) (*models.AssignmentStatistics, error)
}

type GradingService interface {
	ListSubmissions(ctx context.Context, assignmentID string) ([]*models.Submission, error)
	Grade(ctx context.Context, actor *models.Profile, submissionID string, req *GradeSubmissionRequest) (*models.Submission, error)
}

type MessageService interface {
	List(ctx context.Context, actor *models.Profile, box *models.MessageBox) ([]*models.UserMessage, error)
	Send(ctx context.Context, actor *models.Profile, req *SendMessageRequest) (*models.Message, error)
	MarkRead(ctx context.Context, actor *models.Profile, id string) error
	Delete(ctx context.Context, actor *models.Profile, id string) error
}

type DiscussionService interface {
	List(ctx context.Context, params models.ListDiscussionsParams) ([]*models.Discussion, error)
	Get(ctx context.Context, id string) (*DiscussionDetail, error)
	Create(ctx context.Context, actor *models.Profile, req *DiscussionCreateRequest) (*models.Discussion, error)
	Reply(ctx context.Context, actor *models.Profile, id string, req *DiscussionReplyRequest) (*models.DiscussionReply, error)
	SetStatus(ctx context.Context, actor *models.Profile, id string, req *DiscussionStatusRequest) (*models.Discussion, error)
}

type DashboardService interface {
	Overview(ctx context.Context) (*DashboardOverview, error)
	RecentActivities(ctx context.Context, limit int) ([]RecentActivityResponse, error)
}

// ServiceManager exposes every console service
type ServiceManager interface {
	Profile() ProfileService
	Course() CourseService
	Assignment() AssignmentService
	Grading() GradingService
	Message() MessageService
	Discussion() DiscussionService
	Dashboard() DashboardService

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}
