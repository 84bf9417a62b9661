package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

type AssignmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assignment, error)
	Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	List(ctx context.Context, tx *gorm.DB, filters AssignmentFilters) ([]*models.Assignment, int64, error)

	// GetCounters returns submission counters keyed by assignment id. Every
	// requested id is present in the result.
	GetCounters(ctx context.Context, tx *gorm.DB, assignmentIDs []string) (map[string]models.SubmissionCounters, error)
}

type SubmissionRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error)
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) ([]*models.Submission, error)

	// Grade stores score, feedback, grader and status in one update
	Grade(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
}
