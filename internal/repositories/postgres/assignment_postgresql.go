package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/cache"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

type assignmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

var assignmentSort = sortSpec{
	columns: map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"title":      "title",
		"due_date":   "due_date",
		"max_score":  "max_score",
	},
	defaultColumn: "created_at",
}

func NewAssignmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AssignmentRepository {
	return &assignmentPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *assignmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *assignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("Course").Create(assignment).Error; err != nil {
		return handleDBError(err, "create assignment")
	}
	r.invalidate(ctx, assignment.ID, assignment.CourseID)
	return nil
}

func (r *assignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Course").
		Where("id = ?", id).
		First(&assignment).Error; err != nil {
		return nil, handleDBError(err, "get assignment by id")
	}
	return &assignment, nil
}

func (r *assignmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	previousCourse := r.courseOf(ctx, tx, assignment.ID)

	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", assignment.ID).
		Select("course_id", "quiz_id", "title", "description", "type", "due_date", "max_score", "instructions", "status", "updated_at").
		Updates(assignment)
	if result.Error != nil {
		return handleDBError(result.Error, "update assignment")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update assignment")
	}
	r.invalidate(ctx, assignment.ID, assignment.CourseID, previousCourse)
	return nil
}

func (r *assignmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	courseID := r.courseOf(ctx, tx, id)
	db := r.getDB(tx).WithContext(ctx)

	if err := db.Where("assignment_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
		return handleDBError(err, "delete assignment submissions")
	}

	result := db.Where("id = ?", id).Delete(&models.Assignment{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete assignment")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete assignment")
	}
	r.invalidate(ctx, id, courseID)
	return nil
}

func (r *assignmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Assignment{})

	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if strings.TrimSpace(filters.Search) != "" {
		query = query.Where("title ILIKE ?", likePattern(filters.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count assignments")
	}

	var assignments []*models.Assignment
	query = applyPaginationAndSort(query.Preload("Course"), assignmentSort, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, handleDBError(err, "list assignments")
	}

	return assignments, total, nil
}

// GetCounters reads through the counters cache outside transactions
func (r *assignmentPostgreSQL) GetCounters(ctx context.Context, tx *gorm.DB, assignmentIDs []string) (map[string]models.SubmissionCounters, error) {
	if len(assignmentIDs) == 0 {
		return make(map[string]models.SubmissionCounters), nil
	}
	if tx != nil || r.cacheManager == nil {
		return r.loadCounters(ctx, tx, assignmentIDs)
	}

	counters, missing := cache.GetCounters(ctx, r.cacheManager, assignmentIDs)
	if len(missing) == 0 {
		return counters, nil
	}

	loaded, err := r.loadCounters(ctx, nil, missing)
	if err != nil {
		return nil, err
	}
	cache.SetCounters(ctx, r.cacheManager, loaded)
	for id, c := range loaded {
		counters[id] = c
	}
	return counters, nil
}

func (r *assignmentPostgreSQL) loadCounters(ctx context.Context, tx *gorm.DB, assignmentIDs []string) (map[string]models.SubmissionCounters, error) {
	counters := make(map[string]models.SubmissionCounters, len(assignmentIDs))

	var rows []struct {
		AssignmentID string
		Total        int64
		Graded       int64
		Pending      int64
		AverageScore float64
	}
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Submission{}).
		Select(`assignment_id,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status IN ?) AS graded,
			COUNT(*) FILTER (WHERE status IN ?) AS pending,
			COALESCE(AVG(score) FILTER (WHERE score IS NOT NULL), 0) AS average_score`,
			[]models.SubmissionStatus{models.SubmissionGraded, models.SubmissionReturned},
			models.ReviewableStatuses).
		Where("assignment_id IN ?", assignmentIDs).
		Group("assignment_id").
		Scan(&rows).Error; err != nil {
		return nil, handleDBError(err, "get submission counters")
	}

	for _, id := range assignmentIDs {
		counters[id] = models.SubmissionCounters{AssignmentID: id}
	}
	for _, row := range rows {
		counters[row.AssignmentID] = models.SubmissionCounters{
			AssignmentID: row.AssignmentID,
			Total:        row.Total,
			Graded:       row.Graded,
			Pending:      row.Pending,
			AverageScore: row.AverageScore,
		}
	}
	return counters, nil
}

// courseOf returns the stored course of an assignment, or "" when unknown.
// Only needed for cache invalidation.
func (r *assignmentPostgreSQL) courseOf(ctx context.Context, tx *gorm.DB, assignmentID string) string {
	if r.cacheManager == nil {
		return ""
	}
	var courseIDs []string
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", assignmentID).
		Pluck("course_id", &courseIDs).Error; err != nil || len(courseIDs) == 0 {
		return ""
	}
	return courseIDs[0]
}

// invalidate drops the assignment's counters and the courses whose
// assignment count may have changed
func (r *assignmentPostgreSQL) invalidate(ctx context.Context, assignmentID string, courseIDs ...string) {
	if r.cacheManager == nil {
		return
	}
	cache.InvalidateAssignmentCache(ctx, r.cacheManager, assignmentID)
	cache.InvalidateCourseCache(ctx, r.cacheManager, courseIDs...)
}

type submissionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSubmissionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SubmissionRepository {
	return &submissionPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *submissionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *submissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Submission, error) {
	var submission models.Submission
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Student").
		Where("id = ?", id).
		First(&submission).Error; err != nil {
		return nil, handleDBError(err, "get submission by id")
	}
	return &submission, nil
}

func (r *submissionPostgreSQL) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID string) ([]*models.Submission, error) {
	var submissions []*models.Submission
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ?", assignmentID).
		Order("submitted_at DESC NULLS LAST").
		Find(&submissions).Error; err != nil {
		return nil, handleDBError(err, "list submissions")
	}
	return submissions, nil
}

func (r *submissionPostgreSQL) Grade(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", submission.ID).
		Select("score", "feedback", "status", "graded_by", "graded_at", "updated_at").
		Updates(submission)
	if result.Error != nil {
		return handleDBError(result.Error, "grade submission")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "grade submission")
	}

	if r.cacheManager != nil {
		cache.InvalidateAssignmentCache(ctx, r.cacheManager, submission.AssignmentID)
	}
	return nil
}
