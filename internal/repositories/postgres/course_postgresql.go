package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/cache"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

type coursePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

var courseSort = sortSpec{
	columns: map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"title":      "title",
		"price":      "price",
		"level":      "level",
	},
	defaultColumn: "created_at",
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &coursePostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *coursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== BASIC CRUD OPERATIONS =====

func (r *coursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("Instructor").Create(course).Error; err != nil {
		return handleDBError(err, "create course")
	}
	if r.cacheManager != nil {
		cache.InvalidateCourseCache(ctx, r.cacheManager, course.ID)
	}
	return nil
}

func (r *coursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	fetch := func() (any, error) {
		var course models.Course
		if err := r.getDB(tx).WithContext(ctx).
			Preload("Instructor").
			Where("id = ?", id).
			First(&course).Error; err != nil {
			return nil, handleDBError(err, "get course by id")
		}

		if err := r.fillAssignmentCounts(ctx, tx, []*models.Course{&course}); err != nil {
			return nil, err
		}
		return &course, nil
	}

	if tx != nil || r.cacheManager == nil {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		return result.(*models.Course), nil
	}

	var course models.Course
	if err := r.cacheManager.Course.CacheOrExecute(ctx, "id:"+id, &course, cache.CourseCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *coursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", course.ID).
		Select("title", "description", "instructor_id", "thumbnail_url", "level", "duration", "price", "status", "updated_at").
		Updates(course)
	if result.Error != nil {
		return handleDBError(result.Error, "update course")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update course")
	}

	if r.cacheManager != nil {
		cache.InvalidateCourseCache(ctx, r.cacheManager, course.ID)
	}
	return nil
}

func (r *coursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).Where("id = ?", id).Delete(&models.Course{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete course")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete course")
	}

	if r.cacheManager != nil {
		cache.InvalidateCourseCache(ctx, r.cacheManager, id)
	}
	return nil
}

// ===== QUERY OPERATIONS =====

func (r *coursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Course{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Level != nil {
		query = query.Where("level = ?", *filters.Level)
	}
	if filters.InstructorID != nil {
		query = query.Where("instructor_id = ?", *filters.InstructorID)
	}
	if strings.TrimSpace(filters.Search) != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count courses")
	}

	var courses []*models.Course
	query = applyPaginationAndSort(query.Preload("Instructor"), courseSort, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, handleDBError(err, "list courses")
	}

	if err := r.fillAssignmentCounts(ctx, tx, courses); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

func (r *coursePostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check course exists")
	}
	return count > 0, nil
}

func (r *coursePostgreSQL) fillAssignmentCounts(ctx context.Context, tx *gorm.DB, courses []*models.Course) error {
	if len(courses) == 0 {
		return nil
	}

	ids := make([]string, len(courses))
	for i, course := range courses {
		ids[i] = course.ID
	}

	var rows []struct {
		CourseID string
		Count    int64
	}
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Assignment{}).
		Select("course_id, COUNT(*) AS count").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&rows).Error; err != nil {
		return handleDBError(err, "count course assignments")
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CourseID] = row.Count
	}
	for _, course := range courses {
		course.AssignmentCount = counts[course.ID]
	}
	return nil
}
