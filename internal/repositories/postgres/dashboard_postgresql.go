package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== DASHBOARD STATS =====

func (r *dashboardRepository) CountCoursesByStatus(ctx context.Context, tx *gorm.DB, status models.PublishStatus) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountAssignments(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Assignment{}).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) CountSubmissionsByStatus(ctx context.Context, tx *gorm.DB, statuses ...models.SubmissionStatus) (int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Submission{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// ===== METRICS =====

func (r *dashboardRepository) GradedOutcome(ctx context.Context, tx *gorm.DB, threshold float64) (int64, int64, error) {
	var result struct {
		Graded     int64
		Successful int64
	}

	if err := r.getDB(tx).WithContext(ctx).
		Table("submissions").
		Select(`COUNT(*) AS graded,
			COUNT(*) FILTER (WHERE submissions.score >= assignments.max_score * ?) AS successful`, threshold).
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("submissions.status = ? AND submissions.score IS NOT NULL", models.SubmissionGraded).
		Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to get graded outcome: %w", err)
	}

	return result.Graded, result.Successful, nil
}

// ===== RECENT ACTIVITIES =====

func (r *dashboardRepository) GetRecentActivities(ctx context.Context, tx *gorm.DB, limit int) ([]repositories.RecentActivityData, error) {
	db := r.getDB(tx).WithContext(ctx)
	if limit <= 0 {
		limit = 10
	}

	var activities []repositories.RecentActivityData

	var profiles []models.Profile
	if err := db.Order("created_at DESC").Limit(limit).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent profiles: %w", err)
	}
	for _, p := range profiles {
		activities = append(activities, repositories.RecentActivityData{
			ID:        p.ID,
			Kind:      repositories.ActivityProfileJoined,
			Title:     p.DisplayName(),
			ActorID:   p.ID,
			ActorName: p.DisplayName(),
			CreatedAt: p.CreatedAt,
		})
	}

	var submissions []struct {
		ID              string
		UserID          string
		UserName        *string
		AssignmentTitle string
		CreatedAt       time.Time
	}
	if err := db.Table("submissions").
		Select("submissions.id, submissions.user_id, profiles.full_name AS user_name, " +
			"assignments.title AS assignment_title, COALESCE(submissions.submitted_at, submissions.created_at) AS created_at").
		Joins("LEFT JOIN assignments ON assignments.id = submissions.assignment_id").
		Joins("LEFT JOIN profiles ON profiles.id = submissions.user_id").
		Order("created_at DESC").
		Limit(limit).
		Scan(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent submissions: %w", err)
	}
	for _, s := range submissions {
		name := "Unknown User"
		if s.UserName != nil && *s.UserName != "" {
			name = *s.UserName
		}
		activities = append(activities, repositories.RecentActivityData{
			ID:        s.ID,
			Kind:      repositories.ActivitySubmissionCreated,
			Title:     s.AssignmentTitle,
			ActorID:   s.UserID,
			ActorName: name,
			CreatedAt: s.CreatedAt,
		})
	}

	var courses []models.Course
	if err := db.Preload("Instructor").Order("created_at DESC").Limit(limit).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent courses: %w", err)
	}
	for _, c := range courses {
		activities = append(activities, repositories.RecentActivityData{
			ID:        c.ID,
			Kind:      repositories.ActivityCourseCreated,
			Title:     c.Title,
			ActorID:   c.InstructorID,
			ActorName: c.Instructor.DisplayName(),
			CreatedAt: c.CreatedAt,
		})
	}

	var discussions []models.Discussion
	if err := db.Order("created_at DESC").Limit(limit).Find(&discussions).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent discussions: %w", err)
	}
	for _, d := range discussions {
		activities = append(activities, repositories.RecentActivityData{
			ID:        d.ID,
			Kind:      repositories.ActivityDiscussionStarted,
			Title:     d.Title,
			ActorID:   d.AuthorID,
			ActorName: d.AuthorName,
			CreatedAt: d.CreatedAt,
		})
	}

	return mergeRecentActivities(activities, limit), nil
}

// mergeRecentActivities keeps the newest limit entries across all sources
func mergeRecentActivities(activities []repositories.RecentActivityData, limit int) []repositories.RecentActivityData {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities
}
