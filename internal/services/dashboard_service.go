package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

const (
	// SuccessThreshold is the fraction of the max score a graded submission
	// needs to count as successful
	SuccessThreshold = 0.6

	defaultActivityLimit = 10
	maxActivityLimit     = 50
)

type dashboardService struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewDashboardService(repo repositories.Repository, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Overview runs the independent counts concurrently
func (s *dashboardService) Overview(ctx context.Context) (*DashboardOverview, error) {
	overview := &DashboardOverview{}
	dashboard := s.repo.Dashboard()

	var graded, successful int64
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		byRole, err := s.repo.Profile().CountByRole(gctx, nil)
		if err != nil {
			return fmt.Errorf("count profiles: %w", err)
		}
		overview.UsersByRole = make(map[models.UserRole]int64, len(models.Roles))
		for _, role := range models.Roles {
			overview.UsersByRole[role] = byRole[role]
		}
		for _, n := range byRole {
			overview.TotalUsers += n
		}
		return nil
	})
	g.Go(func() error {
		n, err := dashboard.CountCoursesByStatus(gctx, nil, models.StatusPublished)
		if err != nil {
			return fmt.Errorf("count published courses: %w", err)
		}
		overview.PublishedCourses = n
		return nil
	})
	g.Go(func() error {
		n, err := dashboard.CountAssignments(gctx, nil)
		if err != nil {
			return fmt.Errorf("count assignments: %w", err)
		}
		overview.TotalAssignments = n
		return nil
	})
	g.Go(func() error {
		n, err := dashboard.CountSubmissionsByStatus(gctx, nil, models.ReviewableStatuses...)
		if err != nil {
			return fmt.Errorf("count pending submissions: %w", err)
		}
		overview.PendingSubmissions = n
		return nil
	})
	g.Go(func() error {
		var err error
		graded, successful, err = dashboard.GradedOutcome(gctx, nil, SuccessThreshold)
		if err != nil {
			return fmt.Errorf("graded outcome: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build dashboard overview", "error", err)
		return nil, fmt.Errorf("failed to get dashboard overview: %w", err)
	}

	overview.GradedSubmissions = graded
	overview.SuccessRate = successRate(graded, successful)

	return overview, nil
}

// successRate is a percentage rounded to one decimal
func successRate(graded, successful int64) float64 {
	if graded == 0 {
		return 0
	}
	rate := float64(successful) / float64(graded) * 100
	return float64(int64(rate*10+0.5)) / 10
}

func (s *dashboardService) RecentActivities(ctx context.Context, limit int) ([]RecentActivityResponse, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	activities, err := s.repo.Dashboard().GetRecentActivities(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activities: %w", err)
	}

	now := s.now()
	response := make([]RecentActivityResponse, len(activities))
	for i, a := range activities {
		response[i] = RecentActivityResponse{
			RecentActivityData: a,
			TimeAgo:            timeAgo(a.CreatedAt, now),
		}
	}
	return response, nil
}
