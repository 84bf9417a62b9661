package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

type assignmentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssignmentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) AssignmentService {
	return &assignmentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *assignmentService) filters(params models.ListAssignmentsParams) repositories.AssignmentFilters {
	return repositories.AssignmentFilters{
		CourseID:  params.CourseID,
		Type:      params.Type,
		Status:    params.Status,
		Search:    params.Search,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

func (s *assignmentService) List(ctx context.Context, params models.ListAssignmentsParams) (*models.PaginatedResponse, error) {
	page, size := normalizePage(params.Page, params.Size)

	filters := s.filters(params)
	filters.Limit = size
	filters.Offset = (page - 1) * size

	assignments, total, err := s.repo.Assignment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if err := s.fillCounters(ctx, assignments); err != nil {
		return nil, err
	}

	response := models.NewPaginatedResponse(assignments, len(assignments), total, page, size)
	return &response, nil
}

func (s *assignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}
	if err := s.fillCounters(ctx, []*models.Assignment{assignment}); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *assignmentService) Create(ctx context.Context, actor *models.Profile, req *AssignmentCreateRequest) (*models.Assignment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	bv := s.validator.GetBusinessValidator()
	if err := validationFailure(bv.ValidateAssignmentCreate(req)); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, req.CourseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewValidationError("course_id", "course does not exist", req.CourseID)
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if !isAdmin(actor) && course.InstructorID != actor.ID {
		return nil, NewPermissionError(actor.ID, course.ID, "course", "add assignment", "not instructor or administrator")
	}

	assignment := &models.Assignment{
		CourseID:     req.CourseID,
		QuizID:       req.QuizID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		DueDate:      req.DueDate,
		MaxScore:     req.MaxScore,
		Instructions: req.Instructions,
		Status:       req.Status,
	}
	if assignment.Status == "" {
		assignment.Status = models.StatusDraft
	}

	if err := s.repo.Assignment().Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info("Assignment created",
		"assignment_id", assignment.ID,
		"course_id", assignment.CourseID,
		"actor_id", actor.ID)

	return assignment, nil
}

func (s *assignmentService) Update(ctx context.Context, actor *models.Profile, id string, req *AssignmentUpdateRequest) (*models.Assignment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment, err := s.owned(ctx, actor, id, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		assignment.Title = *req.Title
	}
	if req.Description != nil {
		assignment.Description = req.Description
	}
	if req.Type != nil {
		assignment.Type = *req.Type
	}
	if req.DueDate != nil {
		assignment.DueDate = req.DueDate
	}
	if req.MaxScore != nil {
		assignment.MaxScore = *req.MaxScore
	}
	if req.Instructions != nil {
		assignment.Instructions = req.Instructions
	}
	if req.Status != nil {
		assignment.Status = *req.Status
	}

	if err := s.repo.Assignment().Update(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}

	s.logger.Info("Assignment updated", "assignment_id", id, "actor_id", actor.ID)
	return assignment, nil
}

func (s *assignmentService) Delete(ctx context.Context, actor *models.Profile, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actor, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.Assignment().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	s.logger.Info("Assignment deleted", "assignment_id", id, "actor_id", actor.ID)
	return nil
}

// Statistics sums submission counters over the matching assignments. The
// average score is the mean of the per-assignment averages, so assignments
// without graded work pull it down.
func (s *assignmentService) Statistics(ctx context.Context, params models.ListAssignmentsParams) (*models.AssignmentStatistics, error) {
	assignments, _, err := s.repo.Assignment().List(ctx, nil, s.filters(params))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if err := s.fillCounters(ctx, assignments); err != nil {
		return nil, err
	}

	stats := &models.AssignmentStatistics{TotalAssignments: int64(len(assignments))}
	if len(assignments) == 0 {
		return stats, nil
	}

	var scoreSum float64
	for _, a := range assignments {
		stats.TotalSubmissions += a.SubmissionCount
		stats.GradedSubmissions += a.GradedCount
		stats.PendingSubmissions += a.PendingCount
		scoreSum += a.AverageScore
	}
	stats.AverageScore = scoreSum / float64(len(assignments))

	return stats, nil
}

func (s *assignmentService) fillCounters(ctx context.Context, assignments []*models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
	}

	counters, err := s.repo.Assignment().GetCounters(ctx, nil, ids)
	if err != nil {
		return fmt.Errorf("failed to get submission counters: %w", err)
	}

	for _, a := range assignments {
		c := counters[a.ID]
		a.SubmissionCount = c.Total
		a.GradedCount = c.Graded
		a.PendingCount = c.Pending
		a.AverageScore = c.AverageScore
	}
	return nil
}

// owned loads an assignment whose course the actor may change
func (s *assignmentService) owned(ctx context.Context, actor *models.Profile, id, action string) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}
	if isAdmin(actor) {
		return assignment, nil
	}

	course := assignment.Course
	if course == nil {
		if course, err = s.repo.Course().GetByID(ctx, nil, assignment.CourseID); err != nil {
			return nil, lookupError(err, "course")
		}
	}
	if course.InstructorID != actor.ID {
		return nil, NewPermissionError(actor.ID, id, "assignment", action, "not instructor or administrator")
	}
	return assignment, nil
}
