package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

type courseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCourseService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *courseService) List(ctx context.Context, params models.ListCoursesParams) (*models.PaginatedResponse, error) {
	page, size := normalizePage(params.Page, params.Size)

	filters := repositories.CourseFilters{
		Status:       params.Status,
		Level:        params.Level,
		InstructorID: params.InstructorID,
		Search:       params.Search,
		Limit:        size,
		Offset:       (page - 1) * size,
		SortBy:       "created_at",
		SortOrder:    "desc",
	}

	courses, total, err := s.repo.Course().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	response := models.NewPaginatedResponse(courses, len(courses), total, page, size)
	return &response, nil
}

func (s *courseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	return course, nil
}

// Create adds a course. Teachers always own the courses they create; admins
// may assign another instructor.
func (s *courseService) Create(ctx context.Context, actor *models.Profile, req *CourseCreateRequest) (*models.Course, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	bv := s.validator.GetBusinessValidator()
	if err := validationFailure(bv.ValidateCourseCreate(req)); err != nil {
		return nil, err
	}

	instructorID := actor.ID
	if req.InstructorID != nil && *req.InstructorID != actor.ID {
		if !isAdmin(actor) {
			return nil, NewPermissionError(actor.ID, *req.InstructorID, "course", "assign instructor", "only administrators assign other instructors")
		}
		if _, err := s.repo.Profile().GetByID(ctx, nil, *req.InstructorID); err != nil {
			return nil, NewValidationError("instructor_id", "instructor does not exist", *req.InstructorID)
		}
		instructorID = *req.InstructorID
	}

	course := &models.Course{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: instructorID,
		ThumbnailURL: req.ThumbnailURL,
		Level:        req.Level,
		Duration:     req.Duration,
		Price:        req.Price,
		Status:       req.Status,
	}
	if course.Level == "" {
		course.Level = models.LevelBeginner
	}
	if course.Status == "" {
		course.Status = models.StatusDraft
	}

	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created",
		"course_id", course.ID,
		"instructor_id", instructorID,
		"actor_id", actor.ID)

	return course, nil
}

func (s *courseService) Update(ctx context.Context, actor *models.Profile, id string, req *CourseUpdateRequest) (*models.Course, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course, err := s.owned(ctx, actor, id, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.InstructorID != nil && *req.InstructorID != course.InstructorID {
		if !isAdmin(actor) {
			return nil, NewPermissionError(actor.ID, id, "course", "assign instructor", "only administrators reassign courses")
		}
		course.InstructorID = *req.InstructorID
		course.Instructor = nil
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = req.ThumbnailURL
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Duration != nil {
		course.Duration = req.Duration
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.Status != nil {
		course.Status = *req.Status
	}

	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.logger.Info("Course updated", "course_id", id, "actor_id", actor.ID)
	return course, nil
}

func (s *courseService) Delete(ctx context.Context, actor *models.Profile, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actor, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.Course().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	s.logger.Info("Course deleted", "course_id", id, "actor_id", actor.ID)
	return nil
}

// owned loads a course the actor may change: admins change every course,
// teachers only their own
func (s *courseService) owned(ctx context.Context, actor *models.Profile, id, action string) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "course")
	}
	if !isAdmin(actor) && course.InstructorID != actor.ID {
		return nil, NewPermissionError(actor.ID, id, "course", action, "not instructor or administrator")
	}
	return course, nil
}
