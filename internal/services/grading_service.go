package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/admin-console/internal/events"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	now       func() time.Time
}

func NewGradingService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) GradingService {
	return &gradingService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *gradingService) ListSubmissions(ctx context.Context, assignmentID string) ([]*models.Submission, error) {
	if _, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID); err != nil {
		return nil, lookupError(err, "assignment")
	}

	submissions, err := s.repo.Submission().ListByAssignment(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// Grade scores a submission within 0..max score of its assignment. The
// grader is always the acting profile.
func (s *gradingService) Grade(ctx context.Context, actor *models.Profile, submissionID string, req *GradeSubmissionRequest) (*models.Submission, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	s.logger.Info("Grading submission",
		"submission_id", submissionID,
		"grader_id", actor.ID)

	submission, err := s.repo.Submission().GetByID(ctx, nil, submissionID)
	if err != nil {
		return nil, lookupError(err, "submission")
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, nil, submission.AssignmentID)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}

	bv := s.validator.GetBusinessValidator()
	if err := validationFailure(bv.ValidateGrade(req, assignment)); err != nil {
		return nil, err
	}

	if !isAdmin(actor) {
		course := assignment.Course
		if course == nil {
			if course, err = s.repo.Course().GetByID(ctx, nil, assignment.CourseID); err != nil {
				return nil, lookupError(err, "course")
			}
		}
		if course.InstructorID != actor.ID {
			return nil, NewPermissionError(actor.ID, submissionID, "submission", "grade", "not instructor or administrator")
		}
	}

	score := *req.Score
	graderID := actor.ID
	submission.Score = &score
	submission.Feedback = req.Feedback
	submission.Status = models.SubmissionGraded
	submission.GradedBy = &graderID
	submission.GradedAt = timePtr(s.now().UTC())

	if err := s.repo.Submission().Grade(ctx, nil, submission); err != nil {
		return nil, fmt.Errorf("failed to grade submission: %w", err)
	}

	s.logger.Info("Submission graded",
		"submission_id", submissionID,
		"assignment_id", assignment.ID,
		"score", score,
		"max_score", assignment.MaxScore)

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.EventSubmissionGraded, submission.UserID, map[string]any{
		"submission_id": submission.ID,
		"assignment_id": assignment.ID,
		"score":         score,
		"max_score":     assignment.MaxScore,
		"graded_by":     graderID,
	}))

	return submission, nil
}
