package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/admin-console/internal/models"
)

// BusinessValidator holds struct validation plus rules that need more than
// one field or existing state
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates struct tags
func (bv *BusinessValidator) Validate(s any) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateCourseCreate validates course creation
func (bv *BusinessValidator) ValidateCourseCreate(req *CourseCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.Status == models.StatusArchived {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "a new course cannot be archived",
			Value:   req.Status,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateAssignmentCreate validates assignment creation
func (bv *BusinessValidator) ValidateAssignmentCreate(req *AssignmentCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.Status == models.StatusPublished && req.DueDate != nil && req.DueDate.Before(time.Now()) {
		errors = append(errors, ValidationError{
			Field:   "due_date",
			Message: "must be in the future for a published assignment",
			Value:   req.DueDate,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateGrade checks a grade against the assignment it belongs to
func (bv *BusinessValidator) ValidateGrade(req *GradeSubmissionRequest, assignment *models.Assignment) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	if len(errors) > 0 || assignment == nil {
		return errors
	}

	if *req.Score > assignment.MaxScore {
		errors = append(errors, ValidationError{
			Field:   "score",
			Message: fmt.Sprintf("cannot exceed the maximum score of %g", assignment.MaxScore),
			Value:   *req.Score,
			Rule:    "score_range",
		})
	}

	return errors
}

// ValidateRoleChange guards role edits. Only admins change roles and nobody
// demotes themselves.
func (bv *BusinessValidator) ValidateRoleChange(actor *models.Profile, targetID string, newRole models.UserRole) ValidationErrors {
	var errors ValidationErrors

	if actor.Role != models.RoleAdmin {
		errors = append(errors, ValidationError{
			Field:   "role",
			Message: "only administrators can change roles",
			Value:   newRole,
			Rule:    "permission",
		})
		return errors
	}
	if actor.ID == targetID && newRole != models.RoleAdmin {
		errors = append(errors, ValidationError{
			Field:   "role",
			Message: "administrators cannot demote themselves",
			Value:   newRole,
			Rule:    "business_logic",
		})
	}

	return errors
}

func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("course_level", func(fl validator.FieldLevel) bool {
		return models.CourseLevel(fl.Field().String()).IsValid()
	})

	// Courses and assignments share the publish lifecycle
	publishStatus := func(fl validator.FieldLevel) bool {
		return models.PublishStatus(fl.Field().String()).IsValid()
	}
	bv.validate.RegisterValidation("course_status", publishStatus)
	bv.validate.RegisterValidation("publish_status", publishStatus)

	bv.validate.RegisterValidation("assignment_type", func(fl validator.FieldLevel) bool {
		return models.AssignmentType(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("discussion_status", func(fl validator.FieldLevel) bool {
		return models.DiscussionStatus(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("discussion_category", func(fl validator.FieldLevel) bool {
		return models.IsDiscussionCategory(fl.Field().String())
	})

	bv.validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}
