package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/services"
	"github.com/SAP-F-2025/admin-console/internal/utils"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
	gradingService    services.GradingService
}

func NewAssignmentHandler(
	assignmentService services.AssignmentService,
	gradingService services.GradingService,
	logger utils.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
		gradingService:    gradingService,
	}
}

// ListAssignments lists assignments with their submission counters
// @Summary List assignments
// @Tags assignments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param course_id query string false "Course"
// @Param type query string false "Assignment type"
// @Param status query string false "Publish status"
// @Param search query string false "Title search"
// @Success 200 {object} models.PaginatedResponse
// @Failure 400 {object} ErrorResponse
// @Router /assignments [get]
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	params, ok := h.parseAssignmentFilters(c)
	if !ok {
		return
	}

	result, err := h.assignmentService.List(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStatistics aggregates submissions over every assignment matching the filters
// @Summary Assignment statistics
// @Tags assignments
// @Produce json
// @Param course_id query string false "Course"
// @Param type query string false "Assignment type"
// @Param status query string false "Publish status"
// @Param search query string false "Title search"
// @Success 200 {object} models.AssignmentStatistics
// @Failure 400 {object} ErrorResponse
// @Router /assignments/statistics [get]
func (h *AssignmentHandler) GetStatistics(c *gin.Context) {
	params, ok := h.parseAssignmentFilters(c)
	if !ok {
		return
	}

	stats, err := h.assignmentService.Statistics(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAssignment retrieves an assignment by ID
// @Summary Get assignment
// @Tags assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} models.Assignment
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	assignment, err := h.assignmentService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// CreateAssignment creates an assignment in a course the actor teaches
// @Summary Create assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param assignment body services.AssignmentCreateRequest true "Assignment data"
// @Success 201 {object} models.Assignment
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /assignments [post]
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	var req services.AssignmentCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating assignment", "course_id", req.CourseID, "title", req.Title)

	assignment, err := h.assignmentService.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

// UpdateAssignment edits an assignment
// @Summary Update assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param assignment body services.AssignmentUpdateRequest true "Assignment fields"
// @Success 200 {object} models.Assignment
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.AssignmentUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating assignment", "assignment_id", id)

	assignment, err := h.assignmentService.Update(c.Request.Context(), actor(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// DeleteAssignment removes an assignment
// @Summary Delete assignment
// @Tags assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting assignment", "assignment_id", id)

	if err := h.assignmentService.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubmissions lists the submissions of an assignment
// @Summary List submissions
// @Tags grading
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {array} models.Submission
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id}/submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	submissions, err := h.gradingService.ListSubmissions(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// GradeSubmission records a score and feedback for a submission
// @Summary Grade submission
// @Tags grading
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param grade body services.GradeSubmissionRequest true "Score and feedback"
// @Success 200 {object} models.Submission
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /submissions/{id}/grade [post]
func (h *AssignmentHandler) GradeSubmission(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.GradeSubmissionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Grading submission", "submission_id", id)

	submission, err := h.gradingService.Grade(c.Request.Context(), actor(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}

func (h *AssignmentHandler) parseAssignmentFilters(c *gin.Context) (models.ListAssignmentsParams, bool) {
	params := models.ListAssignmentsParams{
		Page:     h.parseIntQuery(c, "page", 1),
		Size:     h.parseIntQuery(c, "size", 10),
		CourseID: queryPtr(c, "course_id"),
		Search:   c.Query("search"),
	}

	if kind := queryPtr(c, "type"); kind != nil {
		value := models.AssignmentType(*kind)
		if !value.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid type", Details: *kind})
			return params, false
		}
		params.Type = &value
	}
	if status := queryPtr(c, "status"); status != nil {
		value := models.PublishStatus(*status)
		if !value.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid status", Details: *status})
			return params, false
		}
		params.Status = &value
	}
	return params, true
}
