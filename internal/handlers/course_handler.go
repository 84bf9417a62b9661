package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/services"
	"github.com/SAP-F-2025/admin-console/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	service services.CourseService
}

func NewCourseHandler(service services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListCourses lists courses
// @Summary List courses
// @Tags courses
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param status query string false "draft, published or archived"
// @Param level query string false "beginner, intermediate or advanced"
// @Param instructor_id query string false "Instructor"
// @Param search query string false "Title search"
// @Success 200 {object} models.PaginatedResponse
// @Failure 400 {object} ErrorResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	params, ok := h.parseCourseFilters(c)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCourse retrieves a course by ID
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.Course
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	course, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// CreateCourse creates a course owned by the actor unless an admin names
// another instructor
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CourseCreateRequest true "Course data"
// @Success 201 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CourseCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating course", "title", req.Title)

	course, err := h.service.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// UpdateCourse edits a course
// @Summary Update course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param course body services.CourseUpdateRequest true "Course fields"
// @Success 200 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [put]
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.CourseUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating course", "course_id", id)

	course, err := h.service.Update(c.Request.Context(), actor(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// DeleteCourse removes a course
// @Summary Delete course
// @Tags courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [delete]
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting course", "course_id", id)

	if err := h.service.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) parseCourseFilters(c *gin.Context) (models.ListCoursesParams, bool) {
	params := models.ListCoursesParams{
		Page:         h.parseIntQuery(c, "page", 1),
		Size:         h.parseIntQuery(c, "size", 10),
		InstructorID: queryPtr(c, "instructor_id"),
		Search:       c.Query("search"),
	}

	if status := queryPtr(c, "status"); status != nil {
		value := models.PublishStatus(*status)
		if !value.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid status", Details: *status})
			return params, false
		}
		params.Status = &value
	}
	if level := queryPtr(c, "level"); level != nil {
		value := models.CourseLevel(*level)
		if !value.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid level", Details: *level})
			return params, false
		}
		params.Level = &value
	}
	return params, true
}
