package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/visibility"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, actor *models.Actor, filter models.CourseFilter) ([]visibility.CourseView, *models.Pagination, error)
	MyCourses(ctx context.Context, actor *models.Actor, filter models.CourseFilter) ([]visibility.CourseView, *models.Pagination, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*visibility.CourseDetail, error)
	Create(ctx context.Context, actor *models.Actor, req dto.CreateCourseRequest, meta models.RequestMeta) (*visibility.CourseView, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateCourseRequest, meta models.RequestMeta) (*visibility.CourseView, error)
	Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error
	Roster(ctx context.Context, actor *models.Actor, id string, format export.Format, meta models.RequestMeta) (*export.Document, error)
}

// CourseHandler exposes the course catalogue.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

func courseFilterFromQuery(c *gin.Context) (models.CourseFilter, error) {
	var filter models.CourseFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.InstructorID = strings.TrimSpace(c.Query("instructor_id"))
	filter.Search = strings.TrimSpace(c.Query("q"))
	if raw := c.Query("status"); raw != "" {
		status := models.CourseStatus(strings.ToLower(strings.TrimSpace(raw)))
		if !status.Valid() {
			return filter, appErrors.Validation("invalid status filter", map[string]string{"status": "must be draft or published"})
		}
		filter.Status = &status
	}
	return filter, nil
}

// List godoc
// @Summary List courses
// @Description Courses visible to the caller: published ones plus own or enrolled drafts
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "draft or published"
// @Param instructor_id query string false "Instructor filter"
// @Param q query string false "Search in title"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter, err := courseFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	courses, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	listResponse(c, courses, pagination)
}

// MyCourses godoc
// @Summary My courses
// @Description Courses the caller owns (trainers), is enrolled in (students) or all (admins)
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/courses [get]
func (h *CourseHandler) MyCourses(c *gin.Context) {
	filter, err := courseFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	courses, pagination, err := h.service.MyCourses(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	listResponse(c, courses, pagination)
}

// Get godoc
// @Summary Get course
// @Description Course detail with its videos and ordered lessons
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Description Create a course owned by the caller
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}

	course, err := h.service.Create(c.Request.Context(), actorFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Description Update course fields; only admins may reassign the instructor
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.UpdateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}

	course, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Description Delete a course with its lessons, videos and enrollments
// @Tags Courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Roster godoc
// @Summary Export course roster
// @Description Download enrolled students as CSV or PDF
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/roster [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Validation("invalid export format", map[string]string{"format": "must be csv or pdf"}))
		return
	}

	doc, err := h.service.Roster(c.Request.Context(), actorFromContext(c), c.Param("id"), format, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Download(c, doc)
}
