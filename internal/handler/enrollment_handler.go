package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/visibility"
	"github.com/noah-isme/lms-api/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, actor *models.Actor, filter models.EnrollmentFilter) ([]visibility.EnrollmentView, *models.Pagination, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*visibility.EnrollmentView, error)
	Create(ctx context.Context, actor *models.Actor, req dto.CreateEnrollmentRequest, meta models.RequestMeta) (*visibility.EnrollmentView, error)
	UpdateProgress(ctx context.Context, actor *models.Actor, id string, req dto.UpdateProgressRequest, meta models.RequestMeta) (*visibility.EnrollmentView, error)
	Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List godoc
// @Summary List enrollments
// @Description Students see their own, trainers those of their courses, admins all
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param course_id query string false "Course filter"
// @Param user_id query string false "User filter"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.CourseID = strings.TrimSpace(c.Query("course_id"))
	filter.UserID = strings.TrimSpace(c.Query("user_id"))

	items, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	listResponse(c, items, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Enroll a student
// @Description Students may omit user_id to enroll themselves
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.CreateEnrollmentRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}

	item, err := h.service.Create(c.Request.Context(), actorFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, item)
}

// UpdateProgress godoc
// @Summary Update enrollment progress
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body dto.UpdateProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/progress [patch]
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	var req dto.UpdateProgressRequest
	if !bindJSON(c, &req, "invalid progress payload") {
		return
	}

	item, err := h.service.UpdateProgress(c.Request.Context(), actorFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
