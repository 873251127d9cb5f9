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

type lessonService interface {
	List(ctx context.Context, actor *models.Actor, filter models.LessonFilter) ([]visibility.LessonView, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*visibility.LessonView, error)
	Create(ctx context.Context, actor *models.Actor, req dto.CreateLessonRequest, meta models.RequestMeta) (*visibility.LessonView, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateLessonRequest, meta models.RequestMeta) (*visibility.LessonView, error)
	Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error
}

// LessonHandler exposes course lessons.
type LessonHandler struct {
	service lessonService
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(svc lessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// List godoc
// @Summary List lessons
// @Description Lessons of visible courses ordered by course and position
// @Tags Lessons
// @Produce json
// @Security BearerAuth
// @Param course_id query string false "Course filter"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	filter := models.LessonFilter{CourseID: strings.TrimSpace(c.Query("course_id"))}

	lessons, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	listResponse(c, lessons, nil)
}

// Get godoc
// @Summary Get lesson
// @Tags Lessons
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lesson, nil)
}

// Create godoc
// @Summary Create lesson
// @Description Add a lesson; without order it is appended after the last one
// @Tags Lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req dto.CreateLessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}

	lesson, err := h.service.Create(c.Request.Context(), actorFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, lesson)
}

// Update godoc
// @Summary Update lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param payload body dto.UpdateLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	var req dto.UpdateLessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}

	lesson, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Delete lesson
// @Tags Lessons
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
