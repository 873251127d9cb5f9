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

type videoService interface {
	List(ctx context.Context, actor *models.Actor, filter models.VideoFilter) ([]visibility.VideoView, *models.Pagination, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*visibility.VideoView, error)
	Create(ctx context.Context, actor *models.Actor, req dto.CreateVideoRequest, meta models.RequestMeta) (*visibility.VideoView, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateVideoRequest, meta models.RequestMeta) (*visibility.VideoView, error)
	Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error
}

// VideoHandler exposes course videos.
type VideoHandler struct {
	service videoService
}

// NewVideoHandler constructs the handler.
func NewVideoHandler(svc videoService) *VideoHandler {
	return &VideoHandler{service: svc}
}

// List godoc
// @Summary List videos
// @Description Videos of courses visible to the caller
// @Tags Videos
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param course_id query string false "Course filter"
// @Param source query string false "Source filter, e.g. youtube"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /videos [get]
func (h *VideoHandler) List(c *gin.Context) {
	var filter models.VideoFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.CourseID = strings.TrimSpace(c.Query("course_id"))
	filter.Source = strings.TrimSpace(c.Query("source"))

	videos, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	listResponse(c, videos, pagination)
}

// Get godoc
// @Summary Get video
// @Tags Videos
// @Produce json
// @Security BearerAuth
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id} [get]
func (h *VideoHandler) Get(c *gin.Context) {
	video, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, video, nil)
}

// Create godoc
// @Summary Create video
// @Tags Videos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateVideoRequest true "Video payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /videos [post]
func (h *VideoHandler) Create(c *gin.Context) {
	var req dto.CreateVideoRequest
	if !bindJSON(c, &req, "invalid video payload") {
		return
	}

	video, err := h.service.Create(c.Request.Context(), actorFromContext(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, video)
}

// Update godoc
// @Summary Update video
// @Tags Videos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Video ID"
// @Param payload body dto.UpdateVideoRequest true "Video payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id} [put]
func (h *VideoHandler) Update(c *gin.Context) {
	var req dto.UpdateVideoRequest
	if !bindJSON(c, &req, "invalid video payload") {
		return
	}

	video, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, video, nil)
}

// Delete godoc
// @Summary Delete video
// @Tags Videos
// @Security BearerAuth
// @Param id path string true "Video ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id} [delete]
func (h *VideoHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
