package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/visibility"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type videoServiceMock struct {
	filter    models.VideoFilter
	createReq dto.CreateVideoRequest
	err       error
}

func (m *videoServiceMock) List(ctx context.Context, actor *models.Actor, filter models.VideoFilter) ([]visibility.VideoView, *models.Pagination, error) {
	m.filter = filter
	return []visibility.VideoView{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (m *videoServiceMock) Get(ctx context.Context, actor *models.Actor, id string) (*visibility.VideoView, error) {
	return nil, m.err
}

func (m *videoServiceMock) Create(ctx context.Context, actor *models.Actor, req dto.CreateVideoRequest, meta models.RequestMeta) (*visibility.VideoView, error) {
	m.createReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &visibility.VideoView{Video: models.Video{ID: "V1", CourseID: req.CourseID, Title: req.Title}}, nil
}

func (m *videoServiceMock) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateVideoRequest, meta models.RequestMeta) (*visibility.VideoView, error) {
	return nil, m.err
}

func (m *videoServiceMock) Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error {
	return m.err
}

type lessonServiceMock struct {
	filter models.LessonFilter
}

func (m *lessonServiceMock) List(ctx context.Context, actor *models.Actor, filter models.LessonFilter) ([]visibility.LessonView, error) {
	m.filter = filter
	return []visibility.LessonView{{Lesson: models.Lesson{ID: "L1", CourseID: filter.CourseID, Order: 1}}}, nil
}

func (m *lessonServiceMock) Get(ctx context.Context, actor *models.Actor, id string) (*visibility.LessonView, error) {
	return &visibility.LessonView{Lesson: models.Lesson{ID: id}}, nil
}

func (m *lessonServiceMock) Create(ctx context.Context, actor *models.Actor, req dto.CreateLessonRequest, meta models.RequestMeta) (*visibility.LessonView, error) {
	return &visibility.LessonView{Lesson: models.Lesson{ID: "L2", CourseID: req.CourseID}}, nil
}

func (m *lessonServiceMock) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateLessonRequest, meta models.RequestMeta) (*visibility.LessonView, error) {
	return &visibility.LessonView{Lesson: models.Lesson{ID: id}}, nil
}

func (m *lessonServiceMock) Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error {
	return nil
}

func TestVideoHandlerListFilters(t *testing.T) {
	mock := &videoServiceMock{}
	h := NewVideoHandler(mock)
	c, w := newTestContext(t, http.MethodGet, "/videos?course_id=C1&source=youtube&page_size=500", nil, studentClaims())

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C1", mock.filter.CourseID)
	assert.Equal(t, "youtube", mock.filter.Source)
	assert.Equal(t, models.DefaultPageSize, mock.filter.PageSize)
}

func TestVideoHandlerCreateLenientDuration(t *testing.T) {
	mock := &videoServiceMock{}
	h := NewVideoHandler(mock)
	body := `{"course_id":"C1","title":"Intro","url":"https://videos.example.com/1","duration_seconds":"abc"}`
	c, w := newTestContext(t, http.MethodPost, "/videos", body, trainerClaims())

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mock.createReq.DurationSeconds.Present)
	assert.Equal(t, float64(0), mock.createReq.DurationSeconds.Value)
}

func TestVideoHandlerNotFound(t *testing.T) {
	h := NewVideoHandler(&videoServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "video not found")})
	c, w := newTestContext(t, http.MethodGet, "/videos/missing", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLessonHandlerListHasNoPagination(t *testing.T) {
	mock := &lessonServiceMock{}
	h := NewLessonHandler(mock)
	c, w := newTestContext(t, http.MethodGet, "/lessons?course_id=C1", nil, studentClaims())

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C1", mock.filter.CourseID)
	assert.Nil(t, decodeEnvelope(t, w).Pagination)
}
