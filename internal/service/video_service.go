package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/visibility"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type videoRepository interface {
	FindByID(ctx context.Context, id string) (*models.Video, error)
	List(ctx context.Context, filter models.VideoFilter, scope policy.Scope) ([]models.Video, int, error)
	Create(ctx context.Context, video *models.Video) error
	Update(ctx context.Context, video *models.Video) error
	Delete(ctx context.Context, id string) error
}

type parentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	Stats(ctx context.Context, ids []string) (map[string]models.CourseStats, error)
}

// VideoService manages course videos.
type VideoService struct {
	videos    videoRepository
	courses   parentCourseReader
	graph     *graphResolver
	auth      authorizer
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVideoService constructs a VideoService.
func NewVideoService(videos videoRepository, courses parentCourseReader, users graphUserReader, enrollments graphEnrollmentReader, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *VideoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &VideoService{
		videos:    videos,
		courses:   courses,
		graph:     newGraphResolver(courses, users, enrollments),
		auth:      newAuthorizer(metrics, logger),
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns the videos visible to the actor.
func (s *VideoService) List(ctx context.Context, actor *models.Actor, filter models.VideoFilter) ([]visibility.VideoView, *models.Pagination, error) {
	scope, err := s.auth.scope(actor, policy.ResourceVideo)
	if err != nil {
		return nil, nil, err
	}
	filter.Source = strings.TrimSpace(filter.Source)

	videos, total, err := s.videos.List(ctx, filter, scope)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list videos")
	}
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.CourseID)
	}
	g, err := s.graph.resolve(ctx, actor, graphRequest{courseIDs: ids})
	if err != nil {
		return nil, nil, err
	}
	return visibility.ProjectVideos(actor, videos, filter, g), models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single video when its course is readable by the actor.
func (s *VideoService) Get(ctx context.Context, actor *models.Actor, id string) (*visibility.VideoView, error) {
	if err := s.auth.gate(actor, policy.ActionRead, policy.ResourceVideo); err != nil {
		return nil, err
	}
	video, g, err := s.resolve(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	parent := g.Courses[video.CourseID]
	if err := s.auth.check(actor, policy.ActionRead, policy.VideoTarget(&parent, g.Enrolled(actor.ID, parent.ID))); err != nil {
		return nil, err
	}
	view := visibility.ShapeVideo(actor, *video, g)
	return &view, nil
}

// Create attaches a video to a course owned by the actor.
func (s *VideoService) Create(ctx context.Context, actor *models.Actor, req dto.CreateVideoRequest, meta models.RequestMeta) (*visibility.VideoView, error) {
	if err := s.auth.gate(actor, policy.ActionCreate, policy.ResourceVideo); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.URL = strings.TrimSpace(req.URL)
	req.Source = strings.TrimSpace(req.Source)
	if err := validateStruct(s.validator, req, "invalid video payload"); err != nil {
		return nil, err
	}
	if req.DurationSeconds.Negative() {
		return nil, fieldError("duration_seconds", "duration_seconds must be greater than or equal to 0")
	}

	parent, err := s.parent(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.auth.check(actor, policy.ActionCreate, policy.VideoTarget(parent, false)); err != nil {
		return nil, err
	}

	video := &models.Video{
		CourseID:        parent.ID,
		Title:           req.Title,
		Description:     strings.TrimSpace(req.Description),
		URL:             req.URL,
		Source:          req.Source,
		DurationSeconds: req.DurationSeconds.Int(),
	}
	if err := s.videos.Create(ctx, video); err != nil {
		return nil, writeError(err, "create video", "video already exists")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: string(policy.ResourceVideo), ResourceID: video.ID, After: video, Meta: meta})

	return s.shape(ctx, actor, video, parent)
}

// Update changes the fields of a video on a course owned by the actor.
func (s *VideoService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateVideoRequest, meta models.RequestMeta) (*visibility.VideoView, error) {
	if err := s.auth.gate(actor, policy.ActionUpdate, policy.ResourceVideo); err != nil {
		return nil, err
	}
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "video")
	}
	parent, err := s.courses.FindByID(ctx, video.CourseID)
	if err != nil {
		return nil, notFoundOr(err, "course")
	}
	if err := s.auth.check(actor, policy.ActionUpdate, policy.VideoTarget(parent, false)); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid video payload"); err != nil {
		return nil, err
	}

	before := *video
	if req.Title != nil {
		title, ok := trimmed(*req.Title)
		if !ok {
			return nil, fieldError("title", "title is required")
		}
		video.Title = title
	}
	if req.Description != nil {
		video.Description = strings.TrimSpace(*req.Description)
	}
	if req.URL != nil {
		video.URL = strings.TrimSpace(*req.URL)
	}
	if req.Source != nil {
		video.Source = strings.TrimSpace(*req.Source)
	}
	if req.DurationSeconds != nil {
		if req.DurationSeconds.Negative() {
			return nil, fieldError("duration_seconds", "duration_seconds must be greater than or equal to 0")
		}
		video.DurationSeconds = req.DurationSeconds.Int()
	}

	if err := s.videos.Update(ctx, video); err != nil {
		return nil, writeError(err, "update video", "video already exists")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: string(policy.ResourceVideo), ResourceID: video.ID, Before: before, After: video, Meta: meta})

	return s.shape(ctx, actor, video, parent)
}

// Delete removes a video from a course owned by the actor.
func (s *VideoService) Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error {
	if err := s.auth.gate(actor, policy.ActionDelete, policy.ResourceVideo); err != nil {
		return err
	}
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "video")
	}
	parent, err := s.courses.FindByID(ctx, video.CourseID)
	if err != nil {
		return notFoundOr(err, "course")
	}
	if err := s.auth.check(actor, policy.ActionDelete, policy.VideoTarget(parent, false)); err != nil {
		return err
	}
	if err := s.videos.Delete(ctx, video.ID); err != nil {
		return writeError(err, "delete video", "video is still referenced")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: string(policy.ResourceVideo), ResourceID: video.ID, Before: video, Meta: meta})
	return nil
}

func (s *VideoService) resolve(ctx context.Context, actor *models.Actor, id string) (*models.Video, visibility.Graph, error) {
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		return nil, visibility.Graph{}, notFoundOr(err, "video")
	}
	g, err := s.graph.resolve(ctx, actor, graphRequest{courseIDs: []string{video.CourseID}})
	if err != nil {
		return nil, g, err
	}
	if _, ok := g.Courses[video.CourseID]; !ok {
		return nil, g, appErrors.Clone(appErrors.ErrNotFound, "video not found")
	}
	return video, g, nil
}

// parent loads the course a new child record points at.
func (s *VideoService) parent(ctx context.Context, courseID string) (*models.Course, error) {
	return loadParentCourse(ctx, s.courses, courseID)
}

func (s *VideoService) shape(ctx context.Context, actor *models.Actor, video *models.Video, parent *models.Course) (*visibility.VideoView, error) {
	g, err := s.graph.resolve(ctx, actor, graphRequest{courses: []models.Course{*parent}})
	if err != nil {
		return nil, err
	}
	view := visibility.ShapeVideo(actor, *video, g)
	return &view, nil
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// loadParentCourse resolves a course_id supplied in a payload. A dangling
// reference is a validation failure rather than a missing resource.
func loadParentCourse(ctx context.Context, courses courseFinder, courseID string) (*models.Course, error) {
	course, err := courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fieldError("course_id", "course does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}
