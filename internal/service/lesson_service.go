package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/visibility"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type lessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	List(ctx context.Context, filter models.LessonFilter, scope policy.Scope) ([]models.Lesson, error)
	NextOrder(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

// LessonService manages the ordered lessons of a course.
type LessonService struct {
	lessons   lessonRepository
	courses   parentCourseReader
	graph     *graphResolver
	auth      authorizer
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs a LessonService.
func NewLessonService(lessons lessonRepository, courses parentCourseReader, users graphUserReader, enrollments graphEnrollmentReader, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LessonService{
		lessons:   lessons,
		courses:   courses,
		graph:     newGraphResolver(courses, users, enrollments),
		auth:      newAuthorizer(metrics, logger),
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns the visible lessons ordered by course and position.
func (s *LessonService) List(ctx context.Context, actor *models.Actor, filter models.LessonFilter) ([]visibility.LessonView, error) {
	scope, err := s.auth.scope(actor, policy.ResourceLesson)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.List(ctx, filter, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.CourseID)
	}
	g, err := s.graph.resolve(ctx, actor, graphRequest{courseIDs: ids})
	if err != nil {
		return nil, err
	}
	return visibility.ProjectLessons(actor, lessons, filter, g), nil
}

// Get returns a lesson when its course is readable by the actor.
func (s *LessonService) Get(ctx context.Context, actor *models.Actor, id string) (*visibility.LessonView, error) {
	if err := s.auth.gate(actor, policy.ActionRead, policy.ResourceLesson); err != nil {
		return nil, err
	}
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "lesson")
	}
	g, err := s.graph.resolve(ctx, actor, graphRequest{courseIDs: []string{lesson.CourseID}})
	if err != nil {
		return nil, err
	}
	parent, ok := g.Courses[lesson.CourseID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	if err := s.auth.check(actor, policy.ActionRead, policy.LessonTarget(&parent, g.Enrolled(actor.ID, parent.ID))); err != nil {
		return nil, err
	}
	view := visibility.ShapeLesson(*lesson, g)
	return &view, nil
}

// Create adds a lesson to a course owned by the actor. Without an explicit
// order the lesson is appended.
func (s *LessonService) Create(ctx context.Context, actor *models.Actor, req dto.CreateLessonRequest, meta models.RequestMeta) (*visibility.LessonView, error) {
	if err := s.auth.gate(actor, policy.ActionCreate, policy.ResourceLesson); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(s.validator, req, "invalid lesson payload"); err != nil {
		return nil, err
	}
	parent, err := loadParentCourse(ctx, s.courses, req.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.auth.check(actor, policy.ActionCreate, policy.LessonTarget(parent, false)); err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		CourseID: parent.ID,
		Title:    req.Title,
		Content:  req.Content,
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	} else {
		next, err := s.lessons.NextOrder(ctx, parent.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine lesson order")
		}
		lesson.Order = next
	}

	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, writeError(err, "create lesson", "lesson order already taken in this course")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: string(policy.ResourceLesson), ResourceID: lesson.ID, After: lesson, Meta: meta})

	view := visibility.LessonView{Lesson: *lesson, Course: &visibility.CourseRef{ID: parent.ID, Title: parent.Title, Status: parent.Status}}
	return &view, nil
}

// Update changes a lesson on a course owned by the actor.
func (s *LessonService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateLessonRequest, meta models.RequestMeta) (*visibility.LessonView, error) {
	if err := s.auth.gate(actor, policy.ActionUpdate, policy.ResourceLesson); err != nil {
		return nil, err
	}
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "lesson")
	}
	parent, err := s.courses.FindByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, notFoundOr(err, "course")
	}
	if err := s.auth.check(actor, policy.ActionUpdate, policy.LessonTarget(parent, false)); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid lesson payload"); err != nil {
		return nil, err
	}

	before := *lesson
	if req.Title != nil {
		title, ok := trimmed(*req.Title)
		if !ok {
			return nil, fieldError("title", "title is required")
		}
		lesson.Title = title
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	}

	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, writeError(err, "update lesson", "lesson order already taken in this course")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: string(policy.ResourceLesson), ResourceID: lesson.ID, Before: before, After: lesson, Meta: meta})

	view := visibility.LessonView{Lesson: *lesson, Course: &visibility.CourseRef{ID: parent.ID, Title: parent.Title, Status: parent.Status}}
	return &view, nil
}

// Delete removes a lesson from a course owned by the actor.
func (s *LessonService) Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error {
	if err := s.auth.gate(actor, policy.ActionDelete, policy.ResourceLesson); err != nil {
		return err
	}
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "lesson")
	}
	parent, err := s.courses.FindByID(ctx, lesson.CourseID)
	if err != nil {
		return notFoundOr(err, "course")
	}
	if err := s.auth.check(actor, policy.ActionDelete, policy.LessonTarget(parent, false)); err != nil {
		return err
	}
	if err := s.lessons.Delete(ctx, lesson.ID); err != nil {
		return writeError(err, "delete lesson", "lesson is still referenced")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: string(policy.ResourceLesson), ResourceID: lesson.ID, Before: lesson, Meta: meta})
	return nil
}
