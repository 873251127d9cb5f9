package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/visibility"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	List(ctx context.Context, filter models.CourseFilter, scope policy.Scope) ([]models.Course, int, error)
	Stats(ctx context.Context, ids []string) (map[string]models.CourseStats, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	DeleteCascade(ctx context.Context, id string) error
}

type courseUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type courseEnrollmentReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
	Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type courseVideoReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Video, error)
}

type courseLessonReader interface {
	List(ctx context.Context, filter models.LessonFilter, scope policy.Scope) ([]models.Lesson, error)
}

// courseListPage is the cached shape of a course listing.
type courseListPage struct {
	Items      []visibility.CourseView `json:"items"`
	Pagination *models.Pagination      `json:"pagination"`
}

// CourseService implements course use cases on behalf of an explicit actor.
type CourseService struct {
	courses     courseRepository
	users       courseUserReader
	enrollments courseEnrollmentReader
	videos      courseVideoReader
	lessons     courseLessonReader
	graph       *graphResolver
	auth        authorizer
	cache       *CacheService
	audit       *AuditService
	exporter    *ExportService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(courses courseRepository, users courseUserReader, enrollments courseEnrollmentReader, videos courseVideoReader, lessons courseLessonReader, cache *CacheService, audit *AuditService, exporter *ExportService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if exporter == nil {
		exporter = NewExportService(nil, logger)
	}
	return &CourseService{
		courses:     courses,
		users:       users,
		enrollments: enrollments,
		videos:      videos,
		lessons:     lessons,
		graph:       newGraphResolver(courses, users, enrollments),
		auth:        newAuthorizer(metrics, logger),
		cache:       cache,
		audit:       audit,
		exporter:    exporter,
		validator:   validate,
		logger:      logger,
	}
}

// List returns the courses visible to the actor, narrowed by filter.
func (s *CourseService) List(ctx context.Context, actor *models.Actor, filter models.CourseFilter) ([]visibility.CourseView, *models.Pagination, error) {
	scope, err := s.auth.scope(actor, policy.ResourceCourse)
	if err != nil {
		return nil, nil, err
	}

	key := courseListKey(actor, filter)
	var cached courseListPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, cached.Pagination, nil
	}

	courses, total, err := s.courses.List(ctx, filter, scope)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	g, err := s.graph.resolve(ctx, actor, graphRequest{courses: courses, courseStats: true})
	if err != nil {
		return nil, nil, err
	}

	page := courseListPage{
		Items:      visibility.ProjectCourses(actor, courses, filter, g),
		Pagination: models.NewPagination(filter.Page, filter.PageSize, total),
	}
	_ = s.cache.Set(ctx, key, page, 0)
	return page.Items, page.Pagination, nil
}

// MyCourses lists the courses the actor takes part in: enrolled courses for
// students, instructed courses for trainers and every course for admins.
func (s *CourseService) MyCourses(ctx context.Context, actor *models.Actor, filter models.CourseFilter) ([]visibility.CourseView, *models.Pagination, error) {
	if err := s.auth.gate(actor, policy.ActionList, policy.ResourceCourse); err != nil {
		return nil, nil, err
	}
	if actor.Role != models.RoleStudent {
		if actor.Role == models.RoleTrainer {
			filter.InstructorID = actor.ID
		}
		return s.List(ctx, actor, filter)
	}

	g, err := s.graph.resolve(ctx, actor, graphRequest{})
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(g.Enrollments))
	for _, e := range g.Enrollments {
		ids = append(ids, e.CourseID)
	}
	g, err = s.graph.resolve(ctx, actor, graphRequest{courseIDs: ids})
	if err != nil {
		return nil, nil, err
	}
	views := visibility.ProjectEnrolledCourses(actor, g.Enrollments, g)
	return views, models.NewPagination(1, models.MaxPageSize, len(views)), nil
}

// Get returns a course with the videos and lessons visible to the actor.
func (s *CourseService) Get(ctx context.Context, actor *models.Actor, id string) (*visibility.CourseDetail, error) {
	if err := s.auth.gate(actor, policy.ActionRead, policy.ResourceCourse); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "course")
	}
	g, err := s.graph.resolve(ctx, actor, graphRequest{courses: []models.Course{*course}, courseStats: true})
	if err != nil {
		return nil, err
	}
	if err := s.auth.check(actor, policy.ActionRead, policy.CourseTarget(course, g.Enrolled(actor.ID, course.ID))); err != nil {
		return nil, err
	}

	videos, err := s.videos.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course videos")
	}
	lessons, err := s.lessons.List(ctx, models.LessonFilter{CourseID: course.ID}, policy.Scope{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course lessons")
	}

	return &visibility.CourseDetail{
		CourseView: visibility.ShapeCourse(actor, *course, g),
		Videos:     visibility.ProjectVideos(actor, videos, models.VideoFilter{CourseID: course.ID}, g),
		Lessons:    visibility.ProjectLessons(actor, lessons, models.LessonFilter{CourseID: course.ID}, g),
	}, nil
}

// Create adds a course owned by the actor.
func (s *CourseService) Create(ctx context.Context, actor *models.Actor, req dto.CreateCourseRequest, meta models.RequestMeta) (*visibility.CourseView, error) {
	if err := s.auth.gate(actor, policy.ActionCreate, policy.ResourceCourse); err != nil {
		return nil, err
	}

	req.Title, _ = trimmed(req.Title)
	req.Description, _ = trimmed(req.Description)
	if err := validateStruct(s.validator, req, "invalid course payload"); err != nil {
		return nil, err
	}
	if req.Price.Negative() {
		return nil, fieldError("price", "price must be greater than or equal to 0")
	}

	course := &models.Course{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price.Value,
		Status:       models.CourseStatusDraft,
		InstructorID: actor.ID,
	}
	if req.Status != "" {
		course.Status = models.CourseStatus(req.Status)
	}
	if err := s.auth.check(actor, policy.ActionCreate, policy.CourseTarget(course, false)); err != nil {
		return nil, err
	}
	if err := s.requireInstructor(ctx, course.InstructorID); err != nil {
		return nil, err
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, writeError(err, "create course", "course already exists")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: string(policy.ResourceCourse), ResourceID: course.ID, After: course, Meta: meta})

	return s.shape(ctx, actor, course)
}

// Update changes course fields. Only admins may reassign the instructor.
func (s *CourseService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateCourseRequest, meta models.RequestMeta) (*visibility.CourseView, error) {
	if err := s.auth.gate(actor, policy.ActionUpdate, policy.ResourceCourse); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "course")
	}
	if err := s.auth.check(actor, policy.ActionUpdate, policy.CourseTarget(course, false)); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid course payload"); err != nil {
		return nil, err
	}

	before := *course
	if req.Title != nil {
		title, ok := trimmed(*req.Title)
		if !ok {
			return nil, fieldError("title", "title is required")
		}
		course.Title = title
	}
	if req.Description != nil {
		description, ok := trimmed(*req.Description)
		if !ok {
			return nil, fieldError("description", "description is required")
		}
		course.Description = description
	}
	if req.Price != nil {
		if req.Price.Negative() {
			return nil, fieldError("price", "price must be greater than or equal to 0")
		}
		course.Price = req.Price.Value
	}
	if req.Status != nil {
		course.Status = models.CourseStatus(*req.Status)
	}
	if req.InstructorID != nil && *req.InstructorID != course.InstructorID {
		if actor.Role != models.RoleAdmin {
			return nil, appErrors.WithReason(appErrors.Clone(appErrors.ErrForbidden, "only administrators can reassign a course"), string(policy.ReasonWrongRole))
		}
		if err := s.requireInstructor(ctx, *req.InstructorID); err != nil {
			return nil, err
		}
		course.InstructorID = *req.InstructorID
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, writeError(err, "update course", "course already exists")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: string(policy.ResourceCourse), ResourceID: course.ID, Before: before, After: course, Meta: meta})

	return s.shape(ctx, actor, course)
}

// Delete removes a course with its lessons, videos and enrollments atomically.
func (s *CourseService) Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error {
	if err := s.auth.gate(actor, policy.ActionDelete, policy.ResourceCourse); err != nil {
		return err
	}
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "course")
	}
	if err := s.auth.check(actor, policy.ActionDelete, policy.CourseTarget(course, false)); err != nil {
		return err
	}

	if err := s.courses.DeleteCascade(ctx, course.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		s.logger.Error("course cascade rolled back", zap.String("course_id", course.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status, "failed to delete course and its dependents")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: string(policy.ResourceCourse), ResourceID: course.ID, Before: course, Meta: meta})
	return nil
}

// Roster renders the enrolled students of a course for its owner or an admin.
func (s *CourseService) Roster(ctx context.Context, actor *models.Actor, id string, format export.Format, meta models.RequestMeta) (*export.Document, error) {
	if err := s.auth.gate(actor, policy.ActionExport, policy.ResourceCourse); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "course")
	}
	if err := s.auth.check(actor, policy.ActionExport, policy.CourseTarget(course, false)); err != nil {
		return nil, err
	}

	entries, err := s.enrollments.Roster(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	doc, err := s.exporter.Roster(course, entries, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionExport, Resource: string(policy.ResourceCourse), ResourceID: course.ID, After: map[string]interface{}{"format": format, "rows": len(entries)}, Meta: meta})
	return doc, nil
}

// requireInstructor validates that userID references a user allowed to own courses.
func (s *CourseService) requireInstructor(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fieldError("instructor_id", "instructor does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if !user.Role.CanInstruct() {
		return fieldError("instructor_id", "instructor must be a trainer or admin")
	}
	return nil
}

func (s *CourseService) shape(ctx context.Context, actor *models.Actor, course *models.Course) (*visibility.CourseView, error) {
	g, err := s.graph.resolve(ctx, actor, graphRequest{courses: []models.Course{*course}, courseStats: true})
	if err != nil {
		return nil, err
	}
	view := visibility.ShapeCourse(actor, *course, g)
	return &view, nil
}
