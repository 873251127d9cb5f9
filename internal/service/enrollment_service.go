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

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter, scope policy.Scope) ([]models.Enrollment, int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	Delete(ctx context.Context, id string) error
}

type enrollmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// EnrollmentService links students to courses and tracks their progress.
type EnrollmentService struct {
	enrollments enrollmentRepository
	courses     parentCourseReader
	users       enrollmentUserReader
	graph       *graphResolver
	auth        authorizer
	cache       *CacheService
	audit       *AuditService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepository, courses parentCourseReader, users enrollmentUserReader, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		courses:     courses,
		users:       users,
		graph:       newGraphResolver(courses, users, enrollments),
		auth:        newAuthorizer(metrics, logger),
		cache:       cache,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
}

// List returns the enrollments visible to the actor.
func (s *EnrollmentService) List(ctx context.Context, actor *models.Actor, filter models.EnrollmentFilter) ([]visibility.EnrollmentView, *models.Pagination, error) {
	scope, err := s.auth.scope(actor, policy.ResourceEnrollment)
	if err != nil {
		return nil, nil, err
	}
	enrollments, total, err := s.enrollments.List(ctx, filter, scope)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	want := graphRequest{}
	for _, e := range enrollments {
		want.courseIDs = append(want.courseIDs, e.CourseID)
		want.userIDs = append(want.userIDs, e.UserID)
	}
	g, err := s.graph.resolve(ctx, actor, want)
	if err != nil {
		return nil, nil, err
	}
	return visibility.ProjectEnrollments(actor, enrollments, filter, g), models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single enrollment.
func (s *EnrollmentService) Get(ctx context.Context, actor *models.Actor, id string) (*visibility.EnrollmentView, error) {
	if err := s.auth.gate(actor, policy.ActionRead, policy.ResourceEnrollment); err != nil {
		return nil, err
	}
	enrollment, course, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.check(actor, policy.ActionRead, policy.EnrollmentTarget(enrollment, course)); err != nil {
		return nil, err
	}
	return s.shape(ctx, actor, enrollment, course)
}

// Create enrolls a student. Students may only enroll themselves in
// published courses; admins may enroll any student in any course.
func (s *EnrollmentService) Create(ctx context.Context, actor *models.Actor, req dto.CreateEnrollmentRequest, meta models.RequestMeta) (*visibility.EnrollmentView, error) {
	if err := s.auth.gate(actor, policy.ActionCreate, policy.ResourceEnrollment); err != nil {
		return nil, err
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.UserID == "" && actor.Role == models.RoleStudent {
		req.UserID = actor.ID
	}
	if err := validateStruct(s.validator, req, "invalid enrollment payload"); err != nil {
		return nil, err
	}
	if req.UserID == "" {
		return nil, fieldError("user_id", "user_id is required")
	}

	course, err := loadParentCourse(ctx, s.courses, req.CourseID)
	if err != nil {
		return nil, err
	}
	enrollment := &models.Enrollment{UserID: req.UserID, CourseID: course.ID}
	if req.Progress != nil {
		enrollment.Progress = *req.Progress
	}
	if err := s.auth.check(actor, policy.ActionCreate, policy.EnrollmentTarget(enrollment, course)); err != nil {
		return nil, err
	}
	if err := s.requireStudent(ctx, req.UserID); err != nil {
		return nil, err
	}

	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, writeError(err, "create enrollment", "user is already enrolled in this course")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: string(policy.ResourceEnrollment), ResourceID: enrollment.ID, After: enrollment, Meta: meta})

	return s.shape(ctx, actor, enrollment, course)
}

// UpdateProgress sets the progress percentage of an enrollment.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor *models.Actor, id string, req dto.UpdateProgressRequest, meta models.RequestMeta) (*visibility.EnrollmentView, error) {
	if err := s.auth.gate(actor, policy.ActionUpdate, policy.ResourceEnrollment); err != nil {
		return nil, err
	}
	enrollment, course, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.check(actor, policy.ActionUpdate, policy.EnrollmentTarget(enrollment, course)); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid progress payload"); err != nil {
		return nil, err
	}

	before := *enrollment
	if err := s.enrollments.UpdateProgress(ctx, enrollment.ID, *req.Progress); err != nil {
		return nil, writeError(err, "update enrollment progress", "enrollment conflict")
	}
	enrollment.Progress = *req.Progress
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: string(policy.ResourceEnrollment), ResourceID: enrollment.ID, Before: before, After: enrollment, Meta: meta})

	return s.shape(ctx, actor, enrollment, course)
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error {
	if err := s.auth.gate(actor, policy.ActionDelete, policy.ResourceEnrollment); err != nil {
		return err
	}
	enrollment, course, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := s.auth.check(actor, policy.ActionDelete, policy.EnrollmentTarget(enrollment, course)); err != nil {
		return err
	}
	if err := s.enrollments.Delete(ctx, enrollment.ID); err != nil {
		return writeError(err, "delete enrollment", "enrollment is still referenced")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: string(policy.ResourceEnrollment), ResourceID: enrollment.ID, Before: enrollment, Meta: meta})
	return nil
}

func (s *EnrollmentService) resolve(ctx context.Context, id string) (*models.Enrollment, *models.Course, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "enrollment")
	}
	course, err := s.courses.FindByID(ctx, enrollment.CourseID)
	if err != nil {
		return nil, nil, notFoundOr(err, "course")
	}
	return enrollment, course, nil
}

func (s *EnrollmentService) requireStudent(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fieldError("user_id", "user does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleStudent {
		return fieldError("user_id", "only students can be enrolled")
	}
	return nil
}

func (s *EnrollmentService) shape(ctx context.Context, actor *models.Actor, enrollment *models.Enrollment, course *models.Course) (*visibility.EnrollmentView, error) {
	g, err := s.graph.resolve(ctx, actor, graphRequest{courses: []models.Course{*course}, userIDs: []string{enrollment.UserID}})
	if err != nil {
		return nil, err
	}
	view := visibility.ShapeEnrollment(actor, *enrollment, g)
	return &view, nil
}
