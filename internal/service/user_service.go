package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/visibility"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter, scope policy.Scope) ([]models.User, int, error)
	Stats(ctx context.Context, ids []string) (map[string]models.UserStats, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	DeleteCascade(ctx context.Context, id string) error
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	auth      authorizer
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{
		repo:      repo,
		auth:      newAuthorizer(metrics, logger),
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns the users visible to the actor. Administrators also get the
// course and enrollment counts of every user.
func (s *UserService) List(ctx context.Context, actor *models.Actor, filter models.UserFilter) ([]visibility.UserView, *models.Pagination, error) {
	scope, err := s.auth.scope(actor, policy.ResourceUser)
	if err != nil {
		return nil, nil, err
	}
	filter.Search = strings.TrimSpace(filter.Search)

	users, total, err := s.repo.List(ctx, filter, scope)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	g := visibility.Graph{UserStats: map[string]models.UserStats{}}
	if actor.Role == models.RoleAdmin && len(users) > 0 {
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		stats, err := s.repo.Stats(ctx, ids)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user stats")
		}
		g.UserStats = stats
	}

	return visibility.ProjectUsers(actor, users, filter, g), models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, actor *models.Actor, id string) (*visibility.UserView, error) {
	if err := s.auth.gate(actor, policy.ActionRead, policy.ResourceUser); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if err := s.auth.check(actor, policy.ActionRead, policy.UserTarget(user)); err != nil {
		return nil, err
	}
	return s.shape(ctx, actor, user)
}

// Create provisions an account with any role.
func (s *UserService) Create(ctx context.Context, actor *models.Actor, req dto.CreateUserRequest, meta models.RequestMeta) (*visibility.UserView, error) {
	if err := s.auth.gate(actor, policy.ActionCreate, policy.ResourceUser); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(s.validator, req, "invalid create user payload"); err != nil {
		return nil, err
	}

	role := models.RoleStudent
	if req.Role != "" {
		parsed, err := models.ParseRole(req.Role)
		if err != nil {
			return nil, fieldError("role", "role must be one of [ADMIN TRAINER STUDENT]")
		}
		role = parsed
	}

	user := &models.User{Name: req.Name, Email: req.Email, Role: role}
	if err := s.auth.check(actor, policy.ActionCreate, policy.UserTarget(user)); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = string(passwordHash)

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeError(err, "create user", "email already exists")
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionCreate, Resource: string(policy.ResourceUser), ResourceID: user.ID, After: user, Meta: meta})

	return s.shape(ctx, actor, user)
}

// Update modifies the profile fields of a user.
func (s *UserService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateUserRequest, meta models.RequestMeta) (*visibility.UserView, error) {
	if err := s.auth.gate(actor, policy.ActionUpdate, policy.ResourceUser); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if err := s.auth.check(actor, policy.ActionUpdate, policy.UserTarget(user)); err != nil {
		return nil, err
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := validateStruct(s.validator, req, "invalid update payload"); err != nil {
		return nil, err
	}

	before := *user
	if req.Name != nil {
		name, ok := trimmed(*req.Name)
		if !ok {
			return nil, fieldError("name", "name is required")
		}
		user.Name = name
	}
	if req.Email != nil && *req.Email != user.Email {
		if existing, err := s.repo.FindByEmail(ctx, *req.Email); err == nil && existing.ID != user.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
		}
		user.Email = *req.Email
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, writeError(err, "update user", "email already exists")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionUpdate, Resource: string(policy.ResourceUser), ResourceID: user.ID, Before: before, After: user, Meta: meta})

	return s.shape(ctx, actor, user)
}

// ChangeRole elevates or demotes a user. Administrators cannot change their
// own role, course owners cannot become students and enrolled students
// cannot leave the student role.
func (s *UserService) ChangeRole(ctx context.Context, actor *models.Actor, id string, req dto.ChangeRoleRequest, meta models.RequestMeta) (*visibility.UserView, error) {
	if err := s.auth.gate(actor, policy.ActionUpdate, policy.ResourceUser); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if err := s.auth.check(actor, policy.ActionUpdate, policy.UserTarget(user)); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validator, req, "invalid role payload"); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, fieldError("role", "role must be one of [ADMIN TRAINER STUDENT]")
	}
	if role == user.Role {
		return s.shape(ctx, actor, user)
	}
	if user.ID == actor.ID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cannot change your own role")
	}

	stats, err := s.repo.Stats(ctx, []string{user.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user stats")
	}
	current := stats[user.ID]
	if !role.CanInstruct() && current.CourseCount > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user still instructs courses")
	}
	if role != models.RoleStudent && current.EnrollmentCount > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user still has enrollments")
	}

	before := *user
	if err := s.repo.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, writeError(err, "change user role", "role change conflict")
	}
	user.Role = role
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionRoleChange,
		Resource:   string(policy.ResourceUser),
		ResourceID: user.ID,
		Before:     map[string]models.UserRole{"role": before.Role},
		After:      map[string]models.UserRole{"role": role},
		Meta:       meta,
	})

	return s.shape(ctx, actor, user)
}

// Delete removes a user with their enrollments. Users who still instruct
// courses cannot be deleted.
func (s *UserService) Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error {
	if err := s.auth.gate(actor, policy.ActionDelete, policy.ResourceUser); err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "user")
	}
	if err := s.auth.check(actor, policy.ActionDelete, policy.UserTarget(user)); err != nil {
		return err
	}
	if user.ID == actor.ID {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete your own account")
	}

	if err := s.repo.DeleteCascade(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrHasDependents) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "user still instructs courses")
		}
		return writeError(err, "delete user", "user is still referenced")
	}
	s.cache.InvalidateCourses(ctx)
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: models.AuditActionDelete, Resource: string(policy.ResourceUser), ResourceID: user.ID, Before: user, Meta: meta})
	return nil
}

func (s *UserService) shape(ctx context.Context, actor *models.Actor, user *models.User) (*visibility.UserView, error) {
	g := visibility.Graph{UserStats: map[string]models.UserStats{}}
	if actor.Role == models.RoleAdmin && user.ID != "" {
		stats, err := s.repo.Stats(ctx, []string{user.ID})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user stats")
		}
		g.UserStats = stats
	}
	view := visibility.ShapeUser(actor, *user, g)
	return &view, nil
}
