package service

import (
	"context"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/visibility"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type graphCourseReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	Stats(ctx context.Context, ids []string) (map[string]models.CourseStats, error)
}

type graphUserReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type graphEnrollmentReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
}

// graphRequest lists what a projection needs resolved.
type graphRequest struct {
	// courses already loaded by the caller
	courses   []models.Course
	courseIDs []string
	users     []models.User
	userIDs   []string
	// courseStats loads aggregate counts for every resolved course
	courseStats bool
}

// graphResolver loads the reference graph the policy engine and projector
// consume, so neither reaches into storage on its own.
type graphResolver struct {
	courses     graphCourseReader
	users       graphUserReader
	enrollments graphEnrollmentReader
}

func newGraphResolver(courses graphCourseReader, users graphUserReader, enrollments graphEnrollmentReader) *graphResolver {
	return &graphResolver{courses: courses, users: users, enrollments: enrollments}
}

func (r *graphResolver) resolve(ctx context.Context, actor *models.Actor, want graphRequest) (visibility.Graph, error) {
	g := visibility.Graph{
		Users:       make(map[string]models.User),
		Courses:     make(map[string]models.Course),
		CourseStats: make(map[string]models.CourseStats),
		UserStats:   make(map[string]models.UserStats),
	}
	if actor == nil {
		return g, nil
	}

	if actor.Role == models.RoleStudent {
		enrollments, err := r.enrollments.ListByUser(ctx, actor.ID)
		if err != nil {
			return g, graphError(err)
		}
		g.Enrollments = enrollments
	}

	for _, c := range want.courses {
		g.Courses[c.ID] = c
	}
	if missing := missingKeys(g.Courses, want.courseIDs); len(missing) > 0 {
		loaded, err := r.courses.FindByIDs(ctx, missing)
		if err != nil {
			return g, graphError(err)
		}
		for _, c := range loaded {
			g.Courses[c.ID] = c
		}
	}

	for _, u := range want.users {
		g.Users[u.ID] = u
	}
	userIDs := append([]string{}, want.userIDs...)
	for _, c := range g.Courses {
		userIDs = append(userIDs, c.InstructorID)
	}
	if missing := missingKeys(g.Users, userIDs); len(missing) > 0 {
		loaded, err := r.users.FindByIDs(ctx, missing)
		if err != nil {
			return g, graphError(err)
		}
		for _, u := range loaded {
			g.Users[u.ID] = u
		}
	}

	if want.courseStats && actor.Role != models.RoleStudent && len(g.Courses) > 0 {
		ids := make([]string, 0, len(g.Courses))
		for id := range g.Courses {
			ids = append(ids, id)
		}
		stats, err := r.courses.Stats(ctx, ids)
		if err != nil {
			return g, graphError(err)
		}
		g.CourseStats = stats
	}
	return g, nil
}

func missingKeys[T any](have map[string]T, ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := have[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func graphError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve references")
}
