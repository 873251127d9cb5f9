package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/validation"
)

func newCourseServiceForTest(store *memStore) (*CourseService, *fakeCourseRepo) {
	courses := &fakeCourseRepo{s: store}
	users := &fakeUserRepo{s: store}
	audit := NewAuditService(users, zap.NewNop())
	svc := NewCourseService(courses, users, &fakeEnrollmentRepo{s: store}, &fakeVideoRepo{s: store}, &fakeLessonRepo{s: store}, nil, audit, nil, NewMetricsService(), validation.New(), zap.NewNop())
	return svc, courses
}

func seedCatalog(store *memStore) {
	store.addUser("admin-1", "Ada", models.RoleAdmin)
	store.addUser("trainer-1", "Tom", models.RoleTrainer)
	store.addUser("trainer-2", "Tia", models.RoleTrainer)
	store.addUser("student-1", "Sam", models.RoleStudent)
	store.addUser("student-2", "Sue", models.RoleStudent)
	store.addCourse("C1", "trainer-1", models.CourseStatusPublished)
	store.addCourse("C2", "trainer-1", models.CourseStatusDraft)
	store.addCourse("C3", "trainer-2", models.CourseStatusPublished)
	store.addEnrollment("E1", "student-1", "C1", 40)
}

func requireReason(t *testing.T, err error, status int, reason policy.Reason) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, string(reason), appErr.Reason)
}

func TestCourseServiceCreateValidation(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	_, err := svc.Create(context.Background(), trainer("trainer-1"), dto.CreateCourseRequest{Title: "  ", Description: "desc"}, models.RequestMeta{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "title")

	_, err = svc.Create(context.Background(), trainer("trainer-1"), dto.CreateCourseRequest{Title: "Go", Description: "desc", Price: dto.NewNumber(-5)}, models.RequestMeta{})
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "price")
}

func TestCourseServiceCreateOwnedByCaller(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	view, err := svc.Create(context.Background(), trainer("trainer-2"), dto.CreateCourseRequest{Title: " Go Basics ", Description: "intro"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", view.Title)
	assert.Equal(t, "trainer-2", view.InstructorID)
	assert.Equal(t, models.CourseStatusDraft, view.Status)
	assert.Equal(t, float64(0), view.Price)
	require.NotNil(t, view.EnrollmentCount)
	assert.Equal(t, 0, *view.EnrollmentCount)

	store.mu.Lock()
	assert.Len(t, store.audits, 1)
	assert.Equal(t, models.AuditActionCreate, store.audits[0].Action)
	store.mu.Unlock()
}

func TestCourseServiceCreateRejectsStudent(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	_, err := svc.Create(context.Background(), student("student-1"), dto.CreateCourseRequest{Title: "Go", Description: "x"}, models.RequestMeta{})
	requireReason(t, err, http.StatusForbidden, policy.ReasonWrongRole)
}

func TestCourseServiceCreateRejectsStaleTrainerToken(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	_, err := svc.Create(context.Background(), trainer("ghost"), dto.CreateCourseRequest{Title: "Go", Description: "x"}, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestCourseServiceListForStudent(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	views, pagination, err := svc.List(context.Background(), student("student-1"), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, 2, pagination.TotalCount)

	byID := map[string]int{}
	for i, v := range views {
		byID[v.ID] = i
		assert.Nil(t, v.EnrollmentCount)
		require.NotNil(t, v.Instructor)
		assert.Empty(t, v.Instructor.Email)
	}
	c1 := views[byID["C1"]]
	require.NotNil(t, c1.Progress)
	assert.Equal(t, 40, *c1.Progress)
	assert.Equal(t, "E1", c1.EnrollmentID)
	assert.Nil(t, views[byID["C3"]].Progress)
	_, hasDraft := byID["C2"]
	assert.False(t, hasDraft)
}

func TestCourseServiceListForTrainerIsOwnOnly(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	views, _, err := svc.List(context.Background(), trainer("trainer-1"), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, "trainer-1", v.InstructorID)
		require.NotNil(t, v.EnrollmentCount)
	}
}

func TestCourseServiceGetDraftForStudent(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	store.addVideo("V1", "C2")
	store.addLesson("L1", "C2", 1)
	svc, _ := newCourseServiceForTest(store)

	_, err := svc.Get(context.Background(), student("student-2"), "C2")
	requireReason(t, err, http.StatusForbidden, policy.ReasonNotEnrolledAndUnpublished)

	store.addEnrollment("E2", "student-2", "C2", 0)
	detail, err := svc.Get(context.Background(), student("student-2"), "C2")
	require.NoError(t, err)
	assert.Len(t, detail.Videos, 1)
	assert.Len(t, detail.Lessons, 1)
}

func TestCourseServiceGetNotFound(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	_, err := svc.Get(context.Background(), admin("admin-1"), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestCourseServiceUpdateNotOwner(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	title := "Hijacked"
	_, err := svc.Update(context.Background(), trainer("trainer-2"), "C1", dto.UpdateCourseRequest{Title: &title}, models.RequestMeta{})
	requireReason(t, err, http.StatusForbidden, policy.ReasonNotOwner)
	assert.Equal(t, "Course C1", store.courses["C1"].Title)
}

func TestCourseServiceUpdateInstructorReassignment(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	to := "trainer-2"
	_, err := svc.Update(context.Background(), trainer("trainer-1"), "C1", dto.UpdateCourseRequest{InstructorID: &to}, models.RequestMeta{})
	requireReason(t, err, http.StatusForbidden, policy.ReasonWrongRole)

	toStudent := "student-1"
	_, err = svc.Update(context.Background(), admin("admin-1"), "C1", dto.UpdateCourseRequest{InstructorID: &toStudent}, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	view, err := svc.Update(context.Background(), admin("admin-1"), "C1", dto.UpdateCourseRequest{InstructorID: &to}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "trainer-2", view.InstructorID)
	require.NotNil(t, view.Instructor)
	assert.Equal(t, "trainer-2@example.com", view.Instructor.Email)
}

func TestCourseServiceDeleteCascades(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	store.addVideo("V1", "C1")
	store.addLesson("L1", "C1", 1)
	svc, _ := newCourseServiceForTest(store)

	require.NoError(t, svc.Delete(context.Background(), trainer("trainer-1"), "C1", models.RequestMeta{}))
	assert.NotContains(t, store.courses, "C1")
	assert.NotContains(t, store.videos, "V1")
	assert.NotContains(t, store.lessons, "L1")
	assert.NotContains(t, store.enrollments, "E1")
}

func TestCourseServiceDeleteIntegrityError(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, courses := newCourseServiceForTest(store)
	courses.deleteErr = errors.New("delete enrollments: connection reset")

	err := svc.Delete(context.Background(), admin("admin-1"), "C1", models.RequestMeta{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrIntegrity.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Contains(t, store.courses, "C1")
}

func TestCourseServiceMyCoursesForStudentIncludesEnrolledDrafts(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	store.addEnrollment("E2", "student-1", "C2", 10)
	svc, _ := newCourseServiceForTest(store)

	views, _, err := svc.MyCourses(context.Background(), student("student-1"), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "C2", views[0].ID)
	assert.Equal(t, "C1", views[1].ID)
	require.NotNil(t, views[0].Progress)
	assert.Equal(t, 10, *views[0].Progress)
}

func TestCourseServiceRoster(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc, _ := newCourseServiceForTest(store)

	doc, err := svc.Roster(context.Background(), trainer("trainer-1"), "C1", export.FormatCSV, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.ContentType)
	assert.Contains(t, string(doc.Body), "Sam")
	assert.Contains(t, string(doc.Body), "student-1@example.com")

	_, err = svc.Roster(context.Background(), trainer("trainer-2"), "C1", export.FormatCSV, models.RequestMeta{})
	requireReason(t, err, http.StatusForbidden, policy.ReasonNotOwner)

	_, err = svc.Roster(context.Background(), student("student-1"), "C1", export.FormatCSV, models.RequestMeta{})
	requireReason(t, err, http.StatusForbidden, policy.ReasonWrongRole)
}
