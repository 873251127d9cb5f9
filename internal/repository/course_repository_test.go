package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
)

var courseRowColumns = []string{"id", "title", "description", "price", "status", "instructor_id", "created_at", "updated_at"}

func TestCourseListTrainerScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, price, status, instructor_id, created_at, updated_at FROM courses WHERE instructor_id = $1 ORDER BY created_at DESC, id ASC LIMIT 20 OFFSET 0")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).
			AddRow("c1", "Go", "", 10.5, "draft", "t1", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE instructor_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{}, policy.Scope{InstructorID: "t1"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "c1", courses[0].ID)
	assert.Equal(t, models.CourseStatusDraft, courses[0].Status)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseListPublishedScopeWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	status := models.CourseStatusPublished
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE status = $1 AND status = $2 AND (LOWER(title) LIKE $3 OR LOWER(description) LIKE $3) ORDER BY")).
		WithArgs(models.CourseStatusPublished, status, "%go%").
		WillReturnRows(sqlmock.NewRows(courseRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE status = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Status: &status, Search: "Go"}, policy.Scope{PublishedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseCreateInvalidInstructor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnError(&pq.Error{Code: "23503", Constraint: "courses_instructor_id_fkey"})

	err := repo.Create(context.Background(), &models.Course{Title: "Go", Status: models.CourseStatusDraft, InstructorID: "ghost"})
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCascadeCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lessons WHERE course_id = $1")).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM videos WHERE course_id = $1")).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE course_id = $1")).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCascadeRollsBackMidway(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	failure := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lessons WHERE course_id = $1")).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM videos WHERE course_id = $1")).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE course_id = $1")).WithArgs("c1").WillReturnError(failure)
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "c1")
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCascadeMissingCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM lessons").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM videos").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM enrollments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM courses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("FROM courses c WHERE c.id = ANY\\(\\$1\\)").
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "enrollment_count", "video_count", "lesson_count"}).
			AddRow("c1", 4, 2, 7))

	stats, err := repo.Stats(context.Background(), []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStats{CourseID: "c1", EnrollmentCount: 4, VideoCount: 2, LessonCount: 7}, stats["c1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
