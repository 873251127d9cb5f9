package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
)

const courseColumns = `id, title, description, price, status, instructor_id, created_at, updated_at`

// CourseRepository provides database access for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// FindByIDs returns the courses matching the identifiers.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ANY($1)`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find courses by ids: %w", err)
	}
	return courses, nil
}

// List returns the courses admitted by scope and filter with the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter, scope policy.Scope) ([]models.Course, int, error) {
	var cond conditions
	if scope.InstructorID != "" {
		cond.add("instructor_id = $%d", scope.InstructorID)
	}
	if scope.PublishedOnly {
		cond.add("status = $%d", models.CourseStatusPublished)
	}
	if filter.Status != nil {
		cond.add("status = $%d", *filter.Status)
	}
	if filter.InstructorID != "" {
		cond.add("instructor_id = $%d", filter.InstructorID)
	}
	if filter.Search != "" {
		cond.add("(LOWER(title) LIKE $%[1]d OR LOWER(description) LIKE $%[1]d)", "%"+strings.ToLower(filter.Search)+"%")
	}

	where := cond.where()
	listQuery := fmt.Sprintf("SELECT %s FROM courses %s ORDER BY created_at DESC, id ASC %s", courseColumns, where, pageClause(filter.Page, filter.PageSize))

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, listQuery, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses "+where, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// Stats returns dependent row counts keyed by course id.
func (r *CourseRepository) Stats(ctx context.Context, ids []string) (map[string]models.CourseStats, error) {
	result := make(map[string]models.CourseStats, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	const query = `SELECT c.id AS course_id,
	(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count,
	(SELECT COUNT(*) FROM videos v WHERE v.course_id = c.id) AS video_count,
	(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id) AS lesson_count
FROM courses c WHERE c.id = ANY($1)`

	var rows []models.CourseStats
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("course stats: %w", err)
	}
	for _, row := range rows {
		result[row.CourseID] = row
	}
	return result, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, title, description, price, status, instructor_id, created_at, updated_at) VALUES (:id, :title, :description, :price, :status, :instructor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return mapWriteError("create course", err)
	}
	return nil
}

// Update persists mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description, price = :price, status = :status, instructor_id = :instructor_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return mapWriteError("update course", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade removes a course together with its lessons, videos and
// enrollments in one transaction. The course row is deleted last; any failure
// rolls the whole cascade back.
func (r *CourseRepository) DeleteCascade(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	steps := []struct {
		label string
		query string
	}{
		{"lessons", `DELETE FROM lessons WHERE course_id = $1`},
		{"videos", `DELETE FROM videos WHERE course_id = $1`},
		{"enrollments", `DELETE FROM enrollments WHERE course_id = $1`},
	}
	for _, step := range steps {
		if _, err = tx.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("delete course %s: %w", step.label, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course: %w", err)
	}
	return nil
}
