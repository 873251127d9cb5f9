package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
)

const enrollmentColumns = `id, user_id, course_id, progress, created_at, updated_at`

// EnrollmentRepository manages student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by identifier.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by id: %w", err)
	}
	return &enrollment, nil
}

// ListByUser returns every enrollment held by a user.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 ORDER BY created_at DESC, id ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments by user: %w", err)
	}
	return enrollments, nil
}

// List returns the enrollments admitted by scope and filter with the total count.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter, scope policy.Scope) ([]models.Enrollment, int, error) {
	var cond conditions
	if scope.UserID != "" {
		cond.add("user_id = $%d", scope.UserID)
	}
	if filter.UserID != "" {
		cond.add("user_id = $%d", filter.UserID)
	}
	if filter.CourseID != "" {
		cond.add("course_id = $%d", filter.CourseID)
	}

	where := cond.where()
	listQuery := fmt.Sprintf("SELECT %s FROM enrollments %s ORDER BY created_at DESC, id ASC %s", enrollmentColumns, where, pageClause(filter.Page, filter.PageSize))

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, listQuery, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments "+where, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// Roster returns the enrolled students of a course, earliest first.
func (r *EnrollmentRepository) Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, u.id AS user_id, u.name, u.email, e.progress, e.created_at AS enrolled_at
FROM enrollments e
JOIN users u ON u.id = e.user_id
WHERE e.course_id = $1
ORDER BY e.created_at ASC, e.id ASC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, courseID); err != nil {
		return nil, fmt.Errorf("course roster: %w", err)
	}
	return entries, nil
}

// Create inserts a new enrollment. A second enrollment for the same
// (user, course) pair is rejected with ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, user_id, course_id, progress, created_at, updated_at) VALUES (:id, :user_id, :course_id, :progress, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return mapWriteError("create enrollment", err)
	}
	return nil
}

// UpdateProgress stores a new progress value.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE enrollments SET progress = $2, updated_at = $3 WHERE id = $1`, id, progress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
