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

const lessonColumns = `id, course_id, title, content, lesson_order, created_at, updated_at`

// LessonRepository provides database access for course lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new instance of LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindByID returns a lesson by identifier.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 LIMIT 1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson by id: %w", err)
	}
	return &lesson, nil
}

// List returns the lessons admitted by scope and filter.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter, scope policy.Scope) ([]models.Lesson, error) {
	var cond conditions
	cond.applyChildScope("course_id", scope)
	if filter.CourseID != "" {
		cond.add("course_id = $%d", filter.CourseID)
	}

	query := fmt.Sprintf("SELECT %s FROM lessons %s ORDER BY course_id ASC, lesson_order ASC, id ASC", lessonColumns, cond.where())
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, cond.args...); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// NextOrder returns the position after the last lesson of a course.
func (r *LessonRepository) NextOrder(ctx context.Context, courseID string) (int, error) {
	var next int
	if err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX(lesson_order), 0) + 1 FROM lessons WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("next lesson order: %w", err)
	}
	return next, nil
}

// Create inserts a new lesson. A duplicate position within the course is
// rejected with ErrDuplicate.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, course_id, title, content, lesson_order, created_at, updated_at) VALUES (:id, :course_id, :title, :content, :lesson_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return mapWriteError("create lesson", err)
	}
	return nil
}

// Update persists mutable lesson fields.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET title = :title, content = :content, lesson_order = :lesson_order, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, lesson)
	if err != nil {
		return mapWriteError("update lesson", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
