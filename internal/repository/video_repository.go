package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
)

const videoColumns = `id, title, description, url, source, duration_seconds, course_id, created_at, updated_at`

// VideoRepository provides database access for course videos.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository creates a new instance of VideoRepository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// FindByID returns a video by identifier.
func (r *VideoRepository) FindByID(ctx context.Context, id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1 LIMIT 1`
	var video models.Video
	if err := r.db.GetContext(ctx, &video, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find video by id: %w", err)
	}
	return &video, nil
}

// List returns the videos admitted by scope and filter with the total count.
func (r *VideoRepository) List(ctx context.Context, filter models.VideoFilter, scope policy.Scope) ([]models.Video, int, error) {
	var cond conditions
	cond.applyChildScope("course_id", scope)
	if filter.CourseID != "" {
		cond.add("course_id = $%d", filter.CourseID)
	}
	if filter.Source != "" {
		cond.add("LOWER(source) = $%d", strings.ToLower(filter.Source))
	}

	where := cond.where()
	listQuery := fmt.Sprintf("SELECT %s FROM videos %s ORDER BY created_at DESC, id ASC %s", videoColumns, where, pageClause(filter.Page, filter.PageSize))

	var videos []models.Video
	if err := r.db.SelectContext(ctx, &videos, listQuery, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM videos "+where, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}
	return videos, total, nil
}

// ListByCourse returns every video of a course.
func (r *VideoRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE course_id = $1 ORDER BY created_at DESC, id ASC`
	var videos []models.Video
	if err := r.db.SelectContext(ctx, &videos, query, courseID); err != nil {
		return nil, fmt.Errorf("list videos by course: %w", err)
	}
	return videos, nil
}

// Create inserts a new video.
func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now

	const query = `INSERT INTO videos (id, title, description, url, source, duration_seconds, course_id, created_at, updated_at) VALUES (:id, :title, :description, :url, :source, :duration_seconds, :course_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, video); err != nil {
		return mapWriteError("create video", err)
	}
	return nil
}

// Update persists mutable video fields.
func (r *VideoRepository) Update(ctx context.Context, video *models.Video) error {
	video.UpdatedAt = time.Now().UTC()
	const query = `UPDATE videos SET title = :title, description = :description, url = :url, source = :source, duration_seconds = :duration_seconds, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, video)
	if err != nil {
		return mapWriteError("update video", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a video.
func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
