package models

import "time"

// Video is a recording attached to a course.
type Video struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	URL             string    `db:"url" json:"url"`
	Source          string    `db:"source" json:"source"`
	DurationSeconds int       `db:"duration_seconds" json:"duration_seconds"`
	CourseID        string    `db:"course_id" json:"course_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// VideoFilter narrows video listings.
type VideoFilter struct {
	CourseID string
	Source   string
	Page     int
	PageSize int
}
