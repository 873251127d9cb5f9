package models

import "time"

const (
	MinProgress = 0
	MaxProgress = 100
)

// Enrollment links a student to a course and tracks progress.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Progress  int       `db:"progress" json:"progress"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID   string
	CourseID string
	Page     int
	PageSize int
}

// RosterEntry is one enrolled student of a course.
type RosterEntry struct {
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Progress     int       `db:"progress" json:"progress"`
	EnrolledAt   time.Time `db:"enrolled_at" json:"enrolled_at"`
}
