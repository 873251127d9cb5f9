package models

import "time"

// CourseStatus captures the publication state of a course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
)

// Valid reports whether the status is known.
func (s CourseStatus) Valid() bool {
	return s == CourseStatusDraft || s == CourseStatusPublished
}

// Course is a unit of training owned by an instructor.
type Course struct {
	ID           string       `db:"id" json:"id"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description"`
	Price        float64      `db:"price" json:"price"`
	Status       CourseStatus `db:"status" json:"status"`
	InstructorID string       `db:"instructor_id" json:"instructor_id"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Published reports whether the course is visible to every student.
func (c *Course) Published() bool {
	return c != nil && c.Status == CourseStatusPublished
}

// OwnedBy reports whether userID is the course instructor.
func (c *Course) OwnedBy(userID string) bool {
	return c != nil && userID != "" && c.InstructorID == userID
}

// CourseStats aggregates dependent row counts for a course.
type CourseStats struct {
	CourseID        string `db:"course_id" json:"-"`
	EnrollmentCount int    `db:"enrollment_count" json:"enrollment_count"`
	VideoCount      int    `db:"video_count" json:"video_count"`
	LessonCount     int    `db:"lesson_count" json:"lesson_count"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	Status       *CourseStatus
	InstructorID string
	Search       string
	Page         int
	PageSize     int
}
