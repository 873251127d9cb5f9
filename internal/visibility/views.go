package visibility

import (
	"time"

	"github.com/noah-isme/lms-api/internal/models"
)

// PersonView is the public face of a user attached to another record.
// Email is only populated for administrators.
type PersonView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CourseRef identifies the course a child record belongs to.
type CourseRef struct {
	ID     string              `json:"id"`
	Title  string              `json:"title"`
	Status models.CourseStatus `json:"status"`
}

// CourseView is a course shaped for the requesting role.
type CourseView struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Price        float64             `json:"price"`
	Status       models.CourseStatus `json:"status"`
	InstructorID string              `json:"instructor_id"`
	Instructor   *PersonView         `json:"instructor,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`

	EnrollmentCount *int `json:"enrollment_count,omitempty"`
	VideoCount      *int `json:"video_count,omitempty"`
	LessonCount     *int `json:"lesson_count,omitempty"`

	// Progress and EnrollmentID describe the requesting student's own enrollment.
	Progress     *int   `json:"progress,omitempty"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
}

// VideoView is a video with its owning course reference.
type VideoView struct {
	models.Video
	Course     *CourseRef  `json:"course,omitempty"`
	Instructor *PersonView `json:"instructor,omitempty"`
}

// LessonView is a lesson with its owning course reference.
type LessonView struct {
	models.Lesson
	Course *CourseRef `json:"course,omitempty"`
}

// EnrollmentView is an enrollment with the referenced course and, for
// administrators, the enrolled student.
type EnrollmentView struct {
	models.Enrollment
	Course *CourseRef  `json:"course,omitempty"`
	User   *PersonView `json:"user,omitempty"`
}

// UserView is a user account with relationship counts for administrators.
type UserView struct {
	models.User
	CourseCount     *int `json:"course_count,omitempty"`
	EnrollmentCount *int `json:"enrollment_count,omitempty"`
}

// CourseDetail is a single course with its visible videos and lessons.
type CourseDetail struct {
	CourseView
	Videos  []VideoView  `json:"videos"`
	Lessons []LessonView `json:"lessons"`
}

func intPtr(v int) *int {
	return &v
}

func courseRef(course *models.Course) *CourseRef {
	if course == nil {
		return nil
	}
	return &CourseRef{ID: course.ID, Title: course.Title, Status: course.Status}
}
