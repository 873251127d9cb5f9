package dto

// CreateCourseRequest is the payload for creating a course. The instructor is
// always the caller.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Price       Number `json:"price"`
	Status      string `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdateCourseRequest carries the fields to change; nil fields are kept.
type UpdateCourseRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,min=1"`
	Price        *Number `json:"price"`
	Status       *string `json:"status" validate:"omitempty,oneof=draft published"`
	InstructorID *string `json:"instructor_id" validate:"omitempty,min=1"`
}

// CreateVideoRequest is the payload for attaching a video to a course.
type CreateVideoRequest struct {
	CourseID        string `json:"course_id" validate:"required"`
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description"`
	URL             string `json:"url" validate:"required,url"`
	Source          string `json:"source" validate:"max=50"`
	DurationSeconds Number `json:"duration_seconds"`
}

// UpdateVideoRequest carries the video fields to change.
type UpdateVideoRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description"`
	URL             *string `json:"url" validate:"omitempty,url"`
	Source          *string `json:"source" validate:"omitempty,max=50"`
	DurationSeconds *Number `json:"duration_seconds"`
}

// CreateLessonRequest is the payload for adding a lesson. A missing order
// appends the lesson after the current last one.
type CreateLessonRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content"`
	Order    *int   `json:"order" validate:"omitempty,min=1"`
}

// UpdateLessonRequest carries the lesson fields to change.
type UpdateLessonRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string `json:"content"`
	Order   *int    `json:"order" validate:"omitempty,min=1"`
}
