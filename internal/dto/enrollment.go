package dto

// CreateEnrollmentRequest enrolls a student in a course. Students may omit
// user_id to enroll themselves.
type CreateEnrollmentRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id" validate:"required"`
	Progress *int   `json:"progress" validate:"omitempty,min=0,max=100"`
}

// UpdateProgressRequest sets the progress percentage of an enrollment.
type UpdateProgressRequest struct {
	Progress *int `json:"progress" validate:"required,min=0,max=100"`
}
