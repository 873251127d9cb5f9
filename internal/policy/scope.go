package policy

import "github.com/noah-isme/lms-api/internal/models"

// Scope is the derived filter narrowing a list to what the actor may see.
// The zero value admits everything.
type Scope struct {
	// InstructorID keeps courses, or children of courses, owned by this user.
	InstructorID string
	// PublishedOnly keeps published courses.
	PublishedOnly bool
	// EnrolledUserID keeps children of courses this user is enrolled in.
	EnrolledUserID string
	// UserID keeps enrollments of this user, or the user itself.
	UserID string
}

// Unrestricted reports whether the scope narrows nothing.
func (s Scope) Unrestricted() bool {
	return s == Scope{}
}

// ListScope authorizes a list action and derives the visibility filter for it.
// List is never denied for an authenticated actor unless a role rule forbids
// the resource outright.
func ListScope(actor *models.Actor, resource Resource) (Scope, Decision) {
	decision := Authorize(actor, ActionList, ClassTarget(resource))
	if !decision.Allowed {
		return Scope{}, decision
	}

	switch actor.Role {
	case models.RoleTrainer:
		return Scope{InstructorID: actor.ID}, decision
	case models.RoleStudent:
		switch resource {
		case ResourceCourse:
			return Scope{PublishedOnly: true}, decision
		case ResourceVideo, ResourceLesson:
			return Scope{EnrolledUserID: actor.ID}, decision
		case ResourceEnrollment, ResourceUser:
			return Scope{UserID: actor.ID}, decision
		}
	}
	return Scope{}, decision
}

// AdmitsCourse applies the scope to a course row.
func (s Scope) AdmitsCourse(course models.Course) bool {
	if s.InstructorID != "" && course.InstructorID != s.InstructorID {
		return false
	}
	if s.PublishedOnly && course.Status != models.CourseStatusPublished {
		return false
	}
	return true
}

// AdmitsChild applies the scope to a video or lesson through its parent
// course. enrolled reports whether EnrolledUserID holds an enrollment on the
// parent course.
func (s Scope) AdmitsChild(parent *models.Course, enrolled bool) bool {
	if s.InstructorID != "" && !parent.OwnedBy(s.InstructorID) {
		return false
	}
	if s.PublishedOnly && !parent.Published() {
		return false
	}
	if s.EnrolledUserID != "" && !enrolled {
		return false
	}
	return true
}

// AdmitsEnrollment applies the scope to an enrollment row.
func (s Scope) AdmitsEnrollment(enrollment models.Enrollment) bool {
	return s.UserID == "" || enrollment.UserID == s.UserID
}

// AdmitsUser applies the scope to a user row.
func (s Scope) AdmitsUser(user models.User) bool {
	return s.UserID == "" || user.ID == s.UserID
}
