// Package policy decides whether an actor may perform an action on a resource.
//
// The engine is pure: callers resolve the reference graph (the course a video
// belongs to, the enrollment being touched, whether the actor is enrolled)
// before asking, and the engine never reaches into storage.
package policy

import (
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// Action is an operation requested against a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	// ActionExport downloads a course roster.
	ActionExport Action = "export"
)

// Resource is an entity class governed by the engine.
type Resource string

const (
	ResourceUser       Resource = "user"
	ResourceCourse     Resource = "course"
	ResourceVideo      Resource = "video"
	ResourceLesson     Resource = "lesson"
	ResourceEnrollment Resource = "enrollment"
)

// Reason explains a denial.
type Reason string

const (
	ReasonNotAuthenticated          Reason = "NotAuthenticated"
	ReasonWrongRole                 Reason = "WrongRole"
	ReasonNotOwner                  Reason = "NotOwner"
	ReasonNotEnrolledAndUnpublished Reason = "NotEnrolledAndUnpublished"
)

var reasonMessages = map[Reason]string{
	ReasonNotAuthenticated:          "authentication required",
	ReasonWrongRole:                 "role is not permitted to perform this action",
	ReasonNotOwner:                  "resource belongs to another user",
	ReasonNotEnrolledAndUnpublished: "course is not published and you are not enrolled",
}

// Decision is the verdict of the engine.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into the typed application error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonNotAuthenticated {
		return appErrors.WithReason(appErrors.ErrUnauthorized, string(d.Reason))
	}
	err := appErrors.WithReason(appErrors.ErrForbidden, string(d.Reason))
	if msg, ok := reasonMessages[d.Reason]; ok {
		err.Message = msg
	}
	return err
}

// Target is the resolved subject of an authorization request.
type Target struct {
	Resource Resource
	// Course is the course itself for course targets, or the owning course
	// for video, lesson and enrollment targets.
	Course     *models.Course
	Enrollment *models.Enrollment
	User       *models.User
	// Enrolled reports whether the actor holds an enrollment on Course.
	Enrolled bool
}

// ClassTarget addresses an entity class rather than an instance.
func ClassTarget(resource Resource) Target {
	return Target{Resource: resource}
}

// CourseTarget addresses a concrete course.
func CourseTarget(course *models.Course, enrolled bool) Target {
	return Target{Resource: ResourceCourse, Course: course, Enrolled: enrolled}
}

// VideoTarget addresses a video through its owning course.
func VideoTarget(parent *models.Course, enrolled bool) Target {
	return Target{Resource: ResourceVideo, Course: parent, Enrolled: enrolled}
}

// LessonTarget addresses a lesson through its owning course.
func LessonTarget(parent *models.Course, enrolled bool) Target {
	return Target{Resource: ResourceLesson, Course: parent, Enrolled: enrolled}
}

// EnrollmentTarget addresses an enrollment and the course it references.
func EnrollmentTarget(enrollment *models.Enrollment, course *models.Course) Target {
	return Target{Resource: ResourceEnrollment, Enrollment: enrollment, Course: course}
}

// UserTarget addresses a user account.
func UserTarget(user *models.User) Target {
	return Target{Resource: ResourceUser, User: user}
}

// Authorize evaluates the role table in priority order; the first matching
// rule decides.
func Authorize(actor *models.Actor, action Action, target Target) Decision {
	if actor == nil || actor.ID == "" {
		return deny(ReasonNotAuthenticated)
	}

	switch actor.Role {
	case models.RoleAdmin:
		return allow()
	case models.RoleTrainer:
		return authorizeTrainer(actor, action, target)
	case models.RoleStudent:
		return authorizeStudent(actor, action, target)
	default:
		return deny(ReasonWrongRole)
	}
}

// Gate evaluates only the rules that do not depend on the target instance.
// Services call it before loading a record so that role denials never reveal
// whether the record exists.
func Gate(actor *models.Actor, action Action, resource Resource) Decision {
	decision := Authorize(actor, action, ClassTarget(resource))
	switch {
	case decision.Allowed:
		return decision
	case decision.Reason == ReasonNotAuthenticated, decision.Reason == ReasonWrongRole:
		return decision
	default:
		return allow()
	}
}

func authorizeTrainer(actor *models.Actor, action Action, target Target) Decision {
	switch target.Resource {
	case ResourceCourse, ResourceVideo, ResourceLesson:
		if action == ActionList {
			return allow()
		}
		if action == ActionCreate && target.Resource == ResourceCourse {
			return allow()
		}
		if target.Course.OwnedBy(actor.ID) {
			return allow()
		}
		if action == ActionRead && target.Course.Published() {
			return allow()
		}
		return deny(ReasonNotOwner)
	case ResourceUser, ResourceEnrollment:
		return deny(ReasonWrongRole)
	default:
		return deny(ReasonWrongRole)
	}
}

func authorizeStudent(actor *models.Actor, action Action, target Target) Decision {
	switch target.Resource {
	case ResourceCourse, ResourceVideo, ResourceLesson:
		switch action {
		case ActionList:
			return allow()
		case ActionRead:
			if target.Course.Published() || (target.Course != nil && target.Enrolled) {
				return allow()
			}
			return deny(ReasonNotEnrolledAndUnpublished)
		default:
			return deny(ReasonWrongRole)
		}
	case ResourceEnrollment:
		switch action {
		case ActionList:
			return allow()
		case ActionExport:
			return deny(ReasonWrongRole)
		}
		if target.Enrollment == nil || target.Enrollment.UserID != actor.ID {
			return deny(ReasonNotOwner)
		}
		if action == ActionCreate && !target.Course.Published() {
			return deny(ReasonNotEnrolledAndUnpublished)
		}
		return allow()
	case ResourceUser:
		switch action {
		case ActionList:
			return allow()
		case ActionRead:
			if target.User == nil || target.User.ID != actor.ID {
				return deny(ReasonNotOwner)
			}
			return allow()
		}
		return deny(ReasonWrongRole)
	default:
		return deny(ReasonWrongRole)
	}
}
