// Package visibility narrows candidate rows to what an actor may see and
// shapes them into role specific views.
//
// Every projection first applies the policy list scope for the actor, then
// the caller's requested filter as a conjunction, then a deterministic order.
// Projections never mutate their inputs, so repeated calls with the same
// arguments return equal results.
package visibility

import (
	"sort"
	"strings"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
)

// Graph holds the resolved references a projection needs for shaping.
type Graph struct {
	// Users indexed by id, typically course instructors and enrolled students.
	Users map[string]models.User
	// Courses indexed by id, the parents of videos, lessons and enrollments.
	Courses map[string]models.Course
	// Enrollments held by the requesting actor.
	Enrollments []models.Enrollment
	CourseStats map[string]models.CourseStats
	UserStats   map[string]models.UserStats
}

func (g Graph) course(id string) *models.Course {
	if c, ok := g.Courses[id]; ok {
		return &c
	}
	return nil
}

func (g Graph) user(id string) *models.User {
	if u, ok := g.Users[id]; ok {
		return &u
	}
	return nil
}

func (g Graph) enrollment(userID, courseID string) *models.Enrollment {
	for i := range g.Enrollments {
		e := g.Enrollments[i]
		if e.UserID == userID && e.CourseID == courseID {
			return &e
		}
	}
	return nil
}

// Enrolled reports whether userID holds an enrollment on courseID.
func (g Graph) Enrolled(userID, courseID string) bool {
	return userID != "" && g.enrollment(userID, courseID) != nil
}

// ProjectCourses narrows, filters, orders and shapes courses.
func ProjectCourses(actor *models.Actor, candidates []models.Course, filter models.CourseFilter, g Graph) []CourseView {
	scope, decision := policy.ListScope(actor, policy.ResourceCourse)
	if !decision.Allowed {
		return []CourseView{}
	}

	rows := make([]models.Course, 0, len(candidates))
	for _, c := range candidates {
		if scope.AdmitsCourse(c) && matchCourse(c, filter) {
			rows = append(rows, c)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return newerFirst(rows[i].CreatedAt.UnixNano(), rows[j].CreatedAt.UnixNano(), rows[i].ID, rows[j].ID)
	})

	views := make([]CourseView, 0, len(rows))
	for _, c := range rows {
		views = append(views, ShapeCourse(actor, c, g))
	}
	return views
}

// ProjectEnrolledCourses lists the courses a student is enrolled in, newest
// enrollment first, including drafts the student was enrolled in.
func ProjectEnrolledCourses(actor *models.Actor, enrollments []models.Enrollment, g Graph) []CourseView {
	if actor == nil {
		return []CourseView{}
	}
	rows := make([]models.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if e.UserID == actor.ID && g.course(e.CourseID) != nil {
			rows = append(rows, e)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return newerFirst(rows[i].CreatedAt.UnixNano(), rows[j].CreatedAt.UnixNano(), rows[i].ID, rows[j].ID)
	})

	views := make([]CourseView, 0, len(rows))
	for _, e := range rows {
		views = append(views, ShapeCourse(actor, *g.course(e.CourseID), g))
	}
	return views
}

// ProjectVideos narrows videos through their parent course.
func ProjectVideos(actor *models.Actor, candidates []models.Video, filter models.VideoFilter, g Graph) []VideoView {
	scope, decision := policy.ListScope(actor, policy.ResourceVideo)
	if !decision.Allowed {
		return []VideoView{}
	}

	rows := make([]models.Video, 0, len(candidates))
	for _, v := range candidates {
		if !scope.AdmitsChild(g.course(v.CourseID), g.Enrolled(scope.EnrolledUserID, v.CourseID)) {
			continue
		}
		if filter.CourseID != "" && v.CourseID != filter.CourseID {
			continue
		}
		if filter.Source != "" && !strings.EqualFold(v.Source, filter.Source) {
			continue
		}
		rows = append(rows, v)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return newerFirst(rows[i].CreatedAt.UnixNano(), rows[j].CreatedAt.UnixNano(), rows[i].ID, rows[j].ID)
	})

	views := make([]VideoView, 0, len(rows))
	for _, v := range rows {
		views = append(views, ShapeVideo(actor, v, g))
	}
	return views
}

// ProjectLessons narrows lessons through their parent course and orders them
// by their position within the course.
func ProjectLessons(actor *models.Actor, candidates []models.Lesson, filter models.LessonFilter, g Graph) []LessonView {
	scope, decision := policy.ListScope(actor, policy.ResourceLesson)
	if !decision.Allowed {
		return []LessonView{}
	}

	rows := make([]models.Lesson, 0, len(candidates))
	for _, l := range candidates {
		if !scope.AdmitsChild(g.course(l.CourseID), g.Enrolled(scope.EnrolledUserID, l.CourseID)) {
			continue
		}
		if filter.CourseID != "" && l.CourseID != filter.CourseID {
			continue
		}
		rows = append(rows, l)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CourseID != rows[j].CourseID {
			return rows[i].CourseID < rows[j].CourseID
		}
		if rows[i].Order != rows[j].Order {
			return rows[i].Order < rows[j].Order
		}
		return rows[i].ID < rows[j].ID
	})

	views := make([]LessonView, 0, len(rows))
	for _, l := range rows {
		views = append(views, LessonView{Lesson: l, Course: courseRef(g.course(l.CourseID))})
	}
	return views
}

// ProjectEnrollments narrows enrollments to the actor's scope.
func ProjectEnrollments(actor *models.Actor, candidates []models.Enrollment, filter models.EnrollmentFilter, g Graph) []EnrollmentView {
	scope, decision := policy.ListScope(actor, policy.ResourceEnrollment)
	if !decision.Allowed {
		return []EnrollmentView{}
	}

	rows := make([]models.Enrollment, 0, len(candidates))
	for _, e := range candidates {
		if !scope.AdmitsEnrollment(e) {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		rows = append(rows, e)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return newerFirst(rows[i].CreatedAt.UnixNano(), rows[j].CreatedAt.UnixNano(), rows[i].ID, rows[j].ID)
	})

	views := make([]EnrollmentView, 0, len(rows))
	for _, e := range rows {
		views = append(views, ShapeEnrollment(actor, e, g))
	}
	return views
}

// ProjectUsers narrows users to the actor's scope. Trainers get nothing.
func ProjectUsers(actor *models.Actor, candidates []models.User, filter models.UserFilter, g Graph) []UserView {
	scope, decision := policy.ListScope(actor, policy.ResourceUser)
	if !decision.Allowed {
		return []UserView{}
	}

	rows := make([]models.User, 0, len(candidates))
	for _, u := range candidates {
		if scope.AdmitsUser(u) && matchUser(u, filter) {
			rows = append(rows, u)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return newerFirst(rows[i].CreatedAt.UnixNano(), rows[j].CreatedAt.UnixNano(), rows[i].ID, rows[j].ID)
	})

	views := make([]UserView, 0, len(rows))
	for _, u := range rows {
		views = append(views, ShapeUser(actor, u, g))
	}
	return views
}

// ShapeCourse projects a single course for the actor's role.
func ShapeCourse(actor *models.Actor, c models.Course, g Graph) CourseView {
	view := CourseView{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Price:        c.Price,
		Status:       c.Status,
		InstructorID: c.InstructorID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if actor == nil {
		return view
	}

	switch actor.Role {
	case models.RoleAdmin:
		view.Instructor = person(g.user(c.InstructorID), true)
		attachCounts(&view, g)
	case models.RoleTrainer:
		if c.OwnedBy(actor.ID) {
			attachCounts(&view, g)
		} else {
			view.Instructor = person(g.user(c.InstructorID), false)
		}
	case models.RoleStudent:
		view.Instructor = person(g.user(c.InstructorID), false)
		if e := g.enrollment(actor.ID, c.ID); e != nil {
			view.Progress = intPtr(e.Progress)
			view.EnrollmentID = e.ID
		}
	}
	return view
}

// ShapeVideo projects a single video for the actor's role.
func ShapeVideo(actor *models.Actor, v models.Video, g Graph) VideoView {
	parent := g.course(v.CourseID)
	view := VideoView{Video: v, Course: courseRef(parent)}
	if actor == nil || parent == nil {
		return view
	}
	switch actor.Role {
	case models.RoleAdmin:
		view.Instructor = person(g.user(parent.InstructorID), true)
	case models.RoleTrainer:
		if !parent.OwnedBy(actor.ID) {
			view.Instructor = person(g.user(parent.InstructorID), false)
		}
	case models.RoleStudent:
		view.Instructor = person(g.user(parent.InstructorID), false)
	}
	return view
}

// ShapeLesson projects a single lesson.
func ShapeLesson(l models.Lesson, g Graph) LessonView {
	return LessonView{Lesson: l, Course: courseRef(g.course(l.CourseID))}
}

// ShapeEnrollment projects a single enrollment for the actor's role.
func ShapeEnrollment(actor *models.Actor, e models.Enrollment, g Graph) EnrollmentView {
	view := EnrollmentView{Enrollment: e, Course: courseRef(g.course(e.CourseID))}
	if actor != nil && actor.Role == models.RoleAdmin {
		view.User = person(g.user(e.UserID), true)
	}
	return view
}

// ShapeUser projects a single user for the actor's role.
func ShapeUser(actor *models.Actor, u models.User, g Graph) UserView {
	view := UserView{User: u}
	if actor == nil || actor.Role != models.RoleAdmin {
		return view
	}
	if stats, ok := g.UserStats[u.ID]; ok {
		view.CourseCount = intPtr(stats.CourseCount)
		view.EnrollmentCount = intPtr(stats.EnrollmentCount)
	} else {
		view.CourseCount = intPtr(0)
		view.EnrollmentCount = intPtr(0)
	}
	return view
}

func attachCounts(view *CourseView, g Graph) {
	stats := g.CourseStats[view.ID]
	view.EnrollmentCount = intPtr(stats.EnrollmentCount)
	view.VideoCount = intPtr(stats.VideoCount)
	view.LessonCount = intPtr(stats.LessonCount)
}

func person(u *models.User, withEmail bool) *PersonView {
	if u == nil {
		return nil
	}
	p := &PersonView{ID: u.ID, Name: u.Name}
	if withEmail {
		p.Email = u.Email
	}
	return p
}

func matchCourse(c models.Course, filter models.CourseFilter) bool {
	if filter.Status != nil && c.Status != *filter.Status {
		return false
	}
	if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		if !strings.Contains(strings.ToLower(c.Title), term) && !strings.Contains(strings.ToLower(c.Description), term) {
			return false
		}
	}
	return true
}

func matchUser(u models.User, filter models.UserFilter) bool {
	if filter.Role != nil && u.Role != *filter.Role {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		if !strings.Contains(strings.ToLower(u.Email), term) && !strings.Contains(strings.ToLower(u.Name), term) {
			return false
		}
	}
	return true
}

// newerFirst orders by creation time descending, breaking ties by id ascending.
func newerFirst(a, b int64, idA, idB string) bool {
	if a != b {
		return a > b
	}
	return idA < idB
}
