package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/repository"
)

// memStore backs the repository fakes with maps so services see one
// consistent dataset across collaborators.
type memStore struct {
	mu          sync.Mutex
	seq         int
	clock       time.Time
	users       map[string]models.User
	courses     map[string]models.Course
	videos      map[string]models.Video
	lessons     map[string]models.Lesson
	enrollments map[string]models.Enrollment
	tokens      map[string]*models.RefreshToken
	audits      []*models.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		clock:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:       map[string]models.User{},
		courses:     map[string]models.Course{},
		videos:      map[string]models.Video{},
		lessons:     map[string]models.Lesson{},
		enrollments: map[string]models.Enrollment{},
		tokens:      map[string]*models.RefreshToken{},
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addUser(id, name string, role models.UserRole) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{ID: id, Name: name, Email: id + "@example.com", Role: role, CreatedAt: s.tick()}
	s.users[id] = u
	return u
}

func (s *memStore) addCourse(id, instructorID string, status models.CourseStatus) models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Course{ID: id, Title: "Course " + id, Description: "about " + id, Status: status, InstructorID: instructorID, CreatedAt: s.tick()}
	s.courses[id] = c
	return c
}

func (s *memStore) addEnrollment(id, userID, courseID string, progress int) models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := models.Enrollment{ID: id, UserID: userID, CourseID: courseID, Progress: progress, CreatedAt: s.tick()}
	s.enrollments[id] = e
	return e
}

func (s *memStore) addVideo(id, courseID string) models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := models.Video{ID: id, CourseID: courseID, Title: "Video " + id, URL: "https://videos.example.com/" + id, Source: "youtube", CreatedAt: s.tick()}
	s.videos[id] = v
	return v
}

func (s *memStore) addLesson(id, courseID string, order int) models.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := models.Lesson{ID: id, CourseID: courseID, Title: "Lesson " + id, Order: order, CreatedAt: s.tick()}
	s.lessons[id] = l
	return l
}

func (s *memStore) enrolled(userID, courseID string) bool {
	for _, e := range s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return true
		}
	}
	return false
}

type fakeCourseRepo struct {
	s         *memStore
	deleteErr error
}

func (r *fakeCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r *fakeCourseRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Course{}
	for _, id := range ids {
		if c, ok := r.s.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCourseRepo) List(ctx context.Context, filter models.CourseFilter, scope policy.Scope) ([]models.Course, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Course{}
	for _, c := range r.s.courses {
		if !scope.AdmitsCourse(c) {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeCourseRepo) Stats(ctx context.Context, ids []string) (map[string]models.CourseStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]models.CourseStats{}
	for _, id := range ids {
		st := models.CourseStats{CourseID: id}
		for _, e := range r.s.enrollments {
			if e.CourseID == id {
				st.EnrollmentCount++
			}
		}
		for _, v := range r.s.videos {
			if v.CourseID == id {
				st.VideoCount++
			}
		}
		for _, l := range r.s.lessons {
			if l.CourseID == id {
				st.LessonCount++
			}
		}
		out[id] = st
	}
	return out, nil
}

func (r *fakeCourseRepo) Create(ctx context.Context, course *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[course.InstructorID]; !ok {
		return repository.ErrInvalidReference
	}
	course.ID = r.s.nextID("course")
	course.CreatedAt = r.s.tick()
	course.UpdatedAt = course.CreatedAt
	r.s.courses[course.ID] = *course
	return nil
}

func (r *fakeCourseRepo) Update(ctx context.Context, course *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	course.UpdatedAt = r.s.tick()
	r.s.courses[course.ID] = *course
	return nil
}

func (r *fakeCourseRepo) DeleteCascade(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[id]; !ok {
		return sql.ErrNoRows
	}
	for k, l := range r.s.lessons {
		if l.CourseID == id {
			delete(r.s.lessons, k)
		}
	}
	for k, v := range r.s.videos {
		if v.CourseID == id {
			delete(r.s.videos, k)
		}
	}
	for k, e := range r.s.enrollments {
		if e.CourseID == id {
			delete(r.s.enrollments, k)
		}
	}
	delete(r.s.courses, id)
	return nil
}

type fakeUserRepo struct {
	s *memStore
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (r *fakeUserRepo) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) List(ctx context.Context, filter models.UserFilter, scope policy.Scope) ([]models.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.User{}
	for _, u := range r.s.users {
		if !scope.AdmitsUser(u) {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeUserRepo) Stats(ctx context.Context, ids []string) (map[string]models.UserStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]models.UserStats{}
	for _, id := range ids {
		st := models.UserStats{UserID: id}
		for _, c := range r.s.courses {
			if c.InstructorID == id {
				st.CourseCount++
			}
		}
		for _, e := range r.s.enrollments {
			if e.UserID == id {
				st.EnrollmentCount++
			}
		}
		out[id] = st
	}
	return out, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.nextID("user")
	user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	r.s.users[id] = u
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	r.s.users[id] = u
	return nil
}

func (r *fakeUserRepo) DeleteCascade(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.courses {
		if c.InstructorID == id {
			return repository.ErrHasDependents
		}
	}
	if _, ok := r.s.users[id]; !ok {
		return sql.ErrNoRows
	}
	for k, e := range r.s.enrollments {
		if e.UserID == id {
			delete(r.s.enrollments, k)
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[token.Token] = token
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (r *fakeUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rt := range r.s.tokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *fakeUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	for _, rt := range r.s.tokens {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			rt.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, log)
	return nil
}

type fakeEnrollmentRepo struct {
	s *memStore
}

func (r *fakeEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (r *fakeEnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Enrollment{}
	for _, e := range r.s.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter, scope policy.Scope) ([]models.Enrollment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Enrollment{}
	for _, e := range r.s.enrollments {
		if !scope.AdmitsEnrollment(e) {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeEnrollmentRepo) Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.RosterEntry{}
	for _, e := range r.s.enrollments {
		if e.CourseID != courseID {
			continue
		}
		u := r.s.users[e.UserID]
		out = append(out, models.RosterEntry{EnrollmentID: e.ID, UserID: u.ID, Name: u.Name, Email: u.Email, Progress: e.Progress, EnrolledAt: e.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentID < out[j].EnrollmentID })
	return out, nil
}

func (r *fakeEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.enrolled(enrollment.UserID, enrollment.CourseID) {
		return repository.ErrDuplicate
	}
	enrollment.ID = r.s.nextID("enrollment")
	enrollment.CreatedAt = r.s.tick()
	enrollment.UpdatedAt = enrollment.CreatedAt
	r.s.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r *fakeEnrollmentRepo) UpdateProgress(ctx context.Context, id string, progress int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Progress = progress
	r.s.enrollments[id] = e
	return nil
}

func (r *fakeEnrollmentRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.enrollments, id)
	return nil
}

type fakeVideoRepo struct {
	s *memStore
}

func (r *fakeVideoRepo) FindByID(ctx context.Context, id string) (*models.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &v, nil
}

func (r *fakeVideoRepo) List(ctx context.Context, filter models.VideoFilter, scope policy.Scope) ([]models.Video, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Video{}
	for _, v := range r.s.videos {
		parent, ok := r.s.courses[v.CourseID]
		if !ok || !scope.AdmitsChild(&parent, r.s.enrolled(scope.EnrolledUserID, v.CourseID)) {
			continue
		}
		if filter.CourseID != "" && v.CourseID != filter.CourseID {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeVideoRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Video{}
	for _, v := range r.s.videos {
		if v.CourseID == courseID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVideoRepo) Create(ctx context.Context, video *models.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	video.ID = r.s.nextID("video")
	video.CreatedAt = r.s.tick()
	r.s.videos[video.ID] = *video
	return nil
}

func (r *fakeVideoRepo) Update(ctx context.Context, video *models.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.videos[video.ID]; !ok {
		return sql.ErrNoRows
	}
	r.s.videos[video.ID] = *video
	return nil
}

func (r *fakeVideoRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.videos[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.videos, id)
	return nil
}

type fakeLessonRepo struct {
	s *memStore
}

func (r *fakeLessonRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (r *fakeLessonRepo) List(ctx context.Context, filter models.LessonFilter, scope policy.Scope) ([]models.Lesson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Lesson{}
	for _, l := range r.s.lessons {
		parent, ok := r.s.courses[l.CourseID]
		if !ok || !scope.AdmitsChild(&parent, r.s.enrolled(scope.EnrolledUserID, l.CourseID)) {
			continue
		}
		if filter.CourseID != "" && l.CourseID != filter.CourseID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeLessonRepo) NextOrder(ctx context.Context, courseID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, l := range r.s.lessons {
		if l.CourseID == courseID && l.Order > max {
			max = l.Order
		}
	}
	return max + 1, nil
}

func (r *fakeLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.lessons {
		if l.CourseID == lesson.CourseID && l.Order == lesson.Order {
			return repository.ErrDuplicate
		}
	}
	lesson.ID = r.s.nextID("lesson")
	lesson.CreatedAt = r.s.tick()
	r.s.lessons[lesson.ID] = *lesson
	return nil
}

func (r *fakeLessonRepo) Update(ctx context.Context, lesson *models.Lesson) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.lessons {
		if l.ID != lesson.ID && l.CourseID == lesson.CourseID && l.Order == lesson.Order {
			return repository.ErrDuplicate
		}
	}
	r.s.lessons[lesson.ID] = *lesson
	return nil
}

func (r *fakeLessonRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lessons[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.s.lessons, id)
	return nil
}

func admin(id string) *models.Actor   { return &models.Actor{ID: id, Role: models.RoleAdmin} }
func trainer(id string) *models.Actor { return &models.Actor{ID: id, Role: models.RoleTrainer} }
func student(id string) *models.Actor { return &models.Actor{ID: id, Role: models.RoleStudent} }
