package models

import (
	"fmt"
	"strings"
	"time"
)

// UserRole represents the closed set of roles known to the policy engine.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTrainer UserRole = "TRAINER"
	RoleStudent UserRole = "STUDENT"
)

// Roles lists every valid role.
var Roles = []UserRole{RoleAdmin, RoleTrainer, RoleStudent}

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTrainer, RoleStudent:
		return true
	}
	return false
}

// CanInstruct reports whether users with this role may own courses.
func (r UserRole) CanInstruct() bool {
	return r == RoleAdmin || r == RoleTrainer
}

// ParseRole converts raw input into a UserRole, case-insensitively.
func ParseRole(raw string) (UserRole, error) {
	role := UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserStats aggregates per-user relationship counts.
type UserStats struct {
	UserID          string `db:"user_id" json:"-"`
	CourseCount     int    `db:"course_count" json:"course_count"`
	EnrollmentCount int    `db:"enrollment_count" json:"enrollment_count"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Search   string
	Page     int
	PageSize int
}

// Actor is the authenticated identity performing an action.
type Actor struct {
	ID   string
	Role UserRole
}

// NewActor builds an actor from a persisted user.
func NewActor(user *User) *Actor {
	if user == nil {
		return nil
	}
	return &Actor{ID: user.ID, Role: user.Role}
}
