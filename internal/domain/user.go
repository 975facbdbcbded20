package domain

import "time"

// Role enumerates the closed set of actor roles.
type Role string

const (
	RoleClient Role = "client"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

// ValidRole reports whether the value is a member of the role enum.
func ValidRole(r Role) bool {
	switch r {
	case RoleClient, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// User is the domain model for anyone who authenticates against the API.
// Role is immutable after registration.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStaff reports whether the user may triage tickets at all.
func (u *User) IsStaff() bool {
	return u.Role == RoleAgent || u.Role == RoleAdmin
}
