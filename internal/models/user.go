package models

import "time"

// UserRole is the coarse role carried in access tokens.
type UserRole string

const (
	RoleStaff   UserRole = "STAFF"
	RoleStudent UserRole = "STUDENT"
)

// User represents a learner or staff account.
type User struct {
	ID         int64      `db:"id" json:"id"`
	Username   string     `db:"username" json:"username"`
	Email      string     `db:"email" json:"email"`
	IsStaff    bool       `db:"is_staff" json:"is_staff"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	DateJoined time.Time  `db:"date_joined" json:"date_joined"`
	LastLogin  *time.Time `db:"last_login" json:"last_login,omitempty"`
}
