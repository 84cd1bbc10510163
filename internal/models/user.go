// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the portal role assigned to a user account. It is set server-side
// at registration time and never inferred from the email address.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// AssignableRoles are the roles a client may request at registration.
// Admin accounts are created only through seeding or operator tooling.
var AssignableRoles = []Role{RoleStudent, RoleTeacher}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents a portal account together with its profile document.
// Profile fields are optional; an account created without a profile write
// is valid and reads back with zero values.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Email       string         `gorm:"unique;not null" json:"email"`
	Password    string         `gorm:"not null" json:"-"`
	DisplayName string         `gorm:"index" json:"display_name"`
	PhotoURL    string         `json:"photo_url"`
	Role        Role           `gorm:"type:varchar(16);not null;default:'student'" json:"role"`
	University  string         `json:"university,omitempty"`
	Faculty     string         `json:"faculty,omitempty"`
	Year        string         `json:"year,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	About       string         `json:"about,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Session is the authenticated-identity slice held by the session store and
// persisted to device storage so it survives restarts.
type Session struct {
	User            User      `json:"user"`
	Token           string    `json:"token"`
	IsAuthenticated bool      `json:"is_authenticated"`
	CreatedAt       time.Time `json:"created_at"`
}

// ProfileUpdate carries the optional fields of a profile edit. Nil pointers
// mean "leave unchanged"; empty strings overwrite.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	University  *string `json:"university,omitempty"`
	Faculty     *string `json:"faculty,omitempty"`
	Year        *string `json:"year,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	About       *string `json:"about,omitempty"`
}
