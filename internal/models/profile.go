package models

import (
	"slices"
	"strings"
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Roles is the closed set of roles a profile may carry.
var Roles = []UserRole{RoleStudent, RoleTeacher, RoleAdmin}

// ConsoleRoles may enter the admin console.
var ConsoleRoles = []UserRole{RoleTeacher, RoleAdmin}

func (r UserRole) IsValid() bool {
	return slices.Contains(Roles, r)
}

// ParseUserRole accepts the stored role values case-insensitively.
func ParseUserRole(value string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", false
	}
	return role, true
}

// Profile is the application record of a user. ID equals the identity id
// issued by the auth provider.
type Profile struct {
	ID        string    `json:"id" gorm:"primaryKey;size:255"`
	FullName  string    `json:"full_name" gorm:"size:255"`
	Role      UserRole  `json:"role" gorm:"size:20;not null;default:student;index"`
	AvatarURL *string   `json:"avatar_url,omitempty" gorm:"size:500"`
	Bio       *string   `json:"bio,omitempty" gorm:"type:text"`
	MentorID  *string   `json:"mentor_id,omitempty" gorm:"size:255;index"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func (Profile) TableName() string {
	return "profiles"
}

// CanAccessConsole reports whether the profile role is allowed into the console.
func (p *Profile) CanAccessConsole() bool {
	return p != nil && slices.Contains(ConsoleRoles, p.Role)
}

// DisplayName falls back to "Unknown User" for profiles without a name.
func (p *Profile) DisplayName() string {
	if p == nil || strings.TrimSpace(p.FullName) == "" {
		return "Unknown User"
	}
	return p.FullName
}

// EffectiveRole falls back to student for missing profiles.
func (p *Profile) EffectiveRole() UserRole {
	if p == nil || !p.Role.IsValid() {
		return RoleStudent
	}
	return p.Role
}
