package models

import "time"

// Staff roles.
const (
	RoleAdmin    = "admin"
	RoleDirector = "director"
	RoleTeacher  = "teacher"
)

// User is a staff member. Admins receive the absence summaries of every school.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Role      string    `gorm:"size:16;index;not null" json:"role"`
	SchoolID  *uint     `gorm:"index" json:"school_id,omitempty"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
