package models

import "time"

// School owns a roster of students and the timezone their attendance days are
// computed in.
type School struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	ContactEmail  string    `gorm:"size:255" json:"contact_email,omitempty"`
	Timezone      string    `gorm:"size:64" json:"timezone,omitempty"`
	AbsenceCutoff string    `gorm:"size:5" json:"absence_cutoff,omitempty"`
	Active        bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
