package models

import (
	"time"

	"gorm.io/datatypes"
)

// StudentDietaryNeeds tracks allergies and special diets for meal planning.
type StudentDietaryNeeds struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	StudentID    uint                        `gorm:"uniqueIndex;not null" json:"student_id"`
	Allergies    datatypes.JSONSlice[string] `gorm:"type:json" json:"allergies"`
	SpecialDiets datatypes.JSONSlice[string] `gorm:"type:json" json:"special_diets"`
	Notes        string                      `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// HasAllergies reports whether any allergy is recorded.
func (d StudentDietaryNeeds) HasAllergies() bool {
	return len(d.Allergies) > 0
}

// HasSpecialDiet reports whether any special diet is recorded.
func (d StudentDietaryNeeds) HasSpecialDiet() bool {
	return len(d.SpecialDiets) > 0
}

// KitchenSnapshot is the per-class head count captured for meal planning.
type KitchenSnapshot struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SchoolID        uint      `gorm:"not null;uniqueIndex:idx_kitchen_school_day_class,priority:1" json:"school_id"`
	SnapshotDate    string    `gorm:"size:10;not null;uniqueIndex:idx_kitchen_school_day_class,priority:2" json:"snapshot_date"`
	ClassName       string    `gorm:"size:64;not null;uniqueIndex:idx_kitchen_school_day_class,priority:3" json:"class_name"`
	TotalStudents   int       `gorm:"not null;default:0" json:"total_students"`
	Present         int       `gorm:"not null;default:0" json:"present"`
	Absent          int       `gorm:"not null;default:0" json:"absent"`
	WillArriveLater int       `gorm:"not null;default:0" json:"will_arrive_later"`
	WithAllergies   int       `gorm:"not null;default:0" json:"with_allergies"`
	WithSpecialDiet int       `gorm:"not null;default:0" json:"with_special_diet"`
	CapturedAt      time.Time `gorm:"not null" json:"captured_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
