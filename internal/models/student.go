package models

import "time"

// StudentStatus is the lifecycle state of a student. Students are never
// hard-deleted so historical attendance keeps its references.
type StudentStatus string

const (
	StudentStatusActive      StudentStatus = "active"
	StudentStatusDeactivated StudentStatus = "deactivated"
)

// Student is a pupil that checks in by scanning the QR code carrying Code.
type Student struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Code        string        `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name        string        `gorm:"size:255;not null" json:"name"`
	ClassName   string        `gorm:"size:64;index;not null" json:"class_name"`
	ParentEmail string        `gorm:"size:255;not null" json:"parent_email"`
	SchoolID    uint          `gorm:"index;not null" json:"school_id"`
	Status      StudentStatus `gorm:"size:16;index;not null;default:active" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Active reports whether the student may scan.
func (s Student) Active() bool {
	return s.Status == StudentStatusActive
}
