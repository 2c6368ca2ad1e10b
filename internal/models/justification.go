package models

import "time"

// JustificationType names what a justification excuses.
type JustificationType string

const (
	JustificationAbsence        JustificationType = "absence"
	JustificationTardiness      JustificationType = "tardiness"
	JustificationEarlyDismissal JustificationType = "early_dismissal"
)

// JustificationStatus is the review lifecycle: pending, then approved or rejected.
type JustificationStatus string

const (
	JustificationPending  JustificationStatus = "pending"
	JustificationApproved JustificationStatus = "approved"
	JustificationRejected JustificationStatus = "rejected"
)

// Justification is a parent's claim that an absence, late arrival or early
// dismissal on Date was excused.
type Justification struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	StudentID   uint                `gorm:"index;not null" json:"student_id"`
	SchoolID    uint                `gorm:"index;not null" json:"school_id"`
	Type        JustificationType   `gorm:"size:32;not null" json:"type"`
	Date        string              `gorm:"size:10;index;not null" json:"date"`
	Reason      string              `gorm:"type:text;not null" json:"reason"`
	Status      JustificationStatus `gorm:"size:16;index;not null;default:pending" json:"status"`
	SubmittedBy string              `gorm:"size:255;not null" json:"submitted_by"`
	ReviewedBy  *uint               `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time          `json:"reviewed_at,omitempty"`
	Notes       string              `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Student     *Student            `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
