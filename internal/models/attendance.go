package models

import "time"

// AttendanceRecord is a student's single check-in/check-out pair for one day.
// AttendanceDate is the YYYY-MM-DD civil date in the school's timezone; the
// (student_id, attendance_date) index is what keeps it unique under
// concurrent scans.
type AttendanceRecord struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	StudentID         uint       `gorm:"not null;uniqueIndex:idx_attendance_student_day,priority:1" json:"student_id"`
	AttendanceDate    string     `gorm:"size:10;not null;uniqueIndex:idx_attendance_student_day,priority:2;index:idx_attendance_school_day,priority:2" json:"attendance_date"`
	SchoolID          uint       `gorm:"not null;index:idx_attendance_school_day,priority:1" json:"school_id"`
	CheckinAt         time.Time  `gorm:"not null" json:"checkin_at"`
	CheckoutAt        *time.Time `json:"checkout_at,omitempty"`
	IsLate            bool       `gorm:"not null;default:false" json:"is_late"`
	CheckinEmailSent  bool       `gorm:"not null;default:false" json:"checkin_email_sent"`
	CheckoutEmailSent bool       `gorm:"not null;default:false" json:"checkout_email_sent"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Student           *Student   `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// AbsenceNotification marks a confirmed absence found by the absence check.
type AbsenceNotification struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	StudentID   uint       `gorm:"not null;uniqueIndex:idx_absence_student_day,priority:1" json:"student_id"`
	AbsenceDate string     `gorm:"size:10;not null;uniqueIndex:idx_absence_student_day,priority:2;index:idx_absence_school_day,priority:2" json:"absence_date"`
	SchoolID    uint       `gorm:"not null;index:idx_absence_school_day,priority:1" json:"school_id"`
	EmailSent   bool       `gorm:"not null;default:false" json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
