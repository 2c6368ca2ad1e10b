package dto

import (
	"time"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// ClassificationResponse partitions a school's roster for one day.
// Before the cutoff Absent and Excused are empty and students without a
// record are listed as Pending.
type ClassificationResponse struct {
	SchoolID     uint             `json:"school_id"`
	Date         string           `json:"date"`
	CutoffPassed bool             `json:"cutoff_passed"`
	Present      []StudentSummary `json:"present"`
	Late         []StudentSummary `json:"late"`
	Absent       []StudentSummary `json:"absent"`
	Excused      []StudentSummary `json:"excused"`
	Pending      []StudentSummary `json:"pending"`
	NewlyAbsent  int              `json:"newly_absent"`
}

// AttendanceLog is one student's check-in row for a day.
type AttendanceLog struct {
	RecordID          uint       `json:"record_id"`
	StudentID         uint       `json:"student_id"`
	StudentCode       string     `json:"student_code"`
	StudentName       string     `json:"student_name"`
	ClassName         string     `json:"class_name"`
	CheckinAt         time.Time  `json:"checkin_time"`
	CheckoutAt        *time.Time `json:"checkout_time,omitempty"`
	IsLate            bool       `json:"is_late"`
	CheckinEmailSent  bool       `json:"checkin_email_sent"`
	CheckoutEmailSent bool       `json:"checkout_email_sent"`
}

// NewAttendanceLog converts a record; times are rendered in loc.
func NewAttendanceLog(record models.AttendanceRecord, loc *time.Location) AttendanceLog {
	log := AttendanceLog{
		RecordID:          record.ID,
		StudentID:         record.StudentID,
		CheckinAt:         record.CheckinAt.In(loc),
		IsLate:            record.IsLate,
		CheckinEmailSent:  record.CheckinEmailSent,
		CheckoutEmailSent: record.CheckoutEmailSent,
	}
	if record.CheckoutAt != nil {
		checkout := record.CheckoutAt.In(loc)
		log.CheckoutAt = &checkout
	}
	if record.Student != nil {
		log.StudentCode = record.Student.Code
		log.StudentName = record.Student.Name
		log.ClassName = record.Student.ClassName
	}
	return log
}

// AbsentEntry is an absent student with the state of the parent notice.
type AbsentEntry struct {
	StudentSummary
	Excused     bool       `json:"excused"`
	EmailSent   bool       `json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
}

// DashboardSummary holds the day's counters.
type DashboardSummary struct {
	TotalStudents int  `json:"total_students"`
	CheckedIn     int  `json:"checked_in"`
	CheckedOut    int  `json:"checked_out"`
	Late          int  `json:"late"`
	Absent        int  `json:"absent"`
	Excused       int  `json:"excused"`
	Pending       int  `json:"pending"`
	CutoffPassed  bool `json:"cutoff_passed"`
}

// DashboardResponse is the staff overview of a school day.
type DashboardResponse struct {
	SchoolID  uint             `json:"school_id"`
	Date      string           `json:"date"`
	ClassName string           `json:"class_name,omitempty"`
	Summary   DashboardSummary `json:"summary"`
	Checkins  []AttendanceLog  `json:"checkins"`
	Late      []AttendanceLog  `json:"late_students"`
	Absent    []AbsentEntry    `json:"absent_students"`
}

// ClassListResponse lists the class labels of a school's active roster.
type ClassListResponse struct {
	SchoolID uint     `json:"school_id"`
	Classes  []string `json:"classes"`
}
