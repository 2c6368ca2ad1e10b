package dto

import "time"

// FeedEvent is pushed to live dashboard subscribers for every check-in and
// checkout.
type FeedEvent struct {
	SchoolID         uint      `json:"school_id"`
	Action           string    `json:"action"`
	StudentID        uint      `json:"student_id"`
	StudentName      string    `json:"student_name"`
	ClassName        string    `json:"class_name"`
	At               time.Time `json:"at"`
	IsLate           bool      `json:"is_late,omitempty"`
	IsEarlyDismissal bool      `json:"is_early_dismissal,omitempty"`
	DurationMinutes  int       `json:"duration_minutes,omitempty"`
}
