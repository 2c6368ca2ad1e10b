package dto

import "time"

// ScanRequest is the kiosk payload carrying the code read from the QR.
type ScanRequest struct {
	StudentCode string `json:"student_code" validate:"required,max=64"`
}

// ScanResponse is the flattened kiosk view of a scan outcome. Fields that do
// not apply to the action are omitted.
type ScanResponse struct {
	Action              string     `json:"action"`
	Message             string     `json:"message"`
	StudentCode         string     `json:"student_code"`
	StudentName         string     `json:"student_name,omitempty"`
	ClassName           string     `json:"class_name,omitempty"`
	ScannedAt           time.Time  `json:"scanned_at"`
	CheckinAt           *time.Time `json:"checkin_time,omitempty"`
	CheckoutAt          *time.Time `json:"checkout_time,omitempty"`
	IsLate              *bool      `json:"is_late,omitempty"`
	IsEarlyDismissal    *bool      `json:"is_early_dismissal,omitempty"`
	DurationMinutes     *int       `json:"duration_minutes,omitempty"`
	MinutesAgo          *int       `json:"minutes_ago,omitempty"`
	MinutesSinceCheckin *int       `json:"minutes_since_checkin,omitempty"`
	MinutesRemaining    *int       `json:"minutes_remaining,omitempty"`
	EmailSent           *bool      `json:"email_sent,omitempty"`
}
