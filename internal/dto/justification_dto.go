package dto

import (
	"time"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// JustificationCreateRequest is a parent's submission.
type JustificationCreateRequest struct {
	StudentID   uint   `json:"student_id" validate:"required"`
	Type        string `json:"justification_type" validate:"required,oneof=absence tardiness early_dismissal"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason      string `json:"reason" validate:"required,max=2000"`
	SubmittedBy string `json:"submitted_by" validate:"required,email"`
}

// JustificationReviewRequest is a staff decision on a pending justification.
type JustificationReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// JustificationListQuery filters the staff listing.
type JustificationListQuery struct {
	SchoolID  uint
	StudentID uint   `query:"student_id"`
	Status    string `query:"status" validate:"omitempty,oneof=pending approved rejected"`
	From      string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// JustificationResponse is the API view of a justification.
type JustificationResponse struct {
	ID          uint       `json:"id"`
	StudentID   uint       `json:"student_id"`
	StudentName string     `json:"student_name,omitempty"`
	ClassName   string     `json:"class_name,omitempty"`
	SchoolID    uint       `json:"school_id"`
	Type        string     `json:"justification_type"`
	Date        string     `json:"date"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	SubmittedBy string     `json:"submitted_by"`
	ReviewedBy  *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewJustificationResponse converts a justification model.
func NewJustificationResponse(justification models.Justification) JustificationResponse {
	resp := JustificationResponse{
		ID:          justification.ID,
		StudentID:   justification.StudentID,
		SchoolID:    justification.SchoolID,
		Type:        string(justification.Type),
		Date:        justification.Date,
		Reason:      justification.Reason,
		Status:      string(justification.Status),
		SubmittedBy: justification.SubmittedBy,
		ReviewedBy:  justification.ReviewedBy,
		ReviewedAt:  justification.ReviewedAt,
		Notes:       justification.Notes,
		CreatedAt:   justification.CreatedAt,
	}
	if justification.Student != nil {
		resp.StudentName = justification.Student.Name
		resp.ClassName = justification.Student.ClassName
	}
	return resp
}

// NewJustificationResponses converts a slice of justifications.
func NewJustificationResponses(justifications []models.Justification) []JustificationResponse {
	out := make([]JustificationResponse, 0, len(justifications))
	for _, justification := range justifications {
		out = append(out, NewJustificationResponse(justification))
	}
	return out
}

// ParentStudent is the minimal student view returned to a parent lookup.
type ParentStudent struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
}

// ParentStudentsResponse lists the students registered under a parent address.
type ParentStudentsResponse struct {
	Email    string          `json:"email"`
	Students []ParentStudent `json:"students"`
}

// NewParentStudentsResponse converts the students found for email.
func NewParentStudentsResponse(email string, students []models.Student) ParentStudentsResponse {
	resp := ParentStudentsResponse{Email: email, Students: make([]ParentStudent, 0, len(students))}
	for _, student := range students {
		resp.Students = append(resp.Students, ParentStudent{ID: student.ID, Name: student.Name, ClassName: student.ClassName})
	}
	return resp
}
