package dto

import "github.com/noah-isme/arrivapp-go-api/internal/models"

// StudentSummary is the public view of a student in attendance listings.
type StudentSummary struct {
	ID          uint   `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	ClassName   string `json:"class_name"`
	ParentEmail string `json:"parent_email,omitempty"`
}

// NewStudentSummary converts a student model.
func NewStudentSummary(student models.Student) StudentSummary {
	return StudentSummary{
		ID:          student.ID,
		Code:        student.Code,
		Name:        student.Name,
		ClassName:   student.ClassName,
		ParentEmail: student.ParentEmail,
	}
}

// NewStudentSummaries converts a slice of students, never returning nil.
func NewStudentSummaries(students []models.Student) []StudentSummary {
	out := make([]StudentSummary, 0, len(students))
	for _, student := range students {
		out = append(out, NewStudentSummary(student))
	}
	return out
}
