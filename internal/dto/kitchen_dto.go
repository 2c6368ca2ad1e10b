package dto

import (
	"time"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// KitchenClassCount is one class row of a meal-planning snapshot. Meals are
// planned for the students already present at capture time.
type KitchenClassCount struct {
	ClassName       string `json:"class_name"`
	TotalStudents   int    `json:"total_students"`
	Present         int    `json:"present"`
	Absent          int    `json:"absent"`
	WillArriveLater int    `json:"will_arrive_later"`
	ExpectedMeals   int    `json:"expected_meals"`
	WithAllergies   int    `json:"with_allergies"`
	WithSpecialDiet int    `json:"with_special_diet"`
}

// KitchenDayResponse aggregates the snapshot rows of one school day.
type KitchenDayResponse struct {
	SchoolID      uint                `json:"school_id"`
	Date          string              `json:"date"`
	CapturedAt    *time.Time          `json:"captured_at,omitempty"`
	Classes       []KitchenClassCount `json:"classes"`
	TotalStudents int                 `json:"total_students"`
	Present       int                 `json:"present"`
	Absent        int                 `json:"absent"`
	ExpectedMeals int                 `json:"expected_meals"`
}

// NewKitchenDayResponse totals snapshot rows of a single day.
func NewKitchenDayResponse(schoolID uint, date string, snapshots []models.KitchenSnapshot) KitchenDayResponse {
	resp := KitchenDayResponse{SchoolID: schoolID, Date: date, Classes: make([]KitchenClassCount, 0, len(snapshots))}
	for _, snapshot := range snapshots {
		expected := snapshot.Present
		resp.Classes = append(resp.Classes, KitchenClassCount{
			ClassName:       snapshot.ClassName,
			TotalStudents:   snapshot.TotalStudents,
			Present:         snapshot.Present,
			Absent:          snapshot.Absent,
			WillArriveLater: snapshot.WillArriveLater,
			ExpectedMeals:   expected,
			WithAllergies:   snapshot.WithAllergies,
			WithSpecialDiet: snapshot.WithSpecialDiet,
		})
		resp.TotalStudents += snapshot.TotalStudents
		resp.Present += snapshot.Present
		resp.Absent += snapshot.Absent
		resp.ExpectedMeals += expected
		captured := snapshot.CapturedAt
		if resp.CapturedAt == nil || captured.After(*resp.CapturedAt) {
			resp.CapturedAt = &captured
		}
	}
	return resp
}

// KitchenHistoryResponse lists daily snapshots, newest first.
type KitchenHistoryResponse struct {
	SchoolID uint                 `json:"school_id"`
	Days     int                  `json:"days"`
	History  []KitchenDayResponse `json:"history"`
}

// DietaryCount is how many students share one allergy or diet.
type DietaryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DietarySummaryResponse summarises the dietary needs of a school's roster.
type DietarySummaryResponse struct {
	SchoolID            uint           `json:"school_id"`
	TotalStudents       int            `json:"total_students"`
	WithAllergies       int            `json:"with_allergies"`
	WithSpecialDiet     int            `json:"with_special_diet"`
	AllergyPercentage   float64        `json:"allergy_percentage"`
	SpecialDietPercent  float64        `json:"special_diet_percentage"`
	MostCommonAllergies []DietaryCount `json:"most_common_allergies"`
	MostCommonDiets     []DietaryCount `json:"most_common_diets"`
}
