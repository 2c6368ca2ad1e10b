package models

// All returns every model the service migrates.
func All() []interface{} {
	return []interface{}{
		&School{},
		&Student{},
		&User{},
		&AttendanceRecord{},
		&AbsenceNotification{},
		&Justification{},
		&StudentDietaryNeeds{},
		&KitchenSnapshot{},
	}
}
