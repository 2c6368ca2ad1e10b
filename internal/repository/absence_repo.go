package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// AbsenceRepository stores confirmed absences.
type AbsenceRepository interface {
	CreateIfAbsent(ctx context.Context, notification *models.AbsenceNotification) (bool, error)
	MarkEmail(ctx context.Context, id uint, sent bool, at time.Time) error
	ListBySchoolAndDay(ctx context.Context, schoolID uint, day string) ([]models.AbsenceNotification, error)
}

type absenceRepository struct {
	db *gorm.DB
}

// NewAbsenceRepository constructs an absence repository.
func NewAbsenceRepository(db *gorm.DB) AbsenceRepository {
	return &absenceRepository{db: db}
}

// CreateIfAbsent inserts the notification unless one already exists for the
// same student and day. It reports whether a row was created; concurrent
// callers for the same key see exactly one true.
func (r *absenceRepository) CreateIfAbsent(ctx context.Context, notification *models.AbsenceNotification) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "absence_date"}},
			DoNothing: true,
		}).
		Create(notification)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *absenceRepository) MarkEmail(ctx context.Context, id uint, sent bool, at time.Time) error {
	updates := map[string]interface{}{"email_sent": sent}
	if sent {
		updates["email_sent_at"] = at
	}
	return r.db.WithContext(ctx).
		Model(&models.AbsenceNotification{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *absenceRepository) ListBySchoolAndDay(ctx context.Context, schoolID uint, day string) ([]models.AbsenceNotification, error) {
	var notifications []models.AbsenceNotification
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND absence_date = ?", schoolID, day).
		Order("student_id ASC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}
