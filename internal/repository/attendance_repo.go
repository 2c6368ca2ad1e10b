package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// AttendanceRepository persists the per-student, per-day attendance records the
// scan state machine reads and writes.
type AttendanceRepository interface {
	FindByStudentAndDay(ctx context.Context, studentID uint, day string) (*models.AttendanceRecord, error)
	FindOpen(ctx context.Context, studentID uint, day string) (*models.AttendanceRecord, error)
	Create(ctx context.Context, record *models.AttendanceRecord) error
	SetCheckout(ctx context.Context, id uint, at time.Time) (bool, error)
	ListBySchoolAndDay(ctx context.Context, schoolID uint, day string) ([]models.AttendanceRecord, error)
	MarkCheckinEmail(ctx context.Context, id uint, sent bool) error
	MarkCheckoutEmail(ctx context.Context, id uint, sent bool) error
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository constructs a repository backed by GORM.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

// FindByStudentAndDay returns nil when the student has no record for day.
func (r *attendanceRepository) FindByStudentAndDay(ctx context.Context, studentID uint, day string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND attendance_date = ?", studentID, day).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindOpen returns the record only while checkout is still unset.
func (r *attendanceRepository) FindOpen(ctx context.Context, studentID uint, day string) (*models.AttendanceRecord, error) {
	record, err := r.FindByStudentAndDay(ctx, studentID, day)
	if err != nil || record == nil {
		return nil, err
	}
	if record.CheckoutAt != nil {
		return nil, nil
	}
	return record, nil
}

// Create inserts a new record. Losing the (student, day) uniqueness race
// returns ErrConflict.
func (r *attendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// SetCheckout stamps checkout only if it is still unset and reports whether
// this call performed the write.
func (r *attendanceRepository) SetCheckout(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("id = ? AND checkout_at IS NULL", id).
		Update("checkout_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *attendanceRepository) ListBySchoolAndDay(ctx context.Context, schoolID uint, day string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("school_id = ? AND attendance_date = ?", schoolID, day).
		Order("checkin_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *attendanceRepository) MarkCheckinEmail(ctx context.Context, id uint, sent bool) error {
	return r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("id = ?", id).
		Update("checkin_email_sent", sent).Error
}

func (r *attendanceRepository) MarkCheckoutEmail(ctx context.Context, id uint, sent bool) error {
	return r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("id = ?", id).
		Update("checkout_email_sent", sent).Error
}
