package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// JustificationFilter narrows justification listings. Zero values are ignored.
type JustificationFilter struct {
	SchoolID  uint
	StudentID uint
	Status    models.JustificationStatus
	From      string
	To        string
}

// JustificationRepository stores parent-submitted justifications.
type JustificationRepository interface {
	Create(ctx context.Context, justification *models.Justification) error
	GetByID(ctx context.Context, id uint) (models.Justification, error)
	List(ctx context.Context, filter JustificationFilter) ([]models.Justification, error)
	Review(ctx context.Context, id uint, status models.JustificationStatus, reviewerID uint, notes string, at time.Time) (bool, error)
	ApprovedStudentIDs(ctx context.Context, studentIDs []uint, kind models.JustificationType, day string) ([]uint, error)
	Delete(ctx context.Context, id uint) error
}

type justificationRepository struct {
	db *gorm.DB
}

// NewJustificationRepository constructs a justification repository.
func NewJustificationRepository(db *gorm.DB) JustificationRepository {
	return &justificationRepository{db: db}
}

func (r *justificationRepository) Create(ctx context.Context, justification *models.Justification) error {
	return r.db.WithContext(ctx).Create(justification).Error
}

func (r *justificationRepository) GetByID(ctx context.Context, id uint) (models.Justification, error) {
	var justification models.Justification
	if err := r.db.WithContext(ctx).Preload("Student").First(&justification, id).Error; err != nil {
		return models.Justification{}, err
	}
	return justification, nil
}

func (r *justificationRepository) List(ctx context.Context, filter JustificationFilter) ([]models.Justification, error) {
	query := r.db.WithContext(ctx).Model(&models.Justification{}).Preload("Student")
	if filter.SchoolID > 0 {
		query = query.Where("school_id = ?", filter.SchoolID)
	}
	if filter.StudentID > 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != "" {
		query = query.Where("date >= ?", filter.From)
	}
	if filter.To != "" {
		query = query.Where("date <= ?", filter.To)
	}

	var justifications []models.Justification
	if err := query.Order("created_at DESC").Find(&justifications).Error; err != nil {
		return nil, err
	}
	return justifications, nil
}

// Review moves a pending justification to status. It reports false when the
// justification was no longer pending.
func (r *justificationRepository) Review(ctx context.Context, id uint, status models.JustificationStatus, reviewerID uint, notes string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Justification{}).
		Where("id = ? AND status = ?", id, models.JustificationPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
			"notes":       notes,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *justificationRepository) ApprovedStudentIDs(ctx context.Context, studentIDs []uint, kind models.JustificationType, day string) ([]uint, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}

	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Justification{}).
		Distinct("student_id").
		Where("student_id IN ? AND type = ? AND status = ? AND date = ?", studentIDs, kind, models.JustificationApproved, day).
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *justificationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Justification{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
