package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// KitchenRepository stores meal-planning snapshots and dietary needs.
type KitchenRepository interface {
	UpsertSnapshots(ctx context.Context, snapshots []models.KitchenSnapshot) error
	ListSnapshots(ctx context.Context, schoolID uint, day string) ([]models.KitchenSnapshot, error)
	ListSnapshotsSince(ctx context.Context, schoolID uint, fromDay string) ([]models.KitchenSnapshot, error)
	DietaryNeeds(ctx context.Context, studentIDs []uint) ([]models.StudentDietaryNeeds, error)
}

type kitchenRepository struct {
	db *gorm.DB
}

// NewKitchenRepository constructs a kitchen repository.
func NewKitchenRepository(db *gorm.DB) KitchenRepository {
	return &kitchenRepository{db: db}
}

// UpsertSnapshots replaces the counts of any snapshot already captured for the
// same school, day and class.
func (r *kitchenRepository) UpsertSnapshots(ctx context.Context, snapshots []models.KitchenSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "school_id"}, {Name: "snapshot_date"}, {Name: "class_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_students",
				"present",
				"absent",
				"will_arrive_later",
				"with_allergies",
				"with_special_diet",
				"captured_at",
				"updated_at",
			}),
		}).
		Create(&snapshots).Error
}

func (r *kitchenRepository) ListSnapshots(ctx context.Context, schoolID uint, day string) ([]models.KitchenSnapshot, error) {
	var snapshots []models.KitchenSnapshot
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND snapshot_date = ?", schoolID, day).
		Order("class_name ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *kitchenRepository) ListSnapshotsSince(ctx context.Context, schoolID uint, fromDay string) ([]models.KitchenSnapshot, error) {
	var snapshots []models.KitchenSnapshot
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND snapshot_date >= ?", schoolID, fromDay).
		Order("snapshot_date DESC, class_name ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *kitchenRepository) DietaryNeeds(ctx context.Context, studentIDs []uint) ([]models.StudentDietaryNeeds, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var needs []models.StudentDietaryNeeds
	if err := r.db.WithContext(ctx).Where("student_id IN ?", studentIDs).Find(&needs).Error; err != nil {
		return nil, err
	}
	return needs, nil
}
