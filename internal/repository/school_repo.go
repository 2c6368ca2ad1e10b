package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// SchoolRepository reads school settings.
type SchoolRepository interface {
	GetByID(ctx context.Context, id uint) (models.School, error)
	ListActive(ctx context.Context) ([]models.School, error)
}

type schoolRepository struct {
	db *gorm.DB
}

// NewSchoolRepository constructs a school repository.
func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) GetByID(ctx context.Context, id uint) (models.School, error) {
	var school models.School
	if err := r.db.WithContext(ctx).First(&school, id).Error; err != nil {
		return models.School{}, err
	}
	return school, nil
}

func (r *schoolRepository) ListActive(ctx context.Context) ([]models.School, error) {
	var schools []models.School
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&schools).Error; err != nil {
		return nil, err
	}
	return schools, nil
}
