package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/arrivapp-go-api/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Student, error)
	ListActiveBySchool(ctx context.Context, schoolID uint) ([]models.Student, error)
	ListClasses(ctx context.Context, schoolID uint) ([]string, error)
	ListByParentEmail(ctx context.Context, email string) ([]models.Student, error)
	Deactivate(ctx context.Context, id uint) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

// FindActiveByCode returns nil when no active student carries the code.
func (r *studentRepository) FindActiveByCode(ctx context.Context, code string) (*models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where("code = ? AND status = ?", code, models.StudentStatusActive).
		First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) ListActiveBySchool(ctx context.Context, schoolID uint) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND status = ?", schoolID, models.StudentStatusActive).
		Order("class_name ASC, name ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

// ListClasses returns the distinct class labels of the school's active roster.
func (r *studentRepository) ListClasses(ctx context.Context, schoolID uint) ([]string, error) {
	var classes []string
	if err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("school_id = ? AND status = ? AND class_name <> ''", schoolID, models.StudentStatusActive).
		Distinct("class_name").
		Order("class_name ASC").
		Pluck("class_name", &classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

// ListByParentEmail matches the parent address case-insensitively.
func (r *studentRepository) ListByParentEmail(ctx context.Context, email string) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).
		Where("LOWER(parent_email) = LOWER(?) AND status = ?", strings.TrimSpace(email), models.StudentStatusActive).
		Order("name ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Update("status", models.StudentStatusDeactivated)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
