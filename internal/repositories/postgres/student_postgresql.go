package postgres

import (
	"context"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"gorm.io/gorm"
)

type StudentPostgreSQL struct {
	db *gorm.DB
}

func NewStudentPostgreSQL(db *gorm.DB) repositories.StudentRepository {
	return &StudentPostgreSQL{db: db}
}

func (s *StudentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	var student models.Student
	if err := getDB(s.db, tx).WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return nil, translateError(err)
	}
	return &student, nil
}

func (s *StudentPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) (map[string]*models.Student, error) {
	result := make(map[string]*models.Student, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var students []models.Student
	if err := getDB(s.db, tx).WithContext(ctx).Where("id IN ?", ids).Find(&students).Error; err != nil {
		return nil, err
	}
	for i := range students {
		result[students[i].ID] = &students[i]
	}
	return result, nil
}

func (s *StudentPostgreSQL) ListClassOptions(ctx context.Context, tx *gorm.DB) ([]models.ClassOption, error) {
	var options []models.ClassOption
	if err := getDB(s.db, tx).WithContext(ctx).Order("sort_order ASC, name ASC").Find(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}
