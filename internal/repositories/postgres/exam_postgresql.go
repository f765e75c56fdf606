package postgres

import (
	"context"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"gorm.io/gorm"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := getDB(e.db, tx).WithContext(ctx).Where("id = ?", id).First(&exam).Error; err != nil {
		return nil, translateError(err)
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetQuestions(ctx context.Context, tx *gorm.DB, examID uint) ([]models.MCQ, error) {
	var questions []models.MCQ
	if err := getDB(e.db, tx).WithContext(ctx).
		Model(&models.MCQ{}).
		Joins("JOIN exam_questions eq ON eq.mcq_id = mcqs.id").
		Where("eq.exam_id = ?", examID).
		Order("eq.position ASC, mcqs.id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}
