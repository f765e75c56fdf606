package postgres

import (
	"context"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"gorm.io/gorm"
)

type ParticipantPostgreSQL struct {
	db *gorm.DB
}

func NewParticipantPostgreSQL(db *gorm.DB) repositories.ParticipantRepository {
	return &ParticipantPostgreSQL{db: db}
}

func (p *ParticipantPostgreSQL) Create(ctx context.Context, tx *gorm.DB, participant *models.Participant) error {
	return translateError(getDB(p.db, tx).WithContext(ctx).Create(participant).Error)
}

func (p *ParticipantPostgreSQL) GetByExamAndPhone(ctx context.Context, tx *gorm.DB, examID uint, phone string) (*models.Participant, error) {
	var participant models.Participant
	if err := getDB(p.db, tx).WithContext(ctx).
		Where("exam_id = ? AND phone = ?", examID, phone).
		First(&participant).Error; err != nil {
		return nil, translateError(err)
	}
	return &participant, nil
}
