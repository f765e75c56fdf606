package postgres

import (
	"context"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"gorm.io/gorm"
)

type OtpPostgreSQL struct {
	db *gorm.DB
}

func NewOtpPostgreSQL(db *gorm.DB) repositories.OtpRepository {
	return &OtpPostgreSQL{db: db}
}

func (o *OtpPostgreSQL) Create(ctx context.Context, tx *gorm.DB, challenge *models.OtpChallenge) error {
	return translateError(getDB(o.db, tx).WithContext(ctx).Create(challenge).Error)
}

func (o *OtpPostgreSQL) GetLatest(ctx context.Context, tx *gorm.DB, phone string) (*models.OtpChallenge, error) {
	var challenge models.OtpChallenge
	if err := getDB(o.db, tx).WithContext(ctx).
		Where("phone = ? AND superseded = ?", phone, false).
		Order("issued_at DESC, id DESC").
		First(&challenge).Error; err != nil {
		return nil, translateError(err)
	}
	return &challenge, nil
}

func (o *OtpPostgreSQL) SupersedeActive(ctx context.Context, tx *gorm.DB, phone string) error {
	return getDB(o.db, tx).WithContext(ctx).
		Model(&models.OtpChallenge{}).
		Where("phone = ? AND superseded = ? AND consumed_at IS NULL", phone, false).
		Update("superseded", true).Error
}

func (o *OtpPostgreSQL) Consume(ctx context.Context, tx *gorm.DB, id uint, at time.Time) (bool, error) {
	result := getDB(o.db, tx).WithContext(ctx).
		Model(&models.OtpChallenge{}).
		Where("id = ? AND consumed_at IS NULL AND superseded = ?", id, false).
		Update("consumed_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (o *OtpPostgreSQL) DecrementAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	result := getDB(o.db, tx).WithContext(ctx).
		Model(&models.OtpChallenge{}).
		Where("id = ? AND attempts_remaining > 0", id).
		UpdateColumn("attempts_remaining", gorm.Expr("attempts_remaining - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (o *OtpPostgreSQL) HasConsumedSince(ctx context.Context, tx *gorm.DB, phone string, since time.Time) (bool, error) {
	var count int64
	if err := getDB(o.db, tx).WithContext(ctx).
		Model(&models.OtpChallenge{}).
		Where("phone = ? AND consumed_at >= ?", phone, since).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (o *OtpPostgreSQL) DeleteExpiredBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	result := getDB(o.db, tx).WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.OtpChallenge{})
	return result.RowsAffected, result.Error
}
