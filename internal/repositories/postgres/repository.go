package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolationCode = "23505"

type repositoryManager struct {
	db          *gorm.DB
	participant repositories.ParticipantRepository
	otp         repositories.OtpRepository
	attempt     repositories.AttemptRepository
	exam        repositories.ExamRepository
	student     repositories.StudentRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repositoryManager{
		db:          db,
		participant: NewParticipantPostgreSQL(db),
		otp:         NewOtpPostgreSQL(db),
		attempt:     NewAttemptPostgreSQL(db),
		exam:        NewExamPostgreSQL(db),
		student:     NewStudentPostgreSQL(db),
	}
}

func (m *repositoryManager) Participant() repositories.ParticipantRepository { return m.participant }
func (m *repositoryManager) Otp() repositories.OtpRepository                 { return m.otp }
func (m *repositoryManager) Attempt() repositories.AttemptRepository         { return m.attempt }
func (m *repositoryManager) Exam() repositories.ExamRepository               { return m.exam }
func (m *repositoryManager) Student() repositories.StudentRepository         { return m.student }

func (m *repositoryManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

// translateError maps driver and gorm errors onto the repository sentinels.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", repositories.ErrDuplicate, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func getDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
