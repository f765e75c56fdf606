package repositories

import (
	"context"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository aggregates the stores used by the exam services. Implementations
// accept a nil tx to run outside a transaction.
type Repository interface {
	Participant() ParticipantRepository
	Otp() OtpRepository
	Attempt() AttemptRepository
	Exam() ExamRepository
	Student() StudentRepository

	// WithTransaction runs fn in a single transaction, rolling back when it returns an error.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ===== SHARED FILTER STRUCTS =====

type MeritFilters struct {
	Limit int `json:"limit"`
}

type LeaderboardFilters struct {
	FinishedSince *time.Time `json:"finished_since"`
}

// ===== SHARED ROW STRUCTS =====

// MeritRow is a finalized attempt joined with the participant or student who owns it.
type MeritRow struct {
	AttemptID      string
	Score          decimal.Decimal
	Percentage     decimal.Decimal
	CorrectAnswers int
	WrongAnswers   int
	StartTime      time.Time
	EndTime        time.Time
	Name           string
	Class          string
	Institution    string
}

func (r MeritRow) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// ===== INDIVIDUAL STORES =====

type ParticipantRepository interface {
	// Create fails with ErrDuplicate when (exam_id, phone) already exists.
	Create(ctx context.Context, tx *gorm.DB, participant *models.Participant) error
	GetByExamAndPhone(ctx context.Context, tx *gorm.DB, examID uint, phone string) (*models.Participant, error)
}

type OtpRepository interface {
	Create(ctx context.Context, tx *gorm.DB, challenge *models.OtpChallenge) error
	// GetLatest returns the newest challenge for a phone that has not been superseded.
	GetLatest(ctx context.Context, tx *gorm.DB, phone string) (*models.OtpChallenge, error)
	SupersedeActive(ctx context.Context, tx *gorm.DB, phone string) error
	// Consume marks the challenge used; false means another caller consumed it first.
	Consume(ctx context.Context, tx *gorm.DB, id uint, at time.Time) (bool, error)
	// DecrementAttempts returns false when no attempts were left to take.
	DecrementAttempts(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	HasConsumedSince(ctx context.Context, tx *gorm.DB, phone string, since time.Time) (bool, error)
	DeleteExpiredBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type AttemptRepository interface {
	// Create fails with ErrDuplicate when the owner already holds an attempt for the exam.
	Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ExamAttempt, error)
	// GetByIDForUpdate locks the attempt row for the rest of tx.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.ExamAttempt, error)
	GetActiveByStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.ExamAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error

	UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error
	ListAnswers(ctx context.Context, tx *gorm.DB, attemptID string) ([]models.AttemptAnswer, error)

	// ListExpiredInProgress returns in-progress attempts whose deadline is not after now.
	ListExpiredInProgress(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamAttempt, error)
	// ListMeritRows returns finalized attempts of an exam only.
	ListMeritRows(ctx context.Context, tx *gorm.DB, examID uint, filters MeritFilters) ([]MeritRow, error)
	CountFinalized(ctx context.Context, tx *gorm.DB, examID uint) (int64, error)
	// AggregateByStudent sums finalized student attempts only.
	AggregateByStudent(ctx context.Context, tx *gorm.DB, filters LeaderboardFilters) ([]models.StudentAggregate, error)
}

// ExamRepository is a read-only view of the admin-owned exam and question tables.
type ExamRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	// GetQuestions returns the exam's MCQs in authoring order.
	GetQuestions(ctx context.Context, tx *gorm.DB, examID uint) ([]models.MCQ, error)
}

// StudentRepository is a read-only view of the student and class directory.
type StudentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) (map[string]*models.Student, error)
	ListClassOptions(ctx context.Context, tx *gorm.DB) ([]models.ClassOption, error)
}
