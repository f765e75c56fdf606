package postgres

import (
	"context"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	return translateError(getDB(a.db, tx).WithContext(ctx).Omit(clause.Associations).Create(attempt).Error)
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := getDB(a.db, tx).WithContext(ctx).Where("id = ?", id).First(&attempt).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := getDB(a.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&attempt).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetActiveByStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := getDB(a.db, tx).WithContext(ctx).
		Where("exam_id = ? AND student_id = ? AND status <> ?", examID, studentID, models.AttemptAbandoned).
		Order("created_at DESC").
		First(&attempt).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	return translateError(getDB(a.db, tx).WithContext(ctx).Omit(clause.Associations).Save(attempt).Error)
}

func (a *AttemptPostgreSQL) UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error {
	return getDB(a.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_letter", "time_spent_seconds", "sequence", "is_correct", "answered_at",
			}),
		}).
		Create(answer).Error
}

func (a *AttemptPostgreSQL) ListAnswers(ctx context.Context, tx *gorm.DB, attemptID string) ([]models.AttemptAnswer, error) {
	var answers []models.AttemptAnswer
	if err := getDB(a.db, tx).WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("sequence ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AttemptPostgreSQL) ListExpiredInProgress(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.ExamAttempt, error) {
	var attempts []*models.ExamAttempt
	query := getDB(a.db, tx).WithContext(ctx).
		Where("status = ? AND deadline <= ?", models.AttemptInProgress, now).
		Order("deadline ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

type meritRecord struct {
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

func (a *AttemptPostgreSQL) ListMeritRows(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.MeritFilters) ([]repositories.MeritRow, error) {
	var records []meritRecord
	query := getDB(a.db, tx).WithContext(ctx).
		Table("exam_attempts AS a").
		Select(`a.id AS attempt_id, a.score, a.percentage, a.correct_answers, a.wrong_answers,
			a.start_time, a.end_time,
			COALESCE(p.name, s.name, '') AS name,
			COALESCE(p.class, s.class, '') AS class,
			COALESCE(p.college, s.institution, '') AS institution`).
		Joins("LEFT JOIN participants p ON p.id = a.participant_id").
		Joins("LEFT JOIN students s ON s.id = a.student_id").
		Where("a.exam_id = ? AND a.status IN ? AND a.end_time IS NOT NULL", examID, models.FinalizedStatuses).
		Order("a.score DESC, (a.end_time - a.start_time) ASC, a.end_time ASC, a.id ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if err := query.Scan(&records).Error; err != nil {
		return nil, err
	}

	rows := make([]repositories.MeritRow, len(records))
	for i, r := range records {
		rows[i] = repositories.MeritRow(r)
	}
	return rows, nil
}

func (a *AttemptPostgreSQL) CountFinalized(ctx context.Context, tx *gorm.DB, examID uint) (int64, error) {
	var count int64
	err := getDB(a.db, tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND status IN ? AND end_time IS NOT NULL", examID, models.FinalizedStatuses).
		Count(&count).Error
	return count, err
}

type aggregateRecord struct {
	StudentID    string
	TotalScore   decimal.Decimal
	Attempts     int
	BestStreak   int
	LastFinished time.Time
}

func (a *AttemptPostgreSQL) AggregateByStudent(ctx context.Context, tx *gorm.DB, filters repositories.LeaderboardFilters) ([]models.StudentAggregate, error) {
	var records []aggregateRecord
	query := getDB(a.db, tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Select(`student_id, COALESCE(SUM(score), 0) AS total_score, COUNT(*) AS attempts,
			COALESCE(MAX(best_streak), 0) AS best_streak, MAX(end_time) AS last_finished`).
		Where("student_id IS NOT NULL AND status IN ?", models.FinalizedStatuses)
	if filters.FinishedSince != nil {
		query = query.Where("end_time >= ?", *filters.FinishedSince)
	}
	if err := query.Group("student_id").Scan(&records).Error; err != nil {
		return nil, err
	}

	aggregates := make([]models.StudentAggregate, len(records))
	for i, r := range records {
		aggregates[i] = models.StudentAggregate(r)
	}
	return aggregates, nil
}
