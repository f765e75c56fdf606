package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/anis2566/monorepo-new-sub002/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedFinished stores a finalized attempt for a participant or student directly.
func (f *fixture) seedFinished(id string, examID uint, owner Actor, score int64, streak int, duration time.Duration, end time.Time) {
	f.t.Helper()
	submission := models.SubmissionManual
	attempt := &models.ExamAttempt{
		ID:             id,
		ExamID:         examID,
		StartTime:      end.Add(-duration),
		Deadline:       end.Add(time.Hour),
		EndTime:        &end,
		Status:         models.AttemptSubmitted,
		SubmissionType: &submission,
		Score:          decimal.NewFromInt(score),
		Percentage:     decimal.NewFromInt(score * 10),
		CorrectAnswers: int(score),
		BestStreak:     streak,
	}
	if owner.ParticipantID != "" {
		attempt.ParticipantID = &owner.ParticipantID
		require.NoError(f.t, f.repo.Participant().Create(f.ctx, nil, &models.Participant{
			ID:      owner.ParticipantID,
			ExamID:  examID,
			Name:    "Participant " + owner.ParticipantID,
			Class:   "HSC",
			Phone:   fmt.Sprintf("0171%07d", len(owner.ParticipantID)*1000+int(score)),
			College: "College " + owner.ParticipantID,
		}))
	}
	if owner.StudentID != "" {
		attempt.StudentID = &owner.StudentID
	}
	require.NoError(f.t, f.repo.Attempt().Create(f.ctx, nil, attempt))
}

func TestRankingService_MeritList(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	f.seedFinished("a1", testExamID, Actor{ParticipantID: "p1"}, 4, 2, 20*time.Minute, now)
	f.seedFinished("a2", testExamID, Actor{ParticipantID: "p2"}, 5, 5, 25*time.Minute, now)
	f.seedFinished("a3", testExamID, Actor{ParticipantID: "p3"}, 4, 4, 10*time.Minute, now)

	list, err := f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	assert.Equal(t, "Physics Model Test", list.ExamTitle)
	require.Equal(t, 3, list.Total)
	assert.Equal(t, "a2", list.Entries[0].AttemptID)
	assert.Equal(t, "a3", list.Entries[1].AttemptID)
	assert.Equal(t, "a1", list.Entries[2].AttemptID)
	assert.Equal(t, "Participant p3", list.Entries[1].Name)
	assert.Equal(t, "College p3", list.Entries[1].Institution)

	page, err := f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, 2, page.Entries[0].Rank)

	_, err = f.ranking.GetMeritList(f.ctx, 42, MeritListQuery{})
	assert.ErrorIs(t, err, ErrExamNotFound)

	_, err = f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{Limit: 5000})
	assert.True(t, IsValidation(err))
}

func TestRankingService_MeritListReportsTruncation(t *testing.T) {
	f := newFixture(t)
	f.ranking.cfg.MaxMeritListEntries = 2
	now := f.clock.Now()

	f.seedFinished("a1", testExamID, Actor{ParticipantID: "p1"}, 4, 2, 20*time.Minute, now)
	f.seedFinished("a2", testExamID, Actor{ParticipantID: "p2"}, 5, 5, 25*time.Minute, now)
	f.seedFinished("a3", testExamID, Actor{ParticipantID: "p3"}, 3, 4, 10*time.Minute, now)

	list, err := f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.True(t, list.Truncated)
	require.Len(t, list.Entries, 2)
	assert.Equal(t, "a2", list.Entries[0].AttemptID)
	assert.Equal(t, "a1", list.Entries[1].AttemptID)
}

func TestRankingService_MeritListNotTruncatedAtCap(t *testing.T) {
	f := newFixture(t)
	f.ranking.cfg.MaxMeritListEntries = 2
	now := f.clock.Now()

	f.seedFinished("a1", testExamID, Actor{ParticipantID: "p1"}, 4, 2, 20*time.Minute, now)
	f.seedFinished("a2", testExamID, Actor{ParticipantID: "p2"}, 5, 5, 25*time.Minute, now)

	list, err := f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.False(t, list.Truncated)
}

// cancelAwareRepository fails exam reads on a cancelled context, like a real driver.
type cancelAwareRepository struct {
	repositories.Repository
}

func (r cancelAwareRepository) Exam() repositories.ExamRepository {
	return cancelAwareExams{r.Repository.Exam()}
}

type cancelAwareExams struct {
	repositories.ExamRepository
}

func (e cancelAwareExams) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.ExamRepository.GetByID(ctx, tx, id)
}

func TestRankingService_FillIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.seedFinished("a1", testExamID, Actor{ParticipantID: "p1"}, 4, 2, 20*time.Minute, f.clock.Now())

	ranking := NewRankingService(cancelAwareRepository{f.repo}, f.cache, validator.New(), f.cfg.Exam, utils.NewDiscardLogger())

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	list, err := ranking.GetMeritList(ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	// the filled list is cached for the next caller
	again, err := ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	assert.True(t, list.GeneratedAt.Equal(again.GeneratedAt))
}

func TestRankingService_MeritListCacheInvalidation(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	f.seedFinished("a1", testExamID, Actor{ParticipantID: "p1"}, 4, 2, 20*time.Minute, now)

	list, err := f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)

	f.seedFinished("a2", testExamID, Actor{ParticipantID: "p2"}, 5, 5, 25*time.Minute, now)
	cached, err := f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Total)

	f.ranking.InvalidateExam(f.ctx, testExamID)
	fresh, err := f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Total)
	assert.Equal(t, "a2", fresh.Entries[0].AttemptID)
}

func TestRankingService_MeritListExcludesOpenAttempts(t *testing.T) {
	f := newFixture(t)
	submitted := f.register(testPhone, "Rahim Uddin")
	f.answerCorrect(submitted, 101)
	_, err := f.attempts.Submit(f.ctx, submitted.AttemptID, actorOf(submitted), manual())
	require.NoError(t, err)

	f.register("01811111111", "Still Writing")

	list, err := f.ranking.GetMeritList(f.ctx, testExamID, MeritListQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, submitted.AttemptID, list.Entries[0].AttemptID)
}

func seedStudents(f *fixture) {
	for _, id := range []string{"s1", "s2", "s3"} {
		f.repo.SeedStudent(models.Student{ID: id, Name: "Student " + id, Class: "HSC", Institution: "Notre Dame College"})
	}
}

func TestRankingService_Leaderboard(t *testing.T) {
	f := newFixture(t)
	seedStudents(f)
	now := f.clock.Now()

	f.seedFinished("x1", 1, Actor{StudentID: "s1"}, 8, 3, 10*time.Minute, now.Add(-10*24*time.Hour))
	f.seedFinished("x2", 2, Actor{StudentID: "s1"}, 2, 1, 10*time.Minute, now.Add(-time.Hour))
	f.seedFinished("x3", 1, Actor{StudentID: "s2"}, 6, 6, 10*time.Minute, now.Add(-2*time.Hour))
	f.seedFinished("x4", 1, Actor{StudentID: "s3"}, 3, 2, 10*time.Minute, now.Add(-3*time.Hour))

	overall, err := f.ranking.GetLeaderboard(f.ctx, LeaderboardQuery{StudentID: "s3"})
	require.NoError(t, err)
	assert.Equal(t, models.LeaderboardOverall, overall.Variant)
	require.Equal(t, 3, overall.Total)
	assert.Equal(t, "s1", overall.Entries[0].StudentID)
	assert.True(t, decimal.NewFromInt(10).Equal(overall.Entries[0].TotalScore))
	assert.Equal(t, 2, overall.Entries[0].Attempts)
	assert.Equal(t, "Student s1", overall.Entries[0].Name)
	require.NotNil(t, overall.Me)
	assert.Equal(t, 3, overall.Me.Rank)
	assert.Equal(t, "Student s3", overall.Me.Name)

	weekly, err := f.ranking.GetLeaderboard(f.ctx, LeaderboardQuery{Variant: models.LeaderboardWeekly})
	require.NoError(t, err)
	require.Equal(t, 3, weekly.Total)
	assert.Equal(t, "s2", weekly.Entries[0].StudentID)
	assert.True(t, decimal.NewFromInt(2).Equal(weekly.Entries[2].TotalScore))

	streak, err := f.ranking.GetLeaderboard(f.ctx, LeaderboardQuery{Variant: models.LeaderboardStreak, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, streak.Total)
	require.Len(t, streak.Entries, 1)
	assert.Equal(t, "s2", streak.Entries[0].StudentID)
	assert.Nil(t, streak.Me)

	_, err = f.ranking.GetLeaderboard(f.ctx, LeaderboardQuery{Variant: "monthly"})
	assert.ErrorIs(t, err, ErrInvalidLeaderboardVariant)
}

func TestRankingService_LeaderboardPreviousRank(t *testing.T) {
	f := newFixture(t)
	seedStudents(f)
	now := f.clock.Now()

	f.seedFinished("x1", 1, Actor{StudentID: "s1"}, 8, 3, 10*time.Minute, now)
	f.seedFinished("x2", 1, Actor{StudentID: "s2"}, 5, 3, 10*time.Minute, now)

	board, err := f.ranking.GetLeaderboard(f.ctx, LeaderboardQuery{})
	require.NoError(t, err)
	for _, e := range board.Entries {
		assert.Nil(t, e.PreviousRank)
	}

	f.seedFinished("x3", 2, Actor{StudentID: "s2"}, 9, 3, 10*time.Minute, now)
	f.clock.Advance(25 * time.Hour)
	f.ranking.InvalidateExam(f.ctx, 2)

	board, err = f.ranking.GetLeaderboard(f.ctx, LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "s2", board.Entries[0].StudentID)
	require.NotNil(t, board.Entries[0].PreviousRank)
	assert.Equal(t, 2, *board.Entries[0].PreviousRank)
	require.NotNil(t, board.Entries[1].PreviousRank)
	assert.Equal(t, 1, *board.Entries[1].PreviousRank)
}
