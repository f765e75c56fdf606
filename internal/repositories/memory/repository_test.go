package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestParticipantCreate_ConcurrentSamePhone(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Participant().Create(ctx, nil, &models.Participant{
				ID:     fmt.Sprintf("p-%d", i),
				ExamID: 1,
				Phone:  "01711111111",
			})
			if err == nil {
				created.Add(1)
				return
			}
			assert.ErrorIs(t, err, repositories.ErrDuplicate)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		require.NoError(t, repo.Participant().Create(ctx, tx, &models.Participant{ID: "p-1", ExamID: 1, Phone: "01711111111"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.Participant().GetByExamAndPhone(ctx, nil, 1, "01711111111")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestWithTransaction_RollbackKeepsConcurrentWrites(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	now := time.Now()
	boom := errors.New("boom")

	challenge := &models.OtpChallenge{Phone: "01711111111", Code: "123456", IssuedAt: now, ExpiresAt: now.Add(time.Minute), AttemptsRemaining: 3}
	require.NoError(t, repo.Otp().Create(ctx, nil, challenge))

	opened := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- repo.WithTransaction(ctx, func(tx *gorm.DB) error {
			if err := repo.Participant().Create(ctx, tx, &models.Participant{ID: "p-1", ExamID: 1, Phone: "01711111111"}); err != nil {
				return err
			}
			close(opened)
			<-release
			return boom
		})
	}()
	<-opened

	consumeDone := make(chan bool, 1)
	go func() {
		ok, err := repo.Otp().Consume(ctx, nil, challenge.ID, now)
		assert.NoError(t, err)
		consumeDone <- ok
	}()

	select {
	case <-consumeDone:
		t.Fatal("write outside the transaction did not wait for it")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.ErrorIs(t, <-txDone, boom)
	assert.True(t, <-consumeDone)

	ok, err := repo.Otp().Consume(ctx, nil, challenge.ID, now)
	require.NoError(t, err)
	assert.False(t, ok, "rollback must not revive a consumed code")

	_, err = repo.Participant().GetByExamAndPhone(ctx, nil, 1, "01711111111")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestOtpConsume_Once(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	now := time.Now()

	challenge := &models.OtpChallenge{Phone: "01711111111", Code: "123456", IssuedAt: now, ExpiresAt: now.Add(time.Minute), AttemptsRemaining: 1}
	require.NoError(t, repo.Otp().Create(ctx, nil, challenge))

	ok, err := repo.Otp().Consume(ctx, nil, challenge.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Otp().Consume(ctx, nil, challenge.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	consumed, err := repo.Otp().HasConsumedSince(ctx, nil, "01711111111", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, consumed)
}

func TestOtpSupersede_HidesOlderChallenge(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	now := time.Now()

	first := &models.OtpChallenge{Phone: "01711111111", Code: "111111", IssuedAt: now, ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, repo.Otp().Create(ctx, nil, first))
	require.NoError(t, repo.Otp().SupersedeActive(ctx, nil, "01711111111"))
	second := &models.OtpChallenge{Phone: "01711111111", Code: "222222", IssuedAt: now.Add(time.Second), ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, repo.Otp().Create(ctx, nil, second))

	latest, err := repo.Otp().GetLatest(ctx, nil, "01711111111")
	require.NoError(t, err)
	assert.Equal(t, "222222", latest.Code)

	ok, err := repo.Otp().Consume(ctx, nil, first.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttemptCreate_StudentRetakeAfterAbandon(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	first := &models.ExamAttempt{ID: "a-1", ExamID: 1, StudentID: strPtr("s-1"), Status: models.AttemptInProgress}
	require.NoError(t, repo.Attempt().Create(ctx, nil, first))

	err := repo.Attempt().Create(ctx, nil, &models.ExamAttempt{ID: "a-2", ExamID: 1, StudentID: strPtr("s-1"), Status: models.AttemptInProgress})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	first.Status = models.AttemptAbandoned
	require.NoError(t, repo.Attempt().Update(ctx, nil, first))

	require.NoError(t, repo.Attempt().Create(ctx, nil, &models.ExamAttempt{ID: "a-2", ExamID: 1, StudentID: strPtr("s-1"), Status: models.AttemptInProgress}))
}

func TestListMeritRows_ExcludesUnfinalized(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Participant().Create(ctx, nil, &models.Participant{ID: "p-1", ExamID: 1, Name: "Rahim", Phone: "01711111111"}))
	require.NoError(t, repo.Participant().Create(ctx, nil, &models.Participant{ID: "p-2", ExamID: 1, Name: "Karim", Phone: "01711111112"}))
	require.NoError(t, repo.Participant().Create(ctx, nil, &models.Participant{ID: "p-3", ExamID: 1, Name: "Salma", Phone: "01711111113"}))

	fast := start.Add(5 * time.Minute)
	slow := start.Add(9 * time.Minute)
	attempts := []*models.ExamAttempt{
		{ID: "a-1", ExamID: 1, ParticipantID: strPtr("p-1"), Status: models.AttemptSubmitted, Score: decimal.NewFromInt(3), StartTime: start, EndTime: &slow},
		{ID: "a-2", ExamID: 1, ParticipantID: strPtr("p-2"), Status: models.AttemptAutoSubmitted, Score: decimal.NewFromInt(3), StartTime: start, EndTime: &fast},
		{ID: "a-3", ExamID: 1, ParticipantID: strPtr("p-3"), Status: models.AttemptInProgress, Score: decimal.NewFromInt(9), StartTime: start},
	}
	for _, a := range attempts {
		require.NoError(t, repo.Attempt().Create(ctx, nil, a))
	}

	rows, err := repo.Attempt().ListMeritRows(ctx, nil, 1, repositories.MeritFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Karim", rows[0].Name)
	assert.Equal(t, "Rahim", rows[1].Name)
}

func TestAggregateByStudent_WeeklyWindow(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	old := now.Add(-10 * 24 * time.Hour)
	recent := now.Add(-24 * time.Hour)

	require.NoError(t, repo.Attempt().Create(ctx, nil, &models.ExamAttempt{ID: "a-1", ExamID: 1, StudentID: strPtr("s-1"), Status: models.AttemptSubmitted, Score: decimal.NewFromInt(4), BestStreak: 3, EndTime: &old}))
	require.NoError(t, repo.Attempt().Create(ctx, nil, &models.ExamAttempt{ID: "a-2", ExamID: 2, StudentID: strPtr("s-1"), Status: models.AttemptSubmitted, Score: decimal.NewFromInt(2), BestStreak: 5, EndTime: &recent}))

	all, err := repo.Attempt().AggregateByStudent(ctx, nil, repositories.LeaderboardFilters{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].TotalScore.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, 5, all[0].BestStreak)
	assert.Equal(t, 2, all[0].Attempts)

	since := now.Add(-7 * 24 * time.Hour)
	weekly, err := repo.Attempt().AggregateByStudent(ctx, nil, repositories.LeaderboardFilters{FinishedSince: &since})
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.True(t, weekly[0].TotalScore.Equal(decimal.NewFromInt(2)))
}
