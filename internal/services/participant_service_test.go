package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/events"
	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerRequest(phone string) *RegisterRequest {
	return &RegisterRequest{
		Name:    "Rahim Uddin",
		Class:   "HSC 2026",
		Phone:   phone,
		College: "Dhaka College",
	}
}

func TestParticipantService_Register(t *testing.T) {
	f := newFixture(t)
	f.verifyPhone(testPhone)

	resp, err := f.participants.Register(f.ctx, testExamID, registerRequest(testPhone))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ParticipantID)
	assert.NotEmpty(t, resp.AttemptID)

	view := resp.Attempt
	require.NotNil(t, view)
	assert.Equal(t, models.AttemptInProgress, view.Status)
	assert.Equal(t, 1800, view.RemainingSeconds)
	assert.Equal(t, 3, view.MaxTabSwitches)
	require.Len(t, view.Questions, 5)

	seen := map[uint]bool{}
	for i, q := range view.Questions {
		assert.Equal(t, i+1, q.Position)
		assert.Nil(t, q.Selected)
		require.Len(t, q.Options, testOptionCount)
		texts := make([]string, 0, len(q.Options))
		for pos, o := range q.Options {
			assert.Equal(t, models.OptionLetter(pos), o.Letter)
			texts = append(texts, o.Text)
		}
		assert.ElementsMatch(t, []string{optionText(q.ID, 0), optionText(q.ID, 1), optionText(q.ID, 2), optionText(q.ID, 3)}, texts)
		seen[q.ID] = true
	}
	assert.Len(t, seen, 5)

	participant, err := f.repo.Participant().GetByExamAndPhone(f.ctx, nil, testExamID, testPhone)
	require.NoError(t, err)
	assert.Equal(t, resp.ParticipantID, participant.ID)
	assert.True(t, participant.Verified)
	assert.Equal(t, testPhone, participant.Phone)

	assert.Len(t, f.publisher.EventsOfType(events.EventParticipantRegistered), 1)
	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptStarted), 1)
}

func TestParticipantService_RegisterTwice(t *testing.T) {
	f := newFixture(t)
	f.register(testPhone, "Rahim Uddin")

	_, err := f.participants.Register(f.ctx, testExamID, registerRequest("+8801711111111"))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.True(t, IsConflict(err))
}

func TestParticipantService_ConcurrentRegistration(t *testing.T) {
	f := newFixture(t)
	f.verifyPhone(testPhone)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.participants.Register(f.ctx, testExamID, registerRequest(testPhone))
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, ErrAlreadyRegistered):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(9), conflicts.Load())
}

func TestParticipantService_RequiresVerifiedPhone(t *testing.T) {
	f := newFixture(t)

	req := registerRequest(testPhone)
	req.Verified = true
	_, err := f.participants.Register(f.ctx, testExamID, req)
	assert.ErrorIs(t, err, ErrPhoneNotVerified)
}

func TestParticipantService_VerificationWindowLapses(t *testing.T) {
	f := newFixture(t)
	f.verifyPhone(testPhone)

	f.clock.Advance(31 * time.Minute)
	_, err := f.participants.Register(f.ctx, testExamID, registerRequest(testPhone))
	assert.ErrorIs(t, err, ErrPhoneNotVerified)
}

func TestParticipantService_OtpOptional(t *testing.T) {
	f := newFixture(t)
	f.participants.otpRequired = false

	resp, err := f.participants.Register(f.ctx, testExamID, registerRequest(testPhone))
	require.NoError(t, err)

	participant, err := f.repo.Participant().GetByExamAndPhone(f.ctx, nil, testExamID, testPhone)
	require.NoError(t, err)
	assert.Equal(t, resp.ParticipantID, participant.ID)
	assert.False(t, participant.Verified)
}

func TestParticipantService_ExamWindow(t *testing.T) {
	f := newFixture(t)
	f.participants.otpRequired = false

	_, err := f.participants.Register(f.ctx, 99, registerRequest(testPhone))
	assert.ErrorIs(t, err, ErrExamNotFound)

	f.clock.Advance(4 * time.Hour)
	_, err = f.participants.Register(f.ctx, testExamID, registerRequest(testPhone))
	assert.ErrorIs(t, err, ErrExamNotOngoing)
}

func TestParticipantService_Validation(t *testing.T) {
	f := newFixture(t)
	f.participants.otpRequired = false

	req := registerRequest(testPhone)
	req.Name = ""
	req.Email = strPtr("not-an-email")
	_, err := f.participants.Register(f.ctx, testExamID, req)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestParticipantService_RegisteredPhoneAfterVerificationWindow(t *testing.T) {
	f := newFixture(t)
	f.register(testPhone, "Rahim Uddin")

	f.clock.Advance(31 * time.Minute)
	_, err := f.participants.Register(f.ctx, testExamID, registerRequest(testPhone))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}
