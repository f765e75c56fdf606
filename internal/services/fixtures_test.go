package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/cache"
	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/events"
	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories/memory"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/anis2566/monorepo-new-sub002/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testPhone            = "01711111111"
	testExamID      uint = 1
	testOptionCount      = 4
)

// MockDispatcher is a mock implementation of sms.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, phone, message string) error {
	args := m.Called(ctx, phone, message)
	return args.Error(0)
}

func (m *MockDispatcher) SendOTP(ctx context.Context, phone, code string) error {
	args := m.Called(ctx, phone, code)
	return args.Error(0)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() *config.Config {
	return &config.Config{
		OTP: config.OTPConfig{
			Required:           true,
			CodeTTL:            5 * time.Minute,
			ResendCooldown:     60 * time.Second,
			MaxVerifyAttempts:  5,
			MaxSendsPerWindow:  5,
			SendWindow:         time.Hour,
			VerificationWindow: 30 * time.Minute,
			SendTimeout:        time.Second,
		},
		Exam: config.ExamConfig{
			TabSwitchLimit:      3,
			ScoreFloor:          0,
			SweepInterval:       time.Second,
			SweepConcurrency:    4,
			RankingCacheTTL:     time.Minute,
			RankSnapshotEvery:   24 * time.Hour,
			OtpRetention:        24 * time.Hour,
			DefaultPageSize:     100,
			MaxMeritListEntries: 1000,
		},
	}
}

func optionText(questionID uint, index int) string {
	return fmt.Sprintf("q%d option %d", questionID, index)
}

// testQuestions has five MCQs with four options each. The last one stores its
// answer as option text.
func testQuestions() []models.MCQ {
	answers := []string{"A", "B", "C", "D", optionText(105, 1)}
	questions := make([]models.MCQ, len(answers))
	for i, answer := range answers {
		id := uint(101 + i)
		options := make([]string, testOptionCount)
		for j := range options {
			options[j] = optionText(id, j)
		}
		questions[i] = models.MCQ{
			ID:       id,
			Question: fmt.Sprintf("Question %d", id),
			Options:  options,
			Answer:   answer,
		}
	}
	return questions
}

// correctIndex is the authoring index of each test question's answer.
var correctIndex = map[uint]int{101: 0, 102: 1, 103: 2, 104: 3, 105: 1}

func testExam(now time.Time) models.Exam {
	return models.Exam{
		ID:              testExamID,
		Title:           "Physics Model Test",
		Type:            models.ExamTypePublic,
		DurationMinutes: 30,
		TotalQuestions:  5,
		TotalMarks:      decimal.NewFromInt(5),
		MarkPerQuestion: decimal.NewFromInt(1),
		HasShuffle:      true,
		HasRandom:       true,
		StartDate:       now.Add(-time.Hour),
		EndDate:         now.Add(3 * time.Hour),
	}
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	clock     *testClock
	repo      *memory.Repository
	cache     cache.CacheService
	sms       *MockDispatcher
	publisher *events.MockEventPublisher
	cfg       *config.Config

	otp          *otpService
	participants *participantService
	attempts     *attemptService
	ranking      *rankingService
	sweeper      *Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	repo := memory.NewRepository()
	repo.SeedExam(testExam(clock.Now()), testQuestions())

	cfg := testConfig()
	logger := utils.NewDiscardLogger()
	v := validator.New()
	cacheService := cache.NewMemoryCache()
	dispatcher := &MockDispatcher{}
	dispatcher.On("SendOTP", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	publisher := events.NewMockEventPublisher(logger)

	otp := NewOtpService(repo, cacheService, dispatcher, publisher, v, cfg.OTP, logger).(*otpService)
	otp.now = clock.Now
	otp.newCode = func() (string, error) { return "123456", nil }

	ranking := NewRankingService(repo, cacheService, v, cfg.Exam, logger).(*rankingService)
	ranking.now = clock.Now

	attempts := NewAttemptService(repo, ranking, publisher, v, cfg.Exam, logger).(*attemptService)
	attempts.now = clock.Now

	participants := NewParticipantService(repo, otp, publisher, v, cfg.OTP.Required, cfg.Exam, logger).(*participantService)
	participants.now = clock.Now

	sweeper := NewSweeper(repo, attempts, otp, cfg.Exam, logger)
	sweeper.now = clock.Now

	return &fixture{
		t:            t,
		ctx:          context.Background(),
		clock:        clock,
		repo:         repo,
		cache:        cacheService,
		sms:          dispatcher,
		publisher:    publisher,
		cfg:          cfg,
		otp:          otp,
		participants: participants,
		attempts:     attempts,
		ranking:      ranking,
		sweeper:      sweeper,
	}
}

func (f *fixture) verifyPhone(phone string) {
	f.t.Helper()
	_, err := f.otp.SendCode(f.ctx, &SendOtpRequest{Phone: phone})
	require.NoError(f.t, err)
	_, err = f.otp.VerifyCode(f.ctx, &VerifyOtpRequest{Phone: phone, Code: "123456"})
	require.NoError(f.t, err)
}

func (f *fixture) register(phone, name string) *RegisterResponse {
	f.t.Helper()
	f.verifyPhone(phone)
	resp, err := f.participants.Register(f.ctx, testExamID, &RegisterRequest{
		Name:     name,
		Class:    "HSC 2026",
		Phone:    phone,
		College:  "Dhaka College",
		Verified: true,
	})
	require.NoError(f.t, err)
	return resp
}

// answer selects the option whose authoring index is original, translating it to
// the letter shown in this attempt.
func (f *fixture) answer(resp *RegisterResponse, questionID uint, original int) *AnswerResponse {
	f.t.Helper()
	letter := displayedLetter(f.t, resp.Attempt, questionID, optionText(questionID, original))
	out, err := f.attempts.SubmitAnswer(f.ctx, resp.AttemptID, Actor{ParticipantID: resp.ParticipantID}, &SubmitAnswerRequest{
		QuestionID:       questionID,
		SelectedOption:   &letter,
		TimeSpentSeconds: 20,
	})
	require.NoError(f.t, err)
	return out
}

func (f *fixture) answerCorrect(resp *RegisterResponse, questionID uint) *AnswerResponse {
	return f.answer(resp, questionID, correctIndex[questionID])
}

func (f *fixture) answerWrong(resp *RegisterResponse, questionID uint) *AnswerResponse {
	return f.answer(resp, questionID, (correctIndex[questionID]+1)%testOptionCount)
}

func displayedLetter(t *testing.T, view *AttemptView, questionID uint, text string) string {
	t.Helper()
	for _, q := range view.Questions {
		if q.ID != questionID {
			continue
		}
		for _, o := range q.Options {
			if o.Text == text {
				return o.Letter
			}
		}
	}
	t.Fatalf("option %q of question %d not shown", text, questionID)
	return ""
}

func strPtr(s string) *string { return &s }
