package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/events"
	"github.com/anis2566/monorepo-new-sub002/internal/metrics"
	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/anis2566/monorepo-new-sub002/internal/validator"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type attemptService struct {
	repo      repositories.Repository
	ranking   RankingService
	publisher events.EventPublisher
	validator *validator.Validator
	cfg       config.ExamConfig
	logger    *slog.Logger
	svcLogger *ServiceLogger
	now       func() time.Time
}

func NewAttemptService(
	repo repositories.Repository,
	ranking RankingService,
	publisher events.EventPublisher,
	v *validator.Validator,
	cfg config.ExamConfig,
	logger *slog.Logger,
) AttemptService {
	return &attemptService{
		repo:      repo,
		ranking:   ranking,
		publisher: publisher,
		validator: v,
		cfg:       cfg,
		logger:    logger,
		svcLogger: NewServiceLogger(logger, LogConfig{Service: "exam-service", Component: "attempt"}),
		now:       time.Now,
	}
}

// finalization is what a committed finalize hands to the post-commit hooks.
type finalization struct {
	attempt *models.ExamAttempt
	exam    *models.Exam
}

// ===== START =====

func (s *attemptService) StartForStudent(ctx context.Context, examID uint, studentID string) (view *AttemptView, err error) {
	op := s.svcLogger.WithOperation(ctx, "attempt.start_student", "student:"+studentID)
	defer func() {
		id := ""
		if view != nil {
			id = view.ID
		}
		op.LogResult(id, "attempt", err)
	}()

	exam, err := s.loadExam(ctx, nil, examID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if exam.StatusAt(now) != models.ExamOngoing {
		return nil, ErrExamNotOngoing
	}
	if _, err := s.repo.Student().GetByID(ctx, nil, studentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	questions, err := s.repo.Exam().GetQuestions(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrExamHasNoQuestions
	}

	if existing, err := s.resumeStudentAttempt(ctx, exam, studentID, questions, now); existing != nil || err != nil {
		return existing, err
	}

	attempt := newAttempt(exam, questions, nil, &studentID, now)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.repo.Attempt().Create(ctx, tx, attempt)
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			// A concurrent start won; hand back its attempt.
			if existing, rerr := s.resumeStudentAttempt(ctx, exam, studentID, questions, now); existing != nil || rerr != nil {
				return existing, rerr
			}
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.publishStarted(ctx, attempt)
	return buildAttemptView(exam, attempt, questions, nil, now, tabSwitchLimit(exam, s.cfg.TabSwitchLimit)), nil
}

// resumeStudentAttempt returns the student's live attempt, or nil when they have none.
func (s *attemptService) resumeStudentAttempt(ctx context.Context, exam *models.Exam, studentID string, questions []models.MCQ, now time.Time) (*AttemptView, error) {
	existing, err := s.repo.Attempt().GetActiveByStudent(ctx, nil, exam.ID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if existing.IsFinalized() {
		return nil, ErrAttemptFinalized
	}
	if !now.Before(existing.Deadline) {
		if _, err := s.FinalizeExpired(ctx, existing.ID, now); err != nil {
			return nil, err
		}
		return nil, ErrAttemptFinalized
	}

	answers, err := s.repo.Attempt().ListAnswers(ctx, nil, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return buildAttemptView(exam, existing, questions, answers, now, tabSwitchLimit(exam, s.cfg.TabSwitchLimit)), nil
}

// ===== READ =====

func (s *attemptService) Get(ctx context.Context, attemptID string, actor Actor) (*AttemptView, error) {
	attempt, err := s.loadOwnedAttempt(ctx, attemptID, actor)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !attempt.IsFinalized() && !now.Before(attempt.Deadline) {
		if _, err := s.FinalizeExpired(ctx, attemptID, now); err != nil {
			return nil, err
		}
		if attempt, err = s.loadOwnedAttempt(ctx, attemptID, actor); err != nil {
			return nil, err
		}
	}

	exam, err := s.loadExam(ctx, nil, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.Exam().GetQuestions(ctx, nil, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	answers, err := s.repo.Attempt().ListAnswers(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return buildAttemptView(exam, attempt, questions, answers, now, tabSwitchLimit(exam, s.cfg.TabSwitchLimit)), nil
}

func (s *attemptService) GetResult(ctx context.Context, attemptID string, actor Actor) (*AttemptResult, error) {
	attempt, err := s.loadOwnedAttempt(ctx, attemptID, actor)
	if err != nil {
		return nil, err
	}
	if !attempt.IsFinalized() {
		now := s.now()
		if now.Before(attempt.Deadline) {
			return nil, ErrAttemptInProgress
		}
		if _, err := s.FinalizeExpired(ctx, attemptID, now); err != nil {
			return nil, err
		}
		if attempt, err = s.loadOwnedAttempt(ctx, attemptID, actor); err != nil {
			return nil, err
		}
	}

	exam, err := s.loadExam(ctx, nil, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.Exam().GetQuestions(ctx, nil, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	key, err := BuildAnswerKey(questions)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.Attempt().ListAnswers(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	result := buildResult(exam, attempt, s.policyFor(exam, attempt).TotalMarks)
	result.Review = buildReview(attempt, questions, answers, key)
	return result, nil
}

// ===== MUTATIONS =====

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID string, actor Actor, req *SubmitAnswerRequest) (resp *AnswerResponse, err error) {
	op := s.svcLogger.WithOperation(ctx, "attempt.answer", actor.String())
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var (
		expired *finalization
		answers []models.AttemptAnswer
		current *models.ExamAttempt
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, exam, err := s.lockForMutation(ctx, tx, attemptID, actor)
		if err != nil {
			return err
		}
		now := s.now()
		if !now.Before(attempt.Deadline) {
			expired, err = s.finalizeLocked(ctx, tx, attempt, exam, models.SubmissionAutoTimeUp, now)
			return err
		}
		if !containsQuestion(attempt, req.QuestionID) {
			return ErrQuestionNotInAttempt
		}

		questions, err := s.repo.Exam().GetQuestions(ctx, tx, attempt.ExamID)
		if err != nil {
			return fmt.Errorf("failed to get questions: %w", err)
		}
		q, ok := indexQuestions(questions)[req.QuestionID]
		if !ok {
			return ErrQuestionNotInAttempt
		}
		correct, err := q.AnswerIndex()
		if err != nil {
			return ErrInvalidAnswerKey
		}

		var selected *string
		isCorrect := false
		if req.SelectedOption != nil {
			idx, ok := models.LetterIndex(*req.SelectedOption)
			if !ok || idx >= len(q.Options) {
				return ErrInvalidOption
			}
			letter := models.OptionLetter(idx)
			selected = &letter
			isCorrect = IsCorrectSelection(letter, q.ID, AnswerKey{q.ID: correct}, attempt.OptionOrders.Data())
		}

		attempt.AnswerSeq++
		answer := &models.AttemptAnswer{
			AttemptID:        attempt.ID,
			QuestionID:       q.ID,
			SelectedLetter:   selected,
			TimeSpentSeconds: req.TimeSpentSeconds,
			Sequence:         attempt.AnswerSeq,
			IsCorrect:        isCorrect,
			AnsweredAt:       now,
		}
		if err := s.repo.Attempt().UpsertAnswer(ctx, tx, answer); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}

		answers, err = s.repo.Attempt().ListAnswers(ctx, tx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to list answers: %w", err)
		}
		streak, best := ComputeStreaks(answers)
		attempt.CurrentStreak = streak
		attempt.BestStreak = max(attempt.BestStreak, best)
		attempt.SkippedQuestions = len(attempt.QuestionIDs) - countSelected(answers)
		if err := s.repo.Attempt().Update(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		current = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired != nil {
		s.afterFinalize(ctx, expired)
		return nil, ErrAttemptFinalized
	}

	var selected *string
	if a, ok := indexAnswers(answers)[req.QuestionID]; ok {
		selected = a.SelectedLetter
	}
	return &AnswerResponse{
		QuestionID:     req.QuestionID,
		SelectedOption: selected,
		AnsweredCount:  countSelected(answers),
		CurrentStreak:  current.CurrentStreak,
		BestStreak:     current.BestStreak,
	}, nil
}

func (s *attemptService) RecordTabSwitch(ctx context.Context, attemptID string, actor Actor) (resp *TabSwitchResponse, err error) {
	op := s.svcLogger.WithOperation(ctx, "attempt.tab_switch", actor.String())
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	var (
		done     *finalization
		timedOut bool
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, exam, err := s.lockForMutation(ctx, tx, attemptID, actor)
		if err != nil {
			return err
		}
		now := s.now()
		if !now.Before(attempt.Deadline) {
			timedOut = true
			done, err = s.finalizeLocked(ctx, tx, attempt, exam, models.SubmissionAutoTimeUp, now)
			return err
		}

		limit := tabSwitchLimit(exam, s.cfg.TabSwitchLimit)
		attempt.TabSwitchCount++
		resp = &TabSwitchResponse{TabSwitchCount: attempt.TabSwitchCount, Limit: limit}
		if attempt.TabSwitchCount > limit {
			done, err = s.finalizeLocked(ctx, tx, attempt, exam, models.SubmissionAutoTabSwitch, now)
			return err
		}
		if err := s.repo.Attempt().Update(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if done != nil {
		s.afterFinalize(ctx, done)
		if timedOut {
			return nil, ErrAttemptFinalized
		}
		resp.AutoSubmitted = true
		resp.Result = buildResult(done.exam, done.attempt, s.policyFor(done.exam, done.attempt).TotalMarks)
	}
	return resp, nil
}

// Submit finalizes exactly once. A repeated call returns the stored result.
func (s *attemptService) Submit(ctx context.Context, attemptID string, actor Actor, req *SubmitAttemptRequest) (result *AttemptResult, err error) {
	op := s.svcLogger.WithOperation(ctx, "attempt.submit", actor.String())
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var (
		done   *finalization
		stored *finalization
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, exam, err := s.lockForMutation(ctx, tx, attemptID, actor)
		if errors.Is(err, ErrAttemptFinalized) {
			stored = &finalization{attempt: attempt, exam: exam}
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		submission := s.resolveSubmission(req.Reason, attempt, now)
		done, err = s.finalizeLocked(ctx, tx, attempt, exam, submission, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if stored != nil {
		return buildResult(stored.exam, stored.attempt, s.policyFor(stored.exam, stored.attempt).TotalMarks), nil
	}
	s.afterFinalize(ctx, done)
	return buildResult(done.exam, done.attempt, s.policyFor(done.exam, done.attempt).TotalMarks), nil
}

// resolveSubmission applies the server clock: past the deadline everything is
// TimeUp, and a TimeUp claim before the deadline counts as Manual.
func (s *attemptService) resolveSubmission(reason SubmissionReason, attempt *models.ExamAttempt, now time.Time) models.SubmissionType {
	if !now.Before(attempt.Deadline) {
		return models.SubmissionAutoTimeUp
	}
	switch reason {
	case ReasonTabSwitch:
		return models.SubmissionAutoTabSwitch
	case ReasonTimeUp:
		s.logger.Info("Early TimeUp submission treated as manual",
			"attempt_id", attempt.ID,
			"remaining", attempt.Deadline.Sub(now))
		return models.SubmissionManual
	default:
		return models.SubmissionManual
	}
}

func (s *attemptService) FinalizeExpired(ctx context.Context, attemptID string, now time.Time) (models.AttemptStatus, error) {
	var (
		done   *finalization
		status models.AttemptStatus
	)
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, err := s.repo.Attempt().GetByIDForUpdate(ctx, tx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		status = attempt.Status
		if attempt.IsFinalized() || now.Before(attempt.Deadline) {
			return nil
		}
		exam, err := s.loadExam(ctx, tx, attempt.ExamID)
		if err != nil {
			return err
		}

		answers, err := s.repo.Attempt().ListAnswers(ctx, tx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to list answers: %w", err)
		}
		if countSelected(answers) == 0 {
			done, err = s.abandonLocked(ctx, tx, attempt, exam)
		} else {
			done, err = s.finalizeLocked(ctx, tx, attempt, exam, models.SubmissionAutoTimeUp, now)
		}
		if err != nil {
			return err
		}
		status = done.attempt.Status
		return nil
	})
	if err != nil {
		return "", err
	}
	if done != nil {
		s.afterFinalize(ctx, done)
	}
	return status, nil
}

// ===== LOCKED HELPERS =====

// lockForMutation locks the attempt and checks ownership. A finalized attempt is
// returned together with ErrAttemptFinalized.
func (s *attemptService) lockForMutation(ctx context.Context, tx *gorm.DB, attemptID string, actor Actor) (*models.ExamAttempt, *models.Exam, error) {
	attempt, err := s.repo.Attempt().GetByIDForUpdate(ctx, tx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to lock attempt: %w", err)
	}
	if !attempt.OwnedBy(actor.ParticipantID, actor.StudentID) {
		return nil, nil, s.foreignAccess(ctx, actor, attemptID, "modify")
	}
	exam, err := s.loadExam(ctx, tx, attempt.ExamID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.IsFinalized() {
		return attempt, exam, ErrAttemptFinalized
	}
	return attempt, exam, nil
}

// finalizeLocked scores the attempt from its stored answers. The caller holds the row lock.
func (s *attemptService) finalizeLocked(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt, exam *models.Exam, submission models.SubmissionType, now time.Time) (*finalization, error) {
	questions, err := s.repo.Exam().GetQuestions(ctx, tx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	key, err := BuildAnswerKey(questions)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.Attempt().ListAnswers(ctx, tx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	scored := Score(s.policyFor(exam, attempt), ScoreInput{
		QuestionIDs:  attempt.QuestionIDs,
		Answers:      answers,
		Key:          key,
		OptionOrders: attempt.OptionOrders.Data(),
	})

	// A late sweep must not lengthen the recorded duration.
	end := now
	if submission == models.SubmissionAutoTimeUp && end.After(attempt.Deadline) {
		end = attempt.Deadline
	}

	attempt.Status = models.AttemptAutoSubmitted
	if submission == models.SubmissionManual {
		attempt.Status = models.AttemptSubmitted
	}
	attempt.SubmissionType = &submission
	attempt.EndTime = &end
	attempt.Score = scored.Score
	attempt.Percentage = scored.Percentage
	attempt.CorrectAnswers = scored.Correct
	attempt.WrongAnswers = scored.Wrong
	attempt.SkippedQuestions = scored.Skipped
	// The streak shown during the attempt never drops on finalization.
	attempt.BestStreak = max(attempt.BestStreak, scored.BestStreak)
	attempt.CurrentStreak = 0

	if err := s.repo.Attempt().Update(ctx, tx, attempt); err != nil {
		return nil, fmt.Errorf("failed to finalize attempt: %w", err)
	}
	return &finalization{attempt: attempt, exam: exam}, nil
}

func (s *attemptService) abandonLocked(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt, exam *models.Exam) (*finalization, error) {
	end := attempt.Deadline
	attempt.Status = models.AttemptAbandoned
	attempt.EndTime = &end
	attempt.Score = decimal.Zero
	attempt.Percentage = decimal.Zero
	attempt.CorrectAnswers = 0
	attempt.WrongAnswers = 0
	attempt.SkippedQuestions = len(attempt.QuestionIDs)
	attempt.CurrentStreak = 0

	if err := s.repo.Attempt().Update(ctx, tx, attempt); err != nil {
		return nil, fmt.Errorf("failed to abandon attempt: %w", err)
	}
	return &finalization{attempt: attempt, exam: exam}, nil
}

// afterFinalize runs once the finalizing transaction committed.
func (s *attemptService) afterFinalize(ctx context.Context, f *finalization) {
	a := f.attempt
	submission := ""
	if a.SubmissionType != nil {
		submission = string(*a.SubmissionType)
	}
	metrics.AttemptsFinalized.WithLabelValues(string(a.Status), submission).Inc()

	s.logger.InfoContext(ctx, "Attempt finalized",
		"attempt_id", a.ID,
		"exam_id", a.ExamID,
		"status", a.Status,
		"submission_type", submission,
		"score", a.Score.String())

	if a.Status == models.AttemptAbandoned {
		s.publish(ctx, events.NewEvent(events.EventAttemptAbandoned, a.ExamID, events.AttemptAbandonedEvent{
			AttemptID:   a.ID,
			ExamID:      a.ExamID,
			AbandonedAt: *a.EndTime,
		}))
		return
	}

	s.ranking.InvalidateExam(ctx, a.ExamID)
	s.publish(ctx, events.NewEvent(events.EventAttemptSubmitted, a.ExamID, events.AttemptSubmittedEvent{
		AttemptID:        a.ID,
		ExamID:           a.ExamID,
		ParticipantID:    a.ParticipantID,
		StudentID:        a.StudentID,
		Status:           string(a.Status),
		SubmissionType:   submission,
		Score:            a.Score.String(),
		Percentage:       a.Percentage.String(),
		CorrectAnswers:   a.CorrectAnswers,
		WrongAnswers:     a.WrongAnswers,
		SkippedQuestions: a.SkippedQuestions,
		BestStreak:       a.BestStreak,
		SubmittedAt:      *a.EndTime,
	}))
}

// ===== LOADERS =====

func (s *attemptService) loadOwnedAttempt(ctx context.Context, attemptID string, actor Actor) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if !attempt.OwnedBy(actor.ParticipantID, actor.StudentID) {
		return nil, s.foreignAccess(ctx, actor, attemptID, "read")
	}
	return attempt, nil
}

func (s *attemptService) foreignAccess(ctx context.Context, actor Actor, attemptID, action string) error {
	s.svcLogger.LogSecurityEvent(ctx, SecurityEvent{
		Type:        SecurityEventForeignAttempt,
		Severity:    SecuritySeverityMedium,
		Subject:     actor.String(),
		Description: "access to another participant's attempt",
		Timestamp:   s.now(),
		Metadata:    map[string]interface{}{"attempt_id": attemptID, "action": action},
	})
	return NewPermissionError(actor.String(), attemptID, "attempt", action, "attempt belongs to another participant")
}

func (s *attemptService) loadExam(ctx context.Context, tx *gorm.DB, examID uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, tx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *attemptService) policyFor(exam *models.Exam, attempt *models.ExamAttempt) ScoringPolicy {
	return PolicyFor(exam, len(attempt.QuestionIDs), decimal.NewFromFloat(s.cfg.ScoreFloor))
}

func (s *attemptService) publishStarted(ctx context.Context, attempt *models.ExamAttempt) {
	s.publish(ctx, events.NewEvent(events.EventAttemptStarted, attempt.ExamID, events.AttemptStartedEvent{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		ParticipantID: attempt.ParticipantID,
		StudentID:     attempt.StudentID,
		QuestionCount: len(attempt.QuestionIDs),
		StartedAt:     attempt.StartTime,
		Deadline:      attempt.Deadline,
	}))
}

func (s *attemptService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.Type, "error", err)
	}
}
