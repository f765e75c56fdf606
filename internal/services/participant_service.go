package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/events"
	"github.com/anis2566/monorepo-new-sub002/internal/metrics"
	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/anis2566/monorepo-new-sub002/internal/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type participantService struct {
	repo        repositories.Repository
	otp         OtpService
	publisher   events.EventPublisher
	validator   *validator.Validator
	otpRequired bool
	examCfg     config.ExamConfig
	logger      *slog.Logger
	svcLogger   *ServiceLogger
	now         func() time.Time
}

func NewParticipantService(
	repo repositories.Repository,
	otp OtpService,
	publisher events.EventPublisher,
	v *validator.Validator,
	otpRequired bool,
	examCfg config.ExamConfig,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		repo:        repo,
		otp:         otp,
		publisher:   publisher,
		validator:   v,
		otpRequired: otpRequired,
		examCfg:     examCfg,
		logger:      logger,
		svcLogger:   NewServiceLogger(logger, LogConfig{Service: "exam-service", Component: "registry"}),
		now:         time.Now,
	}
}

// Register creates the participant and starts their attempt in one transaction.
func (s *participantService) Register(ctx context.Context, examID uint, req *RegisterRequest) (resp *RegisterResponse, err error) {
	phone := validator.NormalizePhone(req.Phone)
	op := s.svcLogger.WithOperation(ctx, "participant.register", MaskPhone(phone))
	defer func() {
		id := ""
		if resp != nil {
			id = resp.ParticipantID
		}
		op.LogResult(id, "participant", err)
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	now := s.now()
	if exam.StatusAt(now) != models.ExamOngoing {
		return nil, ErrExamNotOngoing
	}

	if _, err := s.repo.Participant().GetByExamAndPhone(ctx, nil, examID, phone); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}

	verified, err := s.otp.IsVerified(ctx, phone)
	if err != nil {
		return nil, err
	}
	if s.otpRequired && !verified {
		return nil, ErrPhoneNotVerified
	}
	if req.Verified != verified {
		s.logger.DebugContext(ctx, "Client verification flag differs from server state",
			"client_verified", req.Verified,
			"server_verified", verified)
	}

	questions, err := s.repo.Exam().GetQuestions(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrExamHasNoQuestions
	}

	participant := &models.Participant{
		ID:        uuid.NewString(),
		ExamID:    examID,
		Name:      strings.TrimSpace(req.Name),
		Class:     strings.TrimSpace(req.Class),
		Phone:     phone,
		College:   strings.TrimSpace(req.College),
		Email:     req.Email,
		Verified:  verified,
		CreatedAt: now,
	}
	attempt := newAttempt(exam, questions, &participant.ID, nil, now)

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Participant().Create(ctx, tx, participant); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("failed to create participant: %w", err)
		}
		if err := s.repo.Attempt().Create(ctx, tx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ParticipantsRegistered.Inc()
	s.publish(ctx, events.NewEvent(events.EventParticipantRegistered, examID, events.ParticipantRegisteredEvent{
		ParticipantID: participant.ID,
		AttemptID:     attempt.ID,
		ExamID:        examID,
		Class:         participant.Class,
		College:       participant.College,
		RegisteredAt:  now,
	}))
	s.publish(ctx, events.NewEvent(events.EventAttemptStarted, examID, events.AttemptStartedEvent{
		AttemptID:     attempt.ID,
		ExamID:        examID,
		ParticipantID: attempt.ParticipantID,
		QuestionCount: len(attempt.QuestionIDs),
		StartedAt:     attempt.StartTime,
		Deadline:      attempt.Deadline,
	}))

	return &RegisterResponse{
		ParticipantID: participant.ID,
		AttemptID:     attempt.ID,
		Attempt:       buildAttemptView(exam, attempt, questions, nil, now, tabSwitchLimit(exam, s.examCfg.TabSwitchLimit)),
	}, nil
}

func (s *participantService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.Type, "error", err)
	}
}
