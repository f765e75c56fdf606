package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/cache"
	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/events"
	"github.com/anis2566/monorepo-new-sub002/internal/metrics"
	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/anis2566/monorepo-new-sub002/internal/sms"
	"github.com/anis2566/monorepo-new-sub002/internal/validator"
	"gorm.io/gorm"
)

const otpCodeDigits = 6

type otpService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	sms       sms.Dispatcher
	publisher events.EventPublisher
	validator *validator.Validator
	cfg       config.OTPConfig
	logger    *slog.Logger
	svcLogger *ServiceLogger
	now       func() time.Time
	newCode   func() (string, error)
}

func NewOtpService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	dispatcher sms.Dispatcher,
	publisher events.EventPublisher,
	v *validator.Validator,
	cfg config.OTPConfig,
	logger *slog.Logger,
) OtpService {
	return &otpService{
		repo:      repo,
		cache:     cacheService,
		sms:       dispatcher,
		publisher: publisher,
		validator: v,
		cfg:       cfg,
		logger:    logger,
		svcLogger: NewServiceLogger(logger, LogConfig{Service: "exam-service", Component: "otp"}),
		now:       time.Now,
		newCode:   generateNumericCode,
	}
}

func (s *otpService) SendCode(ctx context.Context, req *SendOtpRequest) (resp *SendOtpResponse, err error) {
	phone := validator.NormalizePhone(req.Phone)
	op := s.svcLogger.WithOperation(ctx, "otp.send", MaskPhone(phone))
	defer func() { op.LogResult("", "otp_challenge", err) }()
	defer func() { metrics.OtpSent.WithLabelValues(outcomeLabel(err)).Inc() }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	latest, err := s.repo.Otp().GetLatest(ctx, nil, phone)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to load otp challenge: %w", err)
	}
	if latest != nil {
		if wait := latest.CooldownRemaining(now); wait > 0 {
			return nil, &RateLimitError{RetryAfterSeconds: ceilSeconds(wait)}
		}
	}

	sends, err := s.cache.IncrWindow(ctx, cache.OtpSendCounterKey(phone), s.cfg.SendWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "OTP send counter unavailable", "error", err)
	} else if sends > int64(s.cfg.MaxSendsPerWindow) {
		op.LogSecurity(SecurityEventRateLimitExceeded, SecuritySeverityMedium,
			"OTP send window exhausted", map[string]interface{}{"sends": sends})
		return nil, &RateLimitError{RetryAfterSeconds: ceilSeconds(s.cfg.SendWindow)}
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	challenge := &models.OtpChallenge{
		Phone:             phone,
		Code:              code,
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.cfg.CodeTTL),
		ResendAt:          now.Add(s.cfg.ResendCooldown),
		AttemptsRemaining: s.cfg.MaxVerifyAttempts,
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Otp().SupersedeActive(ctx, tx, phone); err != nil {
			return err
		}
		return s.repo.Otp().Create(ctx, tx, challenge)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store otp challenge: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	if sendErr := s.sms.SendOTP(sendCtx, phone, code); sendErr != nil {
		// Undelivered codes must not hold the cooldown.
		if err := s.repo.Otp().SupersedeActive(ctx, nil, phone); err != nil {
			s.logger.ErrorContext(ctx, "Failed to retire undelivered code", "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSMSDispatchFailed, sendErr)
	}

	s.publish(ctx, events.NewEvent(events.EventOtpSent, 0, events.OtpSentEvent{
		Phone:  MaskPhone(phone),
		SentAt: now,
	}))

	return &SendOtpResponse{
		Phone:              phone,
		ExpiresAt:          challenge.ExpiresAt,
		ExpiresInSeconds:   ceilSeconds(s.cfg.CodeTTL),
		ResendAfterSeconds: ceilSeconds(s.cfg.ResendCooldown),
	}, nil
}

func (s *otpService) VerifyCode(ctx context.Context, req *VerifyOtpRequest) (resp *VerifyOtpResponse, err error) {
	phone := validator.NormalizePhone(req.Phone)
	op := s.svcLogger.WithOperation(ctx, "otp.verify", MaskPhone(phone))
	defer func() { op.LogResult("", "otp_challenge", err) }()
	defer func() { metrics.OtpVerified.WithLabelValues(outcomeLabel(err)).Inc() }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	challenge, err := s.repo.Otp().GetLatest(ctx, nil, phone)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to load otp challenge: %w", err)
	}

	now := s.now()
	switch challenge.StateAt(now) {
	case models.OtpConsumed:
		return nil, ErrCodeAlreadyUsed
	case models.OtpExhausted:
		return nil, ErrTooManyAttempts
	case models.OtpExpired:
		return nil, ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(req.Code)) != 1 {
		taken, err := s.repo.Otp().DecrementAttempts(ctx, nil, challenge.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		if !taken {
			return nil, ErrTooManyAttempts
		}
		if challenge.AttemptsRemaining <= 1 {
			op.LogSecurity(SecurityEventCodeExhausted, SecuritySeverityLow,
				"OTP challenge exhausted", map[string]interface{}{"challenge_id": challenge.ID})
		}
		return nil, ErrInvalidCode
	}

	consumed, err := s.repo.Otp().Consume(ctx, nil, challenge.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume code: %w", err)
	}
	if !consumed {
		return nil, ErrCodeAlreadyUsed
	}

	return &VerifyOtpResponse{
		Verified:   true,
		ValidUntil: now.Add(s.cfg.VerificationWindow),
	}, nil
}

func (s *otpService) IsVerified(ctx context.Context, phone string) (bool, error) {
	since := s.now().Add(-s.cfg.VerificationWindow)
	verified, err := s.repo.Otp().HasConsumedSince(ctx, nil, validator.NormalizePhone(phone), since)
	if err != nil {
		return false, fmt.Errorf("failed to check verification: %w", err)
	}
	return verified, nil
}

func (s *otpService) PruneExpired(ctx context.Context, before time.Time) (int64, error) {
	deleted, err := s.repo.Otp().DeleteExpiredBefore(ctx, nil, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune otp challenges: %w", err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "Pruned expired OTP challenges", "count", deleted)
	}
	return deleted, nil
}

func (s *otpService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.Type, "error", err)
	}
}

func generateNumericCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpCodeDigits, n.Int64()), nil
}

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsThrottled(err):
		return "throttled"
	case IsValidation(err):
		return "invalid_request"
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrCodeExpired), errors.Is(err, ErrCodeAlreadyUsed):
		return "rejected"
	default:
		return "failed"
	}
}
