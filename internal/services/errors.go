package services

import (
	"errors"
	"fmt"

	apperrors "github.com/anis2566/monorepo-new-sub002/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Access errors
	ErrForbidden = errors.New("forbidden - caller does not own this resource")

	// OTP errors
	ErrRateLimited       = errors.New("too many code requests, try again later")
	ErrCodeExpired       = errors.New("verification code has expired")
	ErrInvalidCode       = errors.New("verification code is invalid")
	ErrTooManyAttempts   = errors.New("too many wrong codes, request a new one")
	ErrCodeAlreadyUsed   = errors.New("verification code was already used")
	ErrSMSDispatchFailed = errors.New("failed to deliver verification code")

	// Registration errors
	ErrPhoneNotVerified  = errors.New("phone number has not been verified")
	ErrAlreadyRegistered = errors.New("phone number is already registered for this exam")
	ErrExamNotOngoing    = errors.New("exam is not running")
	ErrExamNotFound      = errors.New("exam not found")
	ErrStudentNotFound   = errors.New("student not found")

	// Attempt errors
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptFinalized     = errors.New("attempt is already finalized")
	ErrAttemptInProgress    = errors.New("attempt is still in progress")
	ErrQuestionNotInAttempt = errors.New("question is not part of this attempt")
	ErrInvalidOption        = errors.New("selected option does not exist")
	ErrInvalidAnswerKey     = errors.New("question answer key cannot be resolved")
	ErrExamHasNoQuestions   = errors.New("exam has no questions")

	// Ranking errors
	ErrInvalidLeaderboardVariant = errors.New("unknown leaderboard variant")
	ErrStorageDisabled           = errors.New("object storage is not configured")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	ActorID    string `json:"actor_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s cannot %s %s %s - %s",
		pe.ActorID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// Is lets errors.Is(err, ErrForbidden) match permission failures.
func (pe *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// RateLimitError carries how long the caller has to wait.
type RateLimitError struct {
	RetryAfterSeconds int `json:"retry_after_seconds"`
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %ds)", ErrRateLimited.Error(), e.RetryAfterSeconds)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(actorID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		ActorID:    actorID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrStudentNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrAttemptFinalized) ||
		errors.Is(err, ErrAttemptInProgress)
}

// IsThrottled checks if the caller should back off and retry later
func IsThrottled(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTooManyAttempts)
}
