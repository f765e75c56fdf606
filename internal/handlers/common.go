package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Stable machine-readable error kinds returned in ErrorResponse.Code.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidCode        = "INVALID_CODE"
	CodeCodeExpired        = "CODE_EXPIRED"
	CodeCodeAlreadyUsed    = "CODE_ALREADY_USED"
	CodeInvalidAnswer      = "INVALID_ANSWER"
	CodeInvalidVariant     = "INVALID_VARIANT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeExamNotFound       = "EXAM_NOT_FOUND"
	CodeAttemptNotFound    = "ATTEMPT_NOT_FOUND"
	CodeStudentNotFound    = "STUDENT_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyRegistered  = "ALREADY_REGISTERED"
	CodeAttemptFinalized   = "ATTEMPT_FINALIZED"
	CodeAttemptInProgress  = "ATTEMPT_IN_PROGRESS"
	CodeExamNotOngoing     = "EXAM_NOT_ONGOING"
	CodePhoneNotVerified   = "PHONE_NOT_VERIFIED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeSMSFailed          = "SMS_DISPATCH_FAILED"
	CodeStorageDisabled    = "STORAGE_DISABLED"
	CodeExamMisconfigured  = "EXAM_MISCONFIGURED"
	CodeInternalError      = "INTERNAL_ERROR"
	participantIDHeader    = "X-Participant-ID"
	participantIDQueryName = "participant_id"
)

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error mapping for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// requestLogger returns the logger installed by utils.ContextLogger, carrying
// request_id, method and path.
func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	if _, ok := c.Get("logger"); ok {
		return utils.GetLoggerFromContext(c, h.logger)
	}
	return h.logger.With(
		"request_id", c.GetHeader("X-Request-ID"),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"remote_addr", c.ClientIP(),
		"timestamp", time.Now().Format(time.RFC3339),
	}
	fields = append(fields, additionalFields...)

	h.requestLogger(c).Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	h.requestLogger(c).LogError(err, message, additionalFields...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	h.requestLogger(c).Warn(message, additionalFields...)
}

// RespondWithError sends a consistent error response and logs it. Server side
// failures are logged at error level, client mistakes at warn.
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, code, message string, err error, details ...interface{}) {
	resp := ErrorResponse{
		Message: message,
		Code:    code,
	}
	if len(details) > 0 {
		resp.Details = details[0]
	}

	if statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode, "code", code)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "code", code, "error", err)
	}

	c.AbortWithStatusJSON(statusCode, resp)
}

// handleServiceError maps service errors onto HTTP statuses and stable codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, CodeValidationFailed, "Validation failed", err, validationErrors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, CodeForbidden, "Access denied", err, map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	var rateLimitError *services.RateLimitError
	if errors.As(err, &rateLimitError) {
		c.Header("Retry-After", strconv.Itoa(rateLimitError.RetryAfterSeconds))
		h.RespondWithError(c, http.StatusTooManyRequests, CodeRateLimited, rateLimitError.Error(), err, map[string]interface{}{
			"retry_after_seconds": rateLimitError.RetryAfterSeconds,
		})
		return
	}

	switch {
	// 400
	case errors.Is(err, services.ErrCodeExpired):
		h.RespondWithError(c, http.StatusBadRequest, CodeCodeExpired, "Verification code has expired", err)
	case errors.Is(err, services.ErrInvalidCode):
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidCode, "Verification code is invalid", err)
	case errors.Is(err, services.ErrCodeAlreadyUsed):
		h.RespondWithError(c, http.StatusBadRequest, CodeCodeAlreadyUsed, "Verification code was already used", err)
	case errors.Is(err, services.ErrQuestionNotInAttempt), errors.Is(err, services.ErrInvalidOption):
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidAnswer, err.Error(), err)
	case errors.Is(err, services.ErrInvalidLeaderboardVariant):
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidVariant, "Unknown leaderboard variant", err)

	// 403
	case errors.Is(err, services.ErrForbidden):
		h.RespondWithError(c, http.StatusForbidden, CodeForbidden, "Access denied", err)

	// 404
	case errors.Is(err, services.ErrExamNotFound):
		h.RespondWithError(c, http.StatusNotFound, CodeExamNotFound, "Exam not found", err)
	case errors.Is(err, services.ErrAttemptNotFound):
		h.RespondWithError(c, http.StatusNotFound, CodeAttemptNotFound, "Attempt not found", err)
	case errors.Is(err, services.ErrStudentNotFound):
		h.RespondWithError(c, http.StatusNotFound, CodeStudentNotFound, "Student not found", err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, CodeNotFound, "Resource not found", err)

	// 409
	case errors.Is(err, services.ErrAlreadyRegistered):
		h.RespondWithError(c, http.StatusConflict, CodeAlreadyRegistered, "Phone number is already registered for this exam", err)
	case errors.Is(err, services.ErrAttemptFinalized):
		h.RespondWithError(c, http.StatusConflict, CodeAttemptFinalized, "Attempt is already finalized", err)
	case errors.Is(err, services.ErrAttemptInProgress):
		h.RespondWithError(c, http.StatusConflict, CodeAttemptInProgress, "Attempt is still in progress", err)

	// 422
	case errors.Is(err, services.ErrExamNotOngoing):
		h.RespondWithError(c, http.StatusUnprocessableEntity, CodeExamNotOngoing, "Exam is not running", err)
	case errors.Is(err, services.ErrPhoneNotVerified):
		h.RespondWithError(c, http.StatusUnprocessableEntity, CodePhoneNotVerified, "Phone number has not been verified", err)

	// 429
	case errors.Is(err, services.ErrTooManyAttempts):
		h.RespondWithError(c, http.StatusTooManyRequests, CodeTooManyAttempts, "Too many wrong codes, request a new one", err)
	case errors.Is(err, services.ErrRateLimited):
		h.RespondWithError(c, http.StatusTooManyRequests, CodeRateLimited, "Too many code requests, try again later", err)

	// 5xx
	case errors.Is(err, services.ErrSMSDispatchFailed):
		h.RespondWithError(c, http.StatusBadGateway, CodeSMSFailed, "Failed to deliver verification code", err)
	case errors.Is(err, services.ErrStorageDisabled):
		h.RespondWithError(c, http.StatusServiceUnavailable, CodeStorageDisabled, "Object storage is not configured", err)
	case errors.Is(err, services.ErrExamHasNoQuestions), errors.Is(err, services.ErrInvalidAnswerKey):
		h.RespondWithError(c, http.StatusInternalServerError, CodeExamMisconfigured, "Exam is misconfigured", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, CodeInternalError, "Internal server error", err)
	}
}

// bindJSON decodes the body and answers 400 on malformed input.
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload", err, err.Error())
		return false
	}
	return true
}

// bindQuery decodes query parameters and answers 400 on malformed input.
func (h *BaseHandler) bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid query parameters", err, err.Error())
		return false
	}
	return true
}
