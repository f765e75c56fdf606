package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/anis2566/monorepo-new-sub002/internal/middleware"
	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

type participantBody struct {
	ParticipantID string `json:"participant_id"`
}

// StartStudentAttempt starts or resumes the authenticated student's attempt
// @Summary Start student attempt
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.AttemptView
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /student/exams/{id}/attempts [post]
func (h *AttemptHandler) StartStudentAttempt(c *gin.Context) {
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.attemptService.StartForStudent(c.Request.Context(), examID, middleware.StudentID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetAttempt returns the attempt as the owner sees it while answering
// @Summary Get attempt
// @Description Questions in assigned order with permuted options. Never includes answers.
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Param X-Participant-ID header string false "Participant ID"
// @Success 200 {object} services.AttemptView
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c, "")
	if !ok {
		return
	}

	view, err := h.attemptService.Get(c.Request.Context(), attemptID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitAnswer records or replaces the selection for one question
// @Summary Submit answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param request body services.SubmitAnswerRequest true "Answer"
// @Success 200 {object} services.AnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/answers [post]
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	attemptID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.requireActor(c, req.ParticipantID)
	if !ok {
		return
	}

	resp, err := h.attemptService.SubmitAnswer(c.Request.Context(), attemptID, actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecordTabSwitch counts a focus loss. Reaching the limit auto-submits.
// @Summary Record tab switch
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.TabSwitchResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/tab-switch [post]
func (h *AttemptHandler) RecordTabSwitch(c *gin.Context) {
	attemptID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var body participantBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload", err, err.Error())
		return
	}
	actor, ok := h.requireActor(c, body.ParticipantID)
	if !ok {
		return
	}

	resp, err := h.attemptService.RecordTabSwitch(c.Request.Context(), attemptID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitAttempt finalizes the attempt. Repeating it returns the stored result.
// @Summary Submit attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param request body services.SubmitAttemptRequest true "Submission reason"
// @Success 200 {object} services.AttemptResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := h.requireActor(c, req.ParticipantID)
	if !ok {
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Attempt submitted", "attempt_id", attemptID, "status", result.Status)
	c.JSON(http.StatusOK, result)
}

// GetResult returns the score breakdown with the answer review
// @Summary Get attempt result
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Param X-Participant-ID header string false "Participant ID"
// @Success 200 {object} services.AttemptResult
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/result [get]
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attemptID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c, "")
	if !ok {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), attemptID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
