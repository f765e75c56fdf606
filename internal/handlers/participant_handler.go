package handlers

import (
	"net/http"

	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

type ParticipantHandler struct {
	BaseHandler
	participantService services.ParticipantService
}

func NewParticipantHandler(participantService services.ParticipantService, logger utils.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		BaseHandler:        NewBaseHandler(logger),
		participantService: participantService,
	}
}

// Register enrolls a verified phone in a public exam and opens its attempt
// @Summary Register participant
// @Description Creates the participant and its single attempt. The attempt view carries the assigned question order.
// @Tags participants
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param request body services.RegisterRequest true "Participant details"
// @Success 201 {object} services.RegisterResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /exams/{id}/participants [post]
func (h *ParticipantHandler) Register(c *gin.Context) {
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Registering participant", "exam_id", examID)

	resp, err := h.participantService.Register(c.Request.Context(), examID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
