package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anis2566/monorepo-new-sub002/internal/middleware"
	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/gin-gonic/gin"
)

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid "+param, err, "ID must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) parseStringIDParam(c *gin.Context, param string) (string, bool) {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid "+param, nil, "ID cannot be empty")
		return "", false
	}
	return id, true
}

// actorFrom resolves who is acting on an attempt. An authenticated student
// wins; otherwise the participant id comes from the body, the
// X-Participant-ID header or the participant_id query parameter.
func actorFrom(c *gin.Context, bodyParticipantID string) services.Actor {
	if studentID := middleware.StudentID(c); studentID != "" {
		return services.Actor{StudentID: studentID}
	}

	participantID := strings.TrimSpace(bodyParticipantID)
	if participantID == "" {
		participantID = strings.TrimSpace(c.GetHeader(participantIDHeader))
	}
	if participantID == "" {
		participantID = strings.TrimSpace(c.Query(participantIDQueryName))
	}
	return services.Actor{ParticipantID: participantID}
}

// requireActor answers 401 when the caller did not identify itself.
func (h *BaseHandler) requireActor(c *gin.Context, bodyParticipantID string) (services.Actor, bool) {
	actor := actorFrom(c, bodyParticipantID)
	if actor.ParticipantID == "" && actor.StudentID == "" {
		h.RespondWithError(c, http.StatusUnauthorized, CodeUnauthorized, "Participant id required", nil)
		return actor, false
	}
	return actor, true
}
