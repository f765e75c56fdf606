package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RankingHandler struct {
	BaseHandler
	rankingService services.RankingService
	exportService  services.ExportService
}

func NewRankingHandler(rankingService services.RankingService, exportService services.ExportService, logger utils.Logger) *RankingHandler {
	return &RankingHandler{
		BaseHandler:    NewBaseHandler(logger),
		rankingService: rankingService,
		exportService:  exportService,
	}
}

// GetMeritList returns the ranked finalized attempts of an exam
// @Summary Get merit list
// @Tags rankings
// @Produce json
// @Param id path uint true "Exam ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.MeritList
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/merit-list [get]
func (h *RankingHandler) GetMeritList(c *gin.Context) {
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var query services.MeritListQuery
	if !h.bindQuery(c, &query) {
		return
	}

	list, err := h.rankingService.GetMeritList(c.Request.Context(), examID, query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// ExportMeritList streams the full merit list as an Excel workbook
// @Summary Export merit list
// @Tags rankings
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Exam ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/merit-list/export [get]
func (h *RankingHandler) ExportMeritList(c *gin.Context) {
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.ExportMeritList(c.Request.Context(), examID, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("merit-list-exam-%d.xlsx", examID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ArchiveMeritList uploads the workbook to object storage
// @Summary Archive merit list
// @Tags rankings
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 201 {object} SuccessResponse{data=services.ArchiveResult}
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /exams/{id}/merit-list/archive [post]
func (h *RankingHandler) ArchiveMeritList(c *gin.Context) {
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.exportService.ArchiveMeritList(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Merit list archived",
		Data:    result,
	})
}

// GetLeaderboard ranks students across exams
// @Summary Get leaderboard
// @Tags rankings
// @Produce json
// @Param variant query string false "overall, weekly or streak"
// @Param student_id query string false "Include this student's own row"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.Leaderboard
// @Failure 400 {object} ErrorResponse
// @Router /leaderboard [get]
func (h *RankingHandler) GetLeaderboard(c *gin.Context) {
	var query services.LeaderboardQuery
	if !h.bindQuery(c, &query) {
		return
	}

	board, err := h.rankingService.GetLeaderboard(c.Request.Context(), query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, board)
}
