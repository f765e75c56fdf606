package handlers

import (
	"net/http"

	"github.com/anis2566/monorepo-new-sub002/internal/services"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	BaseHandler
	catalogService services.CatalogService
}

func NewCatalogHandler(catalogService services.CatalogService, logger utils.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler:    NewBaseHandler(logger),
		catalogService: catalogService,
	}
}

// GetExam returns public exam metadata with its current status
// @Summary Get exam summary
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.ExamSummary
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *CatalogHandler) GetExam(c *gin.Context) {
	examID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.catalogService.GetExamSummary(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListClasses returns the class choices offered on the registration form
// @Summary List class options
// @Tags exams
// @Produce json
// @Success 200 {array} models.ClassOption
// @Router /classes [get]
func (h *CatalogHandler) ListClasses(c *gin.Context) {
	options, err := h.catalogService.ListClassOptions(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, options)
}
