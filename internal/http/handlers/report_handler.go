package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/dto"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// ReportHandler предоставляет HTTP слой жалоб.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler создаёт хэндлер.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Submit обрабатывает POST /reports.
func (h *ReportHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный listing_id")
		return
	}

	report, err := h.reports.SubmitReport(c.Request.Context(), userID, listingID, req.Reason, req.Details)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}
