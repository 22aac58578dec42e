package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/campus-market-backend/internal/dto"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// ModerationHandler предоставляет HTTP слой модерации: очередь объявлений
// и разбор жалоб. Роль проверяется и в middleware, и в сервисах.
type ModerationHandler struct {
	listings *service.ListingService
	reports  *service.ReportService
}

// NewModerationHandler создаёт хэндлер.
func NewModerationHandler(listings *service.ListingService, reports *service.ReportService) *ModerationHandler {
	return &ModerationHandler{listings: listings, reports: reports}
}

// Queue обрабатывает GET /moderation/listings — очередь модерации.
func (h *ModerationHandler) Queue(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	listings, err := h.listings.ListPendingModeration(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

// Approve обрабатывает POST /moderation/listings/:id/approve.
func (h *ModerationHandler) Approve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.listings.ApproveListing(c.Request.Context(), userID, listingID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "объявление опубликовано"})
}

// Reject обрабатывает POST /moderation/listings/:id/reject.
func (h *ModerationHandler) Reject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.listings.RejectListing(c.Request.Context(), userID, listingID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "объявление отклонено"})
}

// OpenReports обрабатывает GET /moderation/reports.
func (h *ModerationHandler) OpenReports(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	reports, err := h.reports.ListOpenReports(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reports)
}

// ResolveReport обрабатывает POST /moderation/reports/:id/resolve.
func (h *ModerationHandler) ResolveReport(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.reports.ResolveReport(c.Request.Context(), userID, reportID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "жалоба признана обоснованной"})
}

// DismissReport обрабатывает POST /moderation/reports/:id/dismiss.
func (h *ModerationHandler) DismissReport(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.reports.DismissReport(c.Request.Context(), userID, reportID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "жалоба отклонена"})
}
