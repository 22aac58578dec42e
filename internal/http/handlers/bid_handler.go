package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/campus-market-backend/internal/dto"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// BidHandler предоставляет HTTP слой торгов.
type BidHandler struct {
	bids     *service.BidService
	listings *service.ListingService
}

// NewBidHandler создаёт хэндлер.
func NewBidHandler(bids *service.BidService, listings *service.ListingService) *BidHandler {
	return &BidHandler{bids: bids, listings: listings}
}

// Place обрабатывает POST /listings/:id/bids.
func (h *BidHandler) Place(c *gin.Context) {
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

	var req dto.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bid, err := h.bids.PlaceBid(c.Request.Context(), listingID, userID, req.Amount)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// ListForListing обрабатывает GET /listings/:id/bids.
func (h *BidHandler) ListForListing(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bids, err := h.bids.ListBidsForListing(c.Request.Context(), listingID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	highest, err := h.bids.HighestActiveBid(c.Request.Context(), listingID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BidListResponse{
		Bids:    bids,
		Highest: highest,
	})
}

// Highest обрабатывает GET /listings/:id/bids/highest.
func (h *BidHandler) Highest(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	highest, err := h.bids.HighestActiveBid(c.Request.Context(), listingID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"highest": highest})
}

// Accept обрабатывает POST /listings/:id/bids/:bidID/accept.
func (h *BidHandler) Accept(c *gin.Context) {
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

	bidID, err := common.ParseUUIDParam(c, "bidID")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.listings.AcceptBid(c.Request.Context(), userID, listingID, bidID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "ставка принята, объявление продано"})
}

// Reject обрабатывает POST /bids/:id/reject.
func (h *BidHandler) Reject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.listings.RejectBid(c.Request.Context(), userID, bidID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "ставка отклонена"})
}

// SellerBids обрабатывает GET /bids/incoming — ставки на объявления продавца.
func (h *BidHandler) SellerBids(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	bids, err := h.bids.ListBidsForSeller(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bids)
}

// MyBids обрабатывает GET /bids/my — ставки текущего пользователя.
func (h *BidHandler) MyBids(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	bids, err := h.bids.ListBidsForBidder(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bids)
}
