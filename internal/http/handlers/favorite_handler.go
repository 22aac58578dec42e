package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/campus-market-backend/internal/dto"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// FavoriteHandler предоставляет HTTP слой избранного.
type FavoriteHandler struct {
	favorites *service.FavoriteService
}

// NewFavoriteHandler создаёт хэндлер.
func NewFavoriteHandler(favorites *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// Save обрабатывает POST /listings/:id/favorite.
func (h *FavoriteHandler) Save(c *gin.Context) {
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

	if err := h.favorites.Save(c.Request.Context(), userID, listingID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "объявление сохранено"})
}

// Unsave обрабатывает DELETE /listings/:id/favorite.
func (h *FavoriteHandler) Unsave(c *gin.Context) {
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

	if err := h.favorites.Unsave(c.Request.Context(), userID, listingID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// IsSaved обрабатывает GET /listings/:id/favorite.
func (h *FavoriteHandler) IsSaved(c *gin.Context) {
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

	saved, err := h.favorites.IsSaved(c.Request.Context(), userID, listingID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// List обрабатывает GET /favorites.
func (h *FavoriteHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	listings, err := h.favorites.ListSaved(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}
