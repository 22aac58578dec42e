package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/campusmarket/campus-market-backend/internal/dto"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/repository"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// ListingHandler предоставляет HTTP слой объявлений.
type ListingHandler struct {
	listings *service.ListingService
	auth     *service.AuthService
}

// NewListingHandler создаёт хэндлер.
func NewListingHandler(listings *service.ListingService, auth *service.AuthService) *ListingHandler {
	return &ListingHandler{listings: listings, auth: auth}
}

// Create обрабатывает POST /listings.
func (h *ListingHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	photoIDs, err := req.ParsePhotoIDs()
	if err != nil {
		common.RespondBadRequest(c, "некорректные идентификаторы фотографий")
		return
	}

	listing, err := h.listings.CreateListing(c.Request.Context(), userID, service.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		PricingMode: req.PricingMode,
		Price:       req.Price,
		Visibility:  defaultVisibility(req.Visibility),
		PhotoIDs:    photoIDs,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// Get обрабатывает GET /listings/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.listings.GetListing(c.Request.Context(), listingID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// Update обрабатывает PUT /listings/:id.
func (h *ListingHandler) Update(c *gin.Context) {
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

	var req dto.ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.listings.UpdateListing(c.Request.Context(), userID, listingID, service.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		PricingMode: req.PricingMode,
		Price:       req.Price,
		Visibility:  defaultVisibility(req.Visibility),
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// Browse обрабатывает GET /listings — выдача активных объявлений по фильтрам.
func (h *ListingHandler) Browse(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	// Университет зрителя ограничивает выдачу объявлений
	// с visibility=university.
	viewer, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	params := repository.ListingSearchParams{
		Query:       c.Query("q"),
		Category:    c.Query("category"),
		Condition:   c.Query("condition"),
		PricingMode: c.Query("pricing_mode"),
		University:  viewer.University,
		Limit:       limit,
		Offset:      offset,
	}

	if raw := c.Query("min_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			common.RespondBadRequest(c, "некорректное значение min_price")
			return
		}
		params.MinPrice = &price
	}
	if raw := c.Query("max_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			common.RespondBadRequest(c, "некорректное значение max_price")
			return
		}
		params.MaxPrice = &price
	}

	result, err := h.listings.BrowseListings(c.Request.Context(), params)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListingPageResponse{
		Items:   result.Items,
		Total:   result.Total,
		HasMore: result.HasMore,
	})
}

// My обрабатывает GET /listings/my — объявления владельца в любом статусе.
func (h *ListingHandler) My(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	listings, err := h.listings.MyListings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

// Delete обрабатывает DELETE /listings/:id.
func (h *ListingHandler) Delete(c *gin.Context) {
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

	if err := h.listings.DeleteListing(c.Request.Context(), userID, listingID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkSold обрабатывает POST /listings/:id/sold — продажа вне торгов.
func (h *ListingHandler) MarkSold(c *gin.Context) {
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

	if err := h.listings.MarkSold(c.Request.Context(), userID, listingID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "объявление помечено проданным"})
}

// AttachPhotos обрабатывает POST /listings/:id/photos.
func (h *ListingHandler) AttachPhotos(c *gin.Context) {
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

	var req dto.AttachPhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	photoIDs, err := req.ParsePhotoIDs()
	if err != nil || len(photoIDs) == 0 {
		common.RespondBadRequest(c, "некорректные идентификаторы фотографий")
		return
	}

	if err := h.listings.AttachPhotos(c.Request.Context(), userID, listingID, photoIDs); err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "фотографии прикреплены"})
}

// DetachPhoto обрабатывает DELETE /listings/:id/photos/:photoID.
func (h *ListingHandler) DetachPhoto(c *gin.Context) {
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

	photoID, err := common.ParseUUIDParam(c, "photoID")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.listings.DetachPhoto(c.Request.Context(), userID, listingID, photoID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// defaultVisibility подставляет видимость по умолчанию.
func defaultVisibility(v string) string {
	if v == "" {
		return models.VisibilityUniversity
	}
	return v
}
