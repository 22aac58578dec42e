package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/campus-market-backend/internal/dto"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// ServicePostHandler предоставляет HTTP слой объявлений об услугах.
type ServicePostHandler struct {
	services *service.ServicePostService
}

// NewServicePostHandler создаёт хэндлер.
func NewServicePostHandler(services *service.ServicePostService) *ServicePostHandler {
	return &ServicePostHandler{services: services}
}

// Create обрабатывает POST /services.
func (h *ServicePostHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.ServicePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	post, err := h.services.CreateServicePost(c.Request.Context(), userID, service.ServicePostInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PricingMode: req.PricingMode,
		Price:       req.Price,
		Visibility:  defaultVisibility(req.Visibility),
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// Get обрабатывает GET /services/:id.
func (h *ServicePostHandler) Get(c *gin.Context) {
	postID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	post, err := h.services.GetServicePost(c.Request.Context(), postID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// Browse обрабатывает GET /services.
func (h *ServicePostHandler) Browse(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	posts, err := h.services.BrowseServicePosts(c.Request.Context(), c.Query("category"), limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, posts)
}

// My обрабатывает GET /services/my.
func (h *ServicePostHandler) My(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	posts, err := h.services.MyServicePosts(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, posts)
}

// Update обрабатывает PUT /services/:id.
func (h *ServicePostHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	postID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ServicePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	post, err := h.services.UpdateServicePost(c.Request.Context(), userID, postID, service.ServicePostInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PricingMode: req.PricingMode,
		Price:       req.Price,
		Visibility:  defaultVisibility(req.Visibility),
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// Delete обрабатывает DELETE /services/:id.
func (h *ServicePostHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	postID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.services.DeleteServicePost(c.Request.Context(), userID, postID); err != nil {
		common.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
