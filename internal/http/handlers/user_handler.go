package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// UserHandler отдаёт публичные профили пользователей.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler создаёт хэндлер.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// PublicProfile обрабатывает GET /users/:id — публичный профиль с рейтингом.
func (h *UserHandler) PublicProfile(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.users.GetPublicProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
