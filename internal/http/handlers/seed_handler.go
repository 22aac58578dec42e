package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// SeedHandler генерирует тестовые данные. Регистрируется только
// в development окружении.
type SeedHandler struct {
	seed *service.SeedService
}

// NewSeedHandler создаёт хэндлер.
func NewSeedHandler(seed *service.SeedService) *SeedHandler {
	return &SeedHandler{seed: seed}
}

// Seed обрабатывает POST /api/seed.
func (h *SeedHandler) Seed(c *gin.Context) {
	numUsers := common.ParseIntQuery(c, "num_users", 10)
	numListings := common.ParseIntQuery(c, "num_listings", 30)

	result, err := h.seed.Seed(c.Request.Context(), numUsers, numListings)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
