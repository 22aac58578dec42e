package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmarket/campus-market-backend/internal/ai"
	"github.com/campusmarket/campus-market-backend/internal/dto"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
)

// AIHandler предоставляет HTTP слой AI помощников: оценка цены и вопросы
// о работе площадки.
type AIHandler struct {
	estimator *ai.Client
	assistant *ai.Client
}

// NewAIHandler создаёт хэндлер. Оценка цены и помощник могут ходить
// к разным провайдерам.
func NewAIHandler(estimator, assistant *ai.Client) *AIHandler {
	return &AIHandler{estimator: estimator, assistant: assistant}
}

// EstimatePrice обрабатывает POST /ai/estimate-price.
func (h *AIHandler) EstimatePrice(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.EstimatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	estimate, err := h.estimator.EstimatePrice(c.Request.Context(),
		req.Title, req.Description, req.Category, req.Condition)
	if err != nil {
		common.RespondError(c, apperror.ErrUpstreamUnavailable)
		return
	}

	c.JSON(http.StatusOK, estimate)
}

// Ask обрабатывает POST /ai/assistant.
func (h *AIHandler) Ask(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	history := make([]map[string]string, 0, len(req.History))
	for _, msg := range req.History {
		history = append(history, map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}

	answer, err := h.assistant.Ask(c.Request.Context(), req.Question, history)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			common.RespondError(c, apperror.ErrUpstreamUnavailable)
			return
		}
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AssistantResponse{Answer: answer})
}
