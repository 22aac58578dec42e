package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusmarket/campus-market-backend/internal/logger"
	"github.com/campusmarket/campus-market-backend/internal/models"
)

// EstimatePrice оценивает справедливую цену товара по описанию.
// При недоступности провайдера возвращается эвристическая оценка.
func (c *Client) EstimatePrice(ctx context.Context, title, description, category, condition string) (*models.PriceEstimate, error) {
	systemPrompt := `Ты — помощник студенческой барахолки. Оцени справедливую цену товара в рублях.
Отвечай СТРОГО в формате JSON:
{
  "price_min": число,
  "price_max": число,
  "currency": "RUB",
  "reasoning": "краткое обоснование на русском (2-3 предложения)"
}
Учитывай, что покупатели — студенты, цены должны быть реалистичными для вторичного рынка.`

	userPrompt := fmt.Sprintf("Название: %s\nКатегория: %s\nСостояние: %s\nОписание: %s",
		title, category, condition, description)

	messages := []map[string]string{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": userPrompt},
	}

	response, err := c.chatCompletionWithOptions(ctx, messages, 512, 0.2)
	if err != nil {
		logger.Warnf("AI оценка цены недоступна, используется эвристика: %v", err)
		return fallbackEstimate(category, condition), nil
	}

	parsed := parseJSONFromText(response)
	priceMin, okMin := toFloat(parsed["price_min"])
	priceMax, okMax := toFloat(parsed["price_max"])

	if !okMin || !okMax || priceMin <= 0 || priceMax < priceMin {
		// Ответ не в формате JSON — отдаём текст как обоснование
		// поверх эвристических границ.
		estimate := fallbackEstimate(category, condition)
		if text := strings.TrimSpace(response); text != "" {
			estimate.Reasoning = text
		}
		return estimate, nil
	}

	estimate := &models.PriceEstimate{
		PriceMin: priceMin,
		PriceMax: priceMax,
		Currency: "RUB",
	}
	if currency, ok := parsed["currency"].(string); ok && currency != "" {
		estimate.Currency = currency
	}
	if reasoning, ok := parsed["reasoning"].(string); ok {
		estimate.Reasoning = reasoning
	}

	return estimate, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// базовые цены по категориям для эвристической оценки, в рублях
var categoryBasePrices = map[string]float64{
	"books":       800,
	"electronics": 12000,
	"furniture":   5000,
	"clothing":    1500,
	"sports":      3000,
	"tickets":     1000,
	"housing":     15000,
	"other":       2000,
}

var conditionFactors = map[string]float64{
	"new":      1.0,
	"like_new": 0.8,
	"good":     0.6,
	"fair":     0.45,
	"poor":     0.3,
}

func fallbackEstimate(category, condition string) *models.PriceEstimate {
	base, ok := categoryBasePrices[category]
	if !ok {
		base = categoryBasePrices["other"]
	}

	factor, ok := conditionFactors[condition]
	if !ok {
		factor = 0.6
	}

	mid := base * factor
	return &models.PriceEstimate{
		PriceMin: mid * 0.7,
		PriceMax: mid * 1.3,
		Currency: "RUB",
		Reasoning: "Автоматическая оценка недоступна, показан типичный диапазон цен " +
			"для этой категории и состояния. Сравните с похожими объявлениями перед публикацией.",
	}
}
