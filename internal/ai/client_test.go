package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusmarket/campus-market-backend/internal/models"
)

// chatServer поднимает OpenAI-совместимый endpoint, отвечающий content.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotEmpty(t, payload["messages"])

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_ChatCompletion(t *testing.T) {
	srv := chatServer(t, "привет")
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	answer, err := client.chatCompletion(context.Background(), []map[string]string{
		{"role": "user", "content": "hi"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "привет", answer)
}

func TestClient_ChatCompletion_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	_, err := client.chatCompletion(context.Background(), []map[string]string{
		{"role": "user", "content": "hi"},
	})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_ChatCompletion_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	_, err := client.chatCompletion(context.Background(), []map[string]string{
		{"role": "user", "content": "hi"},
	})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_EstimatePrice_ParsesJSON(t *testing.T) {
	srv := chatServer(t, `{"price_min": 800, "price_max": 1200, "currency": "RUB", "reasoning": "учебник в хорошем состоянии"}`)
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	estimate, err := client.EstimatePrice(context.Background(), "Учебник по матанализу", "Без пометок", models.CategoryBooks, models.ConditionGood)

	assert.NoError(t, err)
	assert.Equal(t, 800.0, estimate.PriceMin)
	assert.Equal(t, 1200.0, estimate.PriceMax)
	assert.Equal(t, "RUB", estimate.Currency)
	assert.NotEmpty(t, estimate.Reasoning)
}

func TestClient_EstimatePrice_MarkdownBlock(t *testing.T) {
	srv := chatServer(t, "Вот оценка:\n```json\n{\"price_min\": 500, \"price_max\": 700, \"currency\": \"RUB\", \"reasoning\": \"ок\"}\n```")
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	estimate, err := client.EstimatePrice(context.Background(), "Лампа", "Настольная лампа", models.CategoryOther, models.ConditionGood)

	assert.NoError(t, err)
	assert.Equal(t, 500.0, estimate.PriceMin)
	assert.Equal(t, 700.0, estimate.PriceMax)
}

func TestClient_EstimatePrice_FallbackOnUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	// Недоступный провайдер деградирует до эвристики, не до ошибки.
	estimate, err := client.EstimatePrice(context.Background(), "Ноутбук", "Рабочий", models.CategoryElectronics, models.ConditionGood)

	assert.NoError(t, err)
	assert.NotNil(t, estimate)
	assert.Greater(t, estimate.PriceMin, 0.0)
	assert.Greater(t, estimate.PriceMax, estimate.PriceMin)
	assert.Equal(t, "RUB", estimate.Currency)
}

func TestClient_EstimatePrice_NonJSONAnswer(t *testing.T) {
	srv := chatServer(t, "Примерно тысяча рублей, зависит от состояния.")
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	estimate, err := client.EstimatePrice(context.Background(), "Лампа", "Настольная", models.CategoryOther, models.ConditionFair)

	assert.NoError(t, err)
	assert.Greater(t, estimate.PriceMax, estimate.PriceMin)
}

func TestClient_Ask(t *testing.T) {
	srv := chatServer(t, "  Начните с раздела объявлений.  ")
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	answer, err := client.Ask(context.Background(), "Как продать учебник?", []map[string]string{
		{"role": "user", "content": "Привет"},
		{"role": "assistant", "content": "Здравствуйте!"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "Начните с раздела объявлений.", answer)
}

func TestClient_Ask_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	_, err := client.Ask(context.Background(), "вопрос", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseJSONFromText(t *testing.T) {
	got := parseJSONFromText(`текст до {"a": 1} текст после`)
	assert.Equal(t, float64(1), got["a"])

	got = parseJSONFromText("```json\n{\"b\": \"x\"}\n```")
	assert.Equal(t, "x", got["b"])

	got = parseJSONFromText("никакого json здесь нет")
	assert.Empty(t, got)
}
