package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterRequest запрос регистрации по университетской почте.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

// LoginRequest запрос входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest запрос обновления пары токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// VerifyEmailRequest запрос подтверждения почты кодом.
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// ListingRequest запрос создания и редактирования объявления.
type ListingRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Category    string           `json:"category" binding:"required"`
	Condition   string           `json:"condition" binding:"required"`
	PricingMode string           `json:"pricing_mode" binding:"required"`
	Price       *decimal.Decimal `json:"price"`
	Visibility  string           `json:"visibility"`
	PhotoIDs    []string         `json:"photo_ids"`
}

// ParsePhotoIDs преобразует строковые идентификаторы фотографий в UUID.
func (r *ListingRequest) ParsePhotoIDs() ([]uuid.UUID, error) {
	return parseUUIDSlice(r.PhotoIDs)
}

// ServicePostRequest запрос создания и редактирования услуги.
type ServicePostRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Category    string           `json:"category" binding:"required"`
	PricingMode string           `json:"pricing_mode" binding:"required"`
	Price       *decimal.Decimal `json:"price"`
	Visibility  string           `json:"visibility"`
}

// PlaceBidRequest запрос на ставку.
type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// StartConversationRequest запрос открытия диалога по объявлению или услуге.
type StartConversationRequest struct {
	ListingID *string `json:"listing_id"`
	ServiceID *string `json:"service_id"`
}

// SendMessageRequest запрос отправки сообщения в диалог.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateReviewRequest запрос на отзыв о завершённой продаже.
type CreateReviewRequest struct {
	ListingID string  `json:"listing_id" binding:"required"`
	Rating    int     `json:"rating" binding:"required"`
	Comment   *string `json:"comment"`
}

// CreateReportRequest запрос жалобы на объявление.
type CreateReportRequest struct {
	ListingID string  `json:"listing_id" binding:"required"`
	Reason    string  `json:"reason" binding:"required"`
	Details   *string `json:"details"`
}

// AttachPhotosRequest запрос прикрепления фотографий к объявлению.
type AttachPhotosRequest struct {
	PhotoIDs []string `json:"photo_ids" binding:"required"`
}

// ParsePhotoIDs преобразует строковые идентификаторы фотографий в UUID.
func (r *AttachPhotosRequest) ParsePhotoIDs() ([]uuid.UUID, error) {
	return parseUUIDSlice(r.PhotoIDs)
}

// EstimatePriceRequest запрос AI оценки цены товара.
type EstimatePriceRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
}

// ChatMessage одна реплика истории диалога с AI помощником.
type ChatMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// AssistantRequest вопрос AI помощнику площадки.
type AssistantRequest struct {
	Question string        `json:"question" binding:"required"`
	History  []ChatMessage `json:"history"`
}

// parseUUIDSlice преобразует срез строк в срез UUID, пустые строки пропускаются.
func parseUUIDSlice(strs []string) ([]uuid.UUID, error) {
	if strs == nil {
		return nil, nil
	}

	var uuids []uuid.UUID
	for _, str := range strs {
		if str == "" {
			continue
		}
		parsed, err := uuid.Parse(str)
		if err != nil {
			return nil, err
		}
		uuids = append(uuids, parsed)
	}
	return uuids, nil
}
