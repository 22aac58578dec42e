package dto

import (
	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// ErrorResponse стандартный формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа без данных.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse ответ на регистрацию, вход и обновление токенов.
type AuthResponse struct {
	User   *models.User       `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// ListingPageResponse страница выдачи объявлений.
type ListingPageResponse struct {
	Items   []models.Listing `json:"items"`
	Total   int              `json:"total"`
	HasMore bool             `json:"has_more"`
}

// BidListResponse ставки по объявлению вместе с текущим максимумом.
type BidListResponse struct {
	Bids    []models.Bid `json:"bids"`
	Highest *models.Bid  `json:"highest,omitempty"`
}

// ConversationListItem диалог с данными собеседника.
type ConversationListItem struct {
	Conversation models.Conversation `json:"conversation"`
	PeerID       uuid.UUID           `json:"peer_id"`
	PeerUsername string              `json:"peer_username,omitempty"`
}

// MessageListResponse страница сообщений диалога.
type MessageListResponse struct {
	Messages []models.Message `json:"messages"`
	Total    int              `json:"total"`
}

// UploadResponse ответ на загрузку фотографии.
type UploadResponse struct {
	File *models.MediaFile `json:"file"`
}

// UnreadCountResponse счётчик непрочитанных уведомлений.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// AssistantResponse ответ AI помощника.
type AssistantResponse struct {
	Answer string `json:"answer"`
}
