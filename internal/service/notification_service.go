package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/logger"
	"github.com/campusmarket/campus-market-backend/internal/models"
)

// NotificationRepo описывает зависимость от таблицы уведомлений.
type NotificationRepo interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// ConversationRepoForNotify создаёт диалоги и системные сообщения о ставках.
type ConversationRepoForNotify interface {
	UpsertByListing(ctx context.Context, conv *models.Conversation) error
	AddMessage(ctx context.Context, msg *models.Message) error
}

// RealtimePusher доставляет событие подключённому пользователю.
// Реализация — websocket hub; nil отключает realtime доставку.
type RealtimePusher interface {
	SendToUser(userID uuid.UUID, payload interface{})
}

// NotificationService собирает побочные эффекты ставок и модерации:
// диалог + системное сообщение, запись в notifications, push по websocket.
// Все методы Notify* вызываются из panic-safe горутин и работают
// по принципу best-effort.
type NotificationService struct {
	repo          NotificationRepo
	conversations ConversationRepoForNotify
	pusher        RealtimePusher
}

func NewNotificationService(repo NotificationRepo, conversations ConversationRepoForNotify, pusher RealtimePusher) *NotificationService {
	return &NotificationService{
		repo:          repo,
		conversations: conversations,
		pusher:        pusher,
	}
}

// NotifyBidPlaced создаёт (или находит) диалог покупатель-продавец по
// объявлению и добавляет системное сообщение о новой ставке, затем
// уведомляет продавца.
func (s *NotificationService) NotifyBidPlaced(ctx context.Context, listing *models.Listing, bid *models.Bid) error {
	conv := &models.Conversation{
		ListingID: &listing.ID,
		BuyerID:   bid.BidderID,
		SellerID:  listing.OwnerID,
	}
	if err := s.conversations.UpsertByListing(ctx, conv); err != nil {
		return fmt.Errorf("notification service: upsert conversation: %w", err)
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		AuthorType:     models.MessageAuthorSystem,
		Content: fmt.Sprintf(
			"Новая ставка %s ₽ на «%s». Продавец может принять или отклонить её.",
			bid.Amount.StringFixed(2), listing.Title,
		),
	}
	if err := s.conversations.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("notification service: add system message: %w", err)
	}

	s.deliver(ctx, listing.OwnerID, "bid_placed", map[string]interface{}{
		"listing_id":      listing.ID,
		"listing_title":   listing.Title,
		"bid_id":          bid.ID,
		"amount":          bid.Amount,
		"conversation_id": conv.ID,
	})

	return nil
}

// NotifyBidAccepted уведомляет покупателя о принятии его ставки.
func (s *NotificationService) NotifyBidAccepted(ctx context.Context, listing *models.Listing, bid *models.Bid) error {
	s.deliver(ctx, bid.BidderID, "bid_accepted", map[string]interface{}{
		"listing_id":    listing.ID,
		"listing_title": listing.Title,
		"bid_id":        bid.ID,
		"amount":        bid.Amount,
	})
	return nil
}

// NotifyBidRejected уведомляет покупателя об отклонении его ставки.
func (s *NotificationService) NotifyBidRejected(ctx context.Context, listing *models.Listing, bid *models.Bid) error {
	s.deliver(ctx, bid.BidderID, "bid_rejected", map[string]interface{}{
		"listing_id":    listing.ID,
		"listing_title": listing.Title,
		"bid_id":        bid.ID,
	})
	return nil
}

// NotifyListingModerated уведомляет владельца об итоге модерации.
func (s *NotificationService) NotifyListingModerated(ctx context.Context, listing *models.Listing, approved bool) error {
	event := "listing_rejected"
	if approved {
		event = "listing_approved"
	}
	s.deliver(ctx, listing.OwnerID, event, map[string]interface{}{
		"listing_id":    listing.ID,
		"listing_title": listing.Title,
	})
	return nil
}

// deliver сохраняет уведомление и отправляет его по websocket.
// Ошибки логируются и не прерывают исходную операцию.
func (s *NotificationService) deliver(ctx context.Context, userID uuid.UUID, event string, data map[string]interface{}) {
	data["type"] = event

	payload, err := json.Marshal(data)
	if err != nil {
		logger.Errorf("notification service: marshal payload %s: %v", event, err)
		return
	}

	n := &models.Notification{
		UserID:  userID,
		Payload: payload,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		logger.Errorf("notification service: save %s для %s: %v", event, userID, err)
	}

	if s.pusher != nil {
		s.pusher.SendToUser(userID, data)
	}
}

// ListNotifications возвращает уведомления пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// UnreadCount возвращает число непрочитанных уведомлений.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead помечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead помечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
