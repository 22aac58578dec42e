package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
	"github.com/campusmarket/campus-market-backend/internal/validation"
)

// ConversationRepo описывает зависимости сервиса диалогов.
type ConversationRepo interface {
	UpsertByListing(ctx context.Context, conv *models.Conversation) error
	UpsertByService(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Conversation, error)
	AddMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
}

// ListingRepoForConversations находит объявление для начала диалога.
type ListingRepoForConversations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// ServiceRepoForConversations находит услугу для начала диалога.
type ServiceRepoForConversations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServicePost, error)
}

// MessagePusher доставляет новое сообщение собеседнику по websocket.
type MessagePusher interface {
	SendToUser(userID uuid.UUID, payload interface{})
}

// ConversationService реализует диалоги и сообщения: append-only,
// хронологический порядок, системные сообщения от журнала ставок.
type ConversationService struct {
	repo     ConversationRepo
	listings ListingRepoForConversations
	services ServiceRepoForConversations
	pusher   MessagePusher
}

func NewConversationService(
	repo ConversationRepo,
	listings ListingRepoForConversations,
	services ServiceRepoForConversations,
	pusher MessagePusher,
) *ConversationService {
	return &ConversationService{
		repo:     repo,
		listings: listings,
		services: services,
		pusher:   pusher,
	}
}

// StartForListing находит или создаёт диалог покупателя с продавцом объявления.
func (s *ConversationService) StartForListing(ctx context.Context, buyerID, listingID uuid.UUID) (*models.Conversation, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}

	if listing.OwnerID == buyerID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя начать диалог с самим собой")
	}

	conv := &models.Conversation{
		ListingID: &listing.ID,
		BuyerID:   buyerID,
		SellerID:  listing.OwnerID,
	}
	if err := s.repo.UpsertByListing(ctx, conv); err != nil {
		return nil, err
	}

	return conv, nil
}

// StartForService находит или создаёт диалог с исполнителем услуги.
func (s *ConversationService) StartForService(ctx context.Context, buyerID, serviceID uuid.UUID) (*models.Conversation, error) {
	post, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrServicePostNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, err
	}

	if post.ProviderID == buyerID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя начать диалог с самим собой")
	}

	conv := &models.Conversation{
		ServiceID: &post.ID,
		BuyerID:   buyerID,
		SellerID:  post.ProviderID,
	}
	if err := s.repo.UpsertByService(ctx, conv); err != nil {
		return nil, err
	}

	return conv, nil
}

// ListMyConversations возвращает диалоги пользователя.
func (s *ConversationService) ListMyConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// SendMessage добавляет сообщение в диалог от имени участника.
func (s *ConversationService) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, content string) (*models.Message, error) {
	if err := validation.ValidateMessageContent(content); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	conv, err := s.getParticipantConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		AuthorType:     models.MessageAuthorUser,
		AuthorID:       &userID,
		Content:        content,
	}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	if s.pusher != nil {
		peer := conv.SellerID
		if userID == conv.SellerID {
			peer = conv.BuyerID
		}
		s.pusher.SendToUser(peer, map[string]interface{}{
			"type":            "message",
			"conversation_id": conversationID,
			"message":         msg,
		})
	}

	return msg, nil
}

// ListMessages возвращает сообщения диалога в хронологическом порядке.
func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if _, err := s.getParticipantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

// getParticipantConversation возвращает диалог, если пользователь — его участник.
func (s *ConversationService) getParticipantConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, apperror.ErrConversationNotFound
		}
		return nil, err
	}

	if conv.BuyerID != userID && conv.SellerID != userID {
		return nil, apperror.ErrForbidden
	}

	return conv, nil
}
