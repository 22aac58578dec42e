package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/dto"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers/common"
	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// ConversationHandler предоставляет HTTP слой диалогов.
type ConversationHandler struct {
	conversations *service.ConversationService
	users         *service.UserService
}

// NewConversationHandler создаёт хэндлер.
func NewConversationHandler(conversations *service.ConversationService, users *service.UserService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, users: users}
}

// Start обрабатывает POST /conversations — открытие диалога
// по объявлению или услуге.
func (h *ConversationHandler) Start(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	switch {
	case req.ListingID != nil && *req.ListingID != "":
		listingID, err := uuid.Parse(*req.ListingID)
		if err != nil {
			common.RespondBadRequest(c, "некорректный listing_id")
			return
		}
		conv, err := h.conversations.StartForListing(c.Request.Context(), userID, listingID)
		if err != nil {
			common.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, conv)

	case req.ServiceID != nil && *req.ServiceID != "":
		serviceID, err := uuid.Parse(*req.ServiceID)
		if err != nil {
			common.RespondBadRequest(c, "некорректный service_id")
			return
		}
		conv, err := h.conversations.StartForService(c.Request.Context(), userID, serviceID)
		if err != nil {
			common.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, conv)

	default:
		common.RespondBadRequest(c, "нужно указать listing_id или service_id")
	}
}

// List обрабатывает GET /conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	convs, err := h.conversations.ListMyConversations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	// Имена собеседников подставляются пакетной выборкой через кэш.
	peerIDs := make([]uuid.UUID, 0, len(convs))
	for _, conv := range convs {
		peerIDs = append(peerIDs, peerOf(conv, userID))
	}

	peers, err := h.users.GetUsersByIDs(c.Request.Context(), peerIDs)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	items := make([]dto.ConversationListItem, 0, len(convs))
	for _, conv := range convs {
		item := dto.ConversationListItem{
			Conversation: conv,
			PeerID:       peerOf(conv, userID),
		}
		if peer, ok := peers[item.PeerID]; ok {
			item.PeerUsername = peer.Username
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}

// peerOf возвращает собеседника пользователя в диалоге.
func peerOf(conv models.Conversation, userID uuid.UUID) uuid.UUID {
	if conv.BuyerID == userID {
		return conv.SellerID
	}
	return conv.BuyerID
}

// SendMessage обрабатывает POST /conversations/:id/messages.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	conversationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	msg, err := h.conversations.SendMessage(c.Request.Context(), userID, conversationID, req.Content)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListMessages обрабатывает GET /conversations/:id/messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	conversationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	messages, err := h.conversations.ListMessages(c.Request.Context(), userID, conversationID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageListResponse{
		Messages: messages,
		Total:    len(messages),
	})
}
