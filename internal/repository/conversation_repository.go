package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmarket/campus-market-backend/internal/models"
)

var (
	// ErrConversationNotFound возвращается, когда диалог не найден.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotFound возвращается, когда сообщение не найдено.
	ErrMessageNotFound = errors.New("message not found")
)

// ConversationRepository отвечает за работу с таблицами conversations и messages.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository создаёт экземпляр репозитория.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// UpsertByListing находит или создаёт диалог по естественному ключу
// (listing_id, buyer_id, seller_id). Повторные вызовы возвращают ту же запись.
func (r *ConversationRepository) UpsertByListing(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (listing_id, buyer_id, seller_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, buyer_id, seller_id) WHERE listing_id IS NOT NULL
		DO UPDATE SET buyer_id = EXCLUDED.buyer_id
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(ctx, query, conv.ListingID, conv.BuyerID, conv.SellerID).
		Scan(&conv.ID, &conv.CreatedAt); err != nil {
		return fmt.Errorf("conversation repository: upsert by listing %w", err)
	}

	return nil
}

// UpsertByService находит или создаёт диалог по услуге.
func (r *ConversationRepository) UpsertByService(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (service_id, buyer_id, seller_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (service_id, buyer_id, seller_id) WHERE service_id IS NOT NULL
		DO UPDATE SET buyer_id = EXCLUDED.buyer_id
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(ctx, query, conv.ServiceID, conv.BuyerID, conv.SellerID).
		Scan(&conv.ID, &conv.CreatedAt); err != nil {
		return fmt.Errorf("conversation repository: upsert by service %w", err)
	}

	return nil
}

// GetByID возвращает диалог по идентификатору.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation repository: get by id %w", err)
	}

	return &conv, nil
}

// ListByUser возвращает диалоги, в которых участвует пользователь,
// отсортированные по времени последнего сообщения.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `
		SELECT c.*
		FROM conversations c
		WHERE c.buyer_id = $1 OR c.seller_id = $1
		ORDER BY COALESCE(
			(SELECT MAX(m.created_at) FROM messages m WHERE m.conversation_id = c.id),
			c.created_at
		) DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: list by user %w", err)
	}

	return convs, nil
}

// AddMessage добавляет сообщение в диалог. Для системных сообщений author_id пустой.
func (r *ConversationRepository) AddMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (conversation_id, author_type, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(ctx, query,
		msg.ConversationID, msg.AuthorType, msg.AuthorID, msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("conversation repository: add message %w", err)
	}

	return nil
}

// ListMessages возвращает сообщения диалога в хронологическом порядке.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("conversation repository: list messages %w", err)
	}

	return messages, nil
}

// CountMessages возвращает число сообщений в диалоге.
func (r *ConversationRepository) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID); err != nil {
		return 0, fmt.Errorf("conversation repository: count messages %w", err)
	}

	return count, nil
}
