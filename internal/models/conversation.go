package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Conversation описывает диалог между покупателем и продавцом.
// Естественный ключ: (listing_id | service_id, buyer_id, seller_id).
type Conversation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	ListingID *uuid.UUID `db:"listing_id" json:"listing_id,omitempty"`
	ServiceID *uuid.UUID `db:"service_id" json:"service_id,omitempty"`
	BuyerID   uuid.UUID  `db:"buyer_id" json:"buyer_id"`
	SellerID  uuid.UUID  `db:"seller_id" json:"seller_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Message описывает сообщение в диалоге. Сообщения только добавляются,
// порядок определяется временем создания.
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	AuthorType     string     `db:"author_type" json:"author_type"`
	AuthorID       *uuid.UUID `db:"author_id" json:"author_id,omitempty"`
	Content        string     `db:"content" json:"content"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Notification описывает событие, отправленное пользователю.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// PriceEstimate результат оценки стоимости товара AI помощником.
type PriceEstimate struct {
	PriceMin  float64 `json:"price_min"`
	PriceMax  float64 `json:"price_max"`
	Currency  string  `json:"currency"`
	Reasoning string  `json:"reasoning"`
}
