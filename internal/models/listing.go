package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing описывает объявление о продаже товара.
type Listing struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	OwnerID       uuid.UUID        `db:"owner_id" json:"owner_id"`
	Title         string           `db:"title" json:"title"`
	Description   string           `db:"description" json:"description"`
	Category      string           `db:"category" json:"category"`
	Condition     string           `db:"condition" json:"condition"`
	PricingMode   string           `db:"pricing_mode" json:"pricing_mode"`
	Price         *decimal.Decimal `db:"price" json:"price,omitempty"`
	Visibility    string           `db:"visibility" json:"visibility"`
	Status        string           `db:"status" json:"status"`
	AcceptedBidID *uuid.UUID       `db:"accepted_bid_id" json:"accepted_bid_id,omitempty"`
	SoldAt        *time.Time       `db:"sold_at" json:"sold_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
	// Связанные данные (загружаются отдельно)
	Photos    []MediaFile `json:"photos,omitempty"`
	BidsCount *int        `db:"bids_count" json:"bids_count,omitempty"`
}

// Bid представляет ставку покупателя на объявление с режимом торгов.
type Bid struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ListingID  uuid.UUID       `db:"listing_id" json:"listing_id"`
	BidderID   uuid.UUID       `db:"bidder_id" json:"bidder_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Status     string          `db:"status" json:"status"`
	AcceptedAt *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	RejectedAt *time.Time      `db:"rejected_at" json:"rejected_at,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	// Заголовок объявления, подставляется JOIN-ом при выборках для продавца
	ListingTitle *string `db:"listing_title" json:"listing_title,omitempty"`
}

// ListingPhoto связывает объявление с загруженным файлом.
type ListingPhoto struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	ListingID uuid.UUID  `db:"listing_id" json:"listing_id"`
	MediaID   uuid.UUID  `db:"media_id" json:"media_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Media     *MediaFile `json:"media,omitempty"`
}

// Favorite описывает объявление, сохранённое пользователем в избранное.
type Favorite struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ListingID uuid.UUID `db:"listing_id" json:"listing_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Listing   *Listing  `json:"listing,omitempty"`
}
