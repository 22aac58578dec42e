package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServicePost описывает объявление об услуге (репетиторство, помощь с переездом и т.п.).
// Структурно параллелен Listing, но без торгов: услуги продаются по фиксированной
// или договорной цене.
type ServicePost struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	ProviderID  uuid.UUID        `db:"provider_id" json:"provider_id"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	Category    string           `db:"category" json:"category"`
	PricingMode string           `db:"pricing_mode" json:"pricing_mode"`
	Price       *decimal.Decimal `db:"price" json:"price,omitempty"`
	Visibility  string           `db:"visibility" json:"visibility"`
	Status      string           `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}
