package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает сущность пользователя маркетплейса.
type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Username        string     `db:"username" json:"username"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	Role            string     `db:"role" json:"role"`
	University      string     `db:"university" json:"university"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// PublicUser урезанное представление пользователя для выдачи другим участникам.
type PublicUser struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	University  string    `db:"university" json:"university"`
	AvgRating   float64   `db:"avg_rating" json:"avg_rating"`
	ReviewCount int       `db:"review_count" json:"review_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// VerificationCode хранит код подтверждения университетской почты.
type VerificationCode struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Code      string    `db:"code" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Review описывает отзыв о контрагенте после продажи.
type Review struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ListingID  uuid.UUID `db:"listing_id" json:"listing_id"`
	ReviewerID uuid.UUID `db:"reviewer_id" json:"reviewer_id"`
	ReviewedID uuid.UUID `db:"reviewed_id" json:"reviewed_id"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Report описывает жалобу пользователя на объявление.
type Report struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ReporterID uuid.UUID `db:"reporter_id" json:"reporter_id"`
	ListingID  uuid.UUID `db:"listing_id" json:"listing_id"`
	Reason     string    `db:"reason" json:"reason"`
	Details    *string   `db:"details" json:"details,omitempty"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
