package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmarket/campus-market-backend/internal/models"
)

// FavoriteRepository отвечает за работу с таблицей favorites.
type FavoriteRepository struct {
	db *sqlx.DB
}

func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Add добавляет объявление в избранное. Повторное добавление — no-op.
func (r *FavoriteRepository) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, listing_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, listing_id) DO NOTHING
	`, userID, listingID); err != nil {
		return fmt.Errorf("favorite repository: add %w", err)
	}

	return nil
}

// Remove убирает объявление из избранного.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2
	`, userID, listingID); err != nil {
		return fmt.Errorf("favorite repository: remove %w", err)
	}

	return nil
}

// Exists проверяет, сохранено ли объявление пользователем.
func (r *FavoriteRepository) Exists(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND listing_id = $2)
	`, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("favorite repository: exists %w", err)
	}

	return exists, nil
}

// ListByUser возвращает избранные объявления пользователя.
// Удалённые и отклонённые объявления из выдачи исключаются.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT l.*
		FROM favorites f
		JOIN listings l ON l.id = f.listing_id
		WHERE f.user_id = $1 AND l.status IN ('active', 'sold')
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("favorite repository: list by user %w", err)
	}

	return listings, nil
}
