package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/repository/common"
)

// ErrListingNotFound возвращается, когда объявление не найдено.
var ErrListingNotFound = errors.New("listing not found")

// ListingRepository отвечает за работу с таблицами listings и listing_photos.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository создаёт экземпляр репозитория.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create создаёт объявление. Новые объявления попадают в очередь модерации.
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listings (owner_id, title, description, category, condition, pricing_mode, price, visibility, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		listing.OwnerID, listing.Title, listing.Description, listing.Category,
		listing.Condition, listing.PricingMode, listing.Price, listing.Visibility, listing.Status,
	).Scan(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt); err != nil {
		return fmt.Errorf("listing repository: create %w", err)
	}

	return nil
}

// GetByID возвращает объявление по идентификатору.
func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.GetContext(ctx, &listing, `SELECT * FROM listings WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("listing repository: get by id %w", err)
	}

	return &listing, nil
}

// Update обновляет редактируемые поля объявления.
func (r *ListingRepository) Update(ctx context.Context, listing *models.Listing) error {
	query := `
		UPDATE listings
		SET title = $2, description = $3, category = $4, condition = $5,
			pricing_mode = $6, price = $7, visibility = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		listing.ID, listing.Title, listing.Description, listing.Category,
		listing.Condition, listing.PricingMode, listing.Price, listing.Visibility,
	).Scan(&listing.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrListingNotFound
		}
		return fmt.Errorf("listing repository: update %w", err)
	}

	return nil
}

// UpdateStatus переводит объявление из одного из допустимых статусов в новый.
// Возвращает количество обновлённых строк: 0 означает, что переход
// уже выполнен другим запросом или недопустим.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []string, to string) (int64, error) {
	query := `
		UPDATE listings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`

	result, err := r.db.ExecContext(ctx, query, id, to, pq.Array(from))
	if err != nil {
		return 0, fmt.Errorf("listing repository: update status %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("listing repository: update status rows affected %w", err)
	}

	return affected, nil
}

// MarkSoldDirect помечает объявление проданным без принятой ставки (fixed/negotiable).
func (r *ListingRepository) MarkSoldDirect(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET status = 'sold', sold_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return 0, fmt.Errorf("listing repository: mark sold %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("listing repository: mark sold rows affected %w", err)
	}

	return affected, nil
}

// ListingSearchParams параметры выборки объявлений.
type ListingSearchParams struct {
	Query       string
	Category    string
	Condition   string
	PricingMode string
	Status      string
	OwnerID     *uuid.UUID
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	// University фильтрует видимость: объявления visibility='all'
	// плюс объявления visibility='university' того же университета.
	University string
	Limit      int
	Offset     int
}

// List возвращает объявления по фильтрам с количеством активных ставок.
func (r *ListingRepository) List(ctx context.Context, params ListingSearchParams) ([]models.Listing, error) {
	query := `
		SELECT l.*,
			(SELECT COUNT(*) FROM bids b WHERE b.listing_id = l.id AND b.status = 'active') as bids_count
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if params.Status != "" {
		query += fmt.Sprintf(` AND l.status = $%d`, argNum)
		args = append(args, params.Status)
		argNum++
	}
	if params.Query != "" {
		query += fmt.Sprintf(` AND (l.title ILIKE $%d OR l.description ILIKE $%d)`, argNum, argNum)
		args = append(args, "%"+params.Query+"%")
		argNum++
	}
	if params.Category != "" {
		query += fmt.Sprintf(` AND l.category = $%d`, argNum)
		args = append(args, params.Category)
		argNum++
	}
	if params.Condition != "" {
		query += fmt.Sprintf(` AND l.condition = $%d`, argNum)
		args = append(args, params.Condition)
		argNum++
	}
	if params.PricingMode != "" {
		query += fmt.Sprintf(` AND l.pricing_mode = $%d`, argNum)
		args = append(args, params.PricingMode)
		argNum++
	}
	if params.OwnerID != nil {
		query += fmt.Sprintf(` AND l.owner_id = $%d`, argNum)
		args = append(args, *params.OwnerID)
		argNum++
	}
	if params.MinPrice != nil {
		query += fmt.Sprintf(` AND l.price >= $%d`, argNum)
		args = append(args, *params.MinPrice)
		argNum++
	}
	if params.MaxPrice != nil {
		query += fmt.Sprintf(` AND l.price <= $%d`, argNum)
		args = append(args, *params.MaxPrice)
		argNum++
	}
	if params.University != "" {
		query += fmt.Sprintf(` AND (l.visibility = 'all' OR u.university = $%d)`, argNum)
		args = append(args, params.University)
		argNum++
	}

	query += ` ORDER BY l.created_at DESC`
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, params.Limit, params.Offset)

	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("listing repository: list %w", err)
	}

	return listings, nil
}

// Count возвращает общее количество объявлений по тем же фильтрам.
func (r *ListingRepository) Count(ctx context.Context, params ListingSearchParams) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM listings l
		JOIN users u ON u.id = l.owner_id
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if params.Status != "" {
		query += fmt.Sprintf(` AND l.status = $%d`, argNum)
		args = append(args, params.Status)
		argNum++
	}
	if params.Query != "" {
		query += fmt.Sprintf(` AND (l.title ILIKE $%d OR l.description ILIKE $%d)`, argNum, argNum)
		args = append(args, "%"+params.Query+"%")
		argNum++
	}
	if params.Category != "" {
		query += fmt.Sprintf(` AND l.category = $%d`, argNum)
		args = append(args, params.Category)
		argNum++
	}
	if params.Condition != "" {
		query += fmt.Sprintf(` AND l.condition = $%d`, argNum)
		args = append(args, params.Condition)
		argNum++
	}
	if params.PricingMode != "" {
		query += fmt.Sprintf(` AND l.pricing_mode = $%d`, argNum)
		args = append(args, params.PricingMode)
		argNum++
	}
	if params.OwnerID != nil {
		query += fmt.Sprintf(` AND l.owner_id = $%d`, argNum)
		args = append(args, *params.OwnerID)
		argNum++
	}
	if params.MinPrice != nil {
		query += fmt.Sprintf(` AND l.price >= $%d`, argNum)
		args = append(args, *params.MinPrice)
		argNum++
	}
	if params.MaxPrice != nil {
		query += fmt.Sprintf(` AND l.price <= $%d`, argNum)
		args = append(args, *params.MaxPrice)
		argNum++
	}
	if params.University != "" {
		query += fmt.Sprintf(` AND (l.visibility = 'all' OR u.university = $%d)`, argNum)
		args = append(args, params.University)
		argNum++
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("listing repository: count %w", err)
	}

	return count, nil
}

// ListPendingModeration возвращает очередь модерации: старые объявления первыми.
func (r *ListingRepository) ListPendingModeration(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing repository: list pending moderation %w", err)
	}

	return listings, nil
}

// AddPhotos привязывает загруженные файлы к объявлению одной вставкой.
func (r *ListingRepository) AddPhotos(ctx context.Context, listingID uuid.UUID, mediaIDs []uuid.UUID) error {
	if len(mediaIDs) == 0 {
		return nil
	}

	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		inserter := common.NewBatchInserter(tx, `INSERT INTO listing_photos (listing_id, media_id)`, 2, 50)
		for _, mediaID := range mediaIDs {
			if err := inserter.Add(ctx, listingID, mediaID); err != nil {
				return fmt.Errorf("listing repository: add photos %w", err)
			}
		}
		return inserter.Flush(ctx)
	})
}

// ListPhotos возвращает файлы, привязанные к объявлению.
func (r *ListingRepository) ListPhotos(ctx context.Context, listingID uuid.UUID) ([]models.MediaFile, error) {
	var photos []models.MediaFile
	err := r.db.SelectContext(ctx, &photos, `
		SELECT m.*
		FROM listing_photos lp
		JOIN media_files m ON m.id = lp.media_id
		WHERE lp.listing_id = $1
		ORDER BY lp.created_at ASC
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("listing repository: list photos %w", err)
	}

	return photos, nil
}

// DeletePhoto отвязывает файл от объявления.
func (r *ListingRepository) DeletePhoto(ctx context.Context, listingID, mediaID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM listing_photos WHERE listing_id = $1 AND media_id = $2
	`, listingID, mediaID)
	if err != nil {
		return fmt.Errorf("listing repository: delete photo %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("listing repository: delete photo rows affected %w", err)
	}
	if affected == 0 {
		return ErrListingNotFound
	}

	return nil
}
