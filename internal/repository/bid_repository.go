package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/repository/common"
)

var (
	// ErrBidNotFound возвращается, когда ставка не найдена.
	ErrBidNotFound = errors.New("bid not found")
	// ErrBidNotHighest возвращается, когда конкурирующая ставка успела
	// подняться выше между проверкой в сервисе и вставкой.
	ErrBidNotHighest = errors.New("bid is not strictly higher than current maximum")
	// ErrBidConflict возвращается, когда каскад принятия не прошёл:
	// ставка или объявление уже переведены в другой статус.
	ErrBidConflict = errors.New("bid state changed concurrently")
)

// BidRepository отвечает за работу с таблицей bids.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository создаёт экземпляр репозитория.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create вставляет активную ставку с повторной проверкой строгого превышения
// внутри транзакции. Строка объявления блокируется FOR UPDATE, поэтому две
// одновременные ставки одной суммы не могут пройти обе.
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var listingID uuid.UUID
		err := tx.GetContext(ctx, &listingID, `SELECT id FROM listings WHERE id = $1 FOR UPDATE`, bid.ListingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrListingNotFound
			}
			return fmt.Errorf("bid repository: lock listing %w", err)
		}

		var highest decimal.Decimal
		err = tx.GetContext(ctx, &highest, `
			SELECT COALESCE(MAX(amount), 0) FROM bids WHERE listing_id = $1 AND status = 'active'
		`, bid.ListingID)
		if err != nil {
			return fmt.Errorf("bid repository: get highest %w", err)
		}

		if !bid.Amount.GreaterThan(highest) {
			return ErrBidNotHighest
		}

		query := `
			INSERT INTO bids (listing_id, bidder_id, amount, status)
			VALUES ($1, $2, $3, 'active')
			RETURNING id, status, created_at
		`
		if err := tx.QueryRowxContext(ctx, query, bid.ListingID, bid.BidderID, bid.Amount).
			Scan(&bid.ID, &bid.Status, &bid.CreatedAt); err != nil {
			return fmt.Errorf("bid repository: create %w", err)
		}

		return nil
	})
}

// GetByID возвращает ставку по идентификатору.
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.GetContext(ctx, &bid, `SELECT * FROM bids WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, fmt.Errorf("bid repository: get by id %w", err)
	}

	return &bid, nil
}

// HighestActive возвращает текущую максимальную активную ставку объявления.
// При равных суммах выигрывает более ранняя. Если активных ставок нет,
// возвращает nil без ошибки.
func (r *BidRepository) HighestActive(ctx context.Context, listingID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.GetContext(ctx, &bid, `
		SELECT * FROM bids
		WHERE listing_id = $1 AND status = 'active'
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("bid repository: highest active %w", err)
	}

	return &bid, nil
}

// ListActiveByListing возвращает активные ставки объявления, от наибольшей к наименьшей.
func (r *BidRepository) ListActiveByListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids, `
		SELECT * FROM bids
		WHERE listing_id = $1 AND status = 'active'
		ORDER BY amount DESC, created_at ASC
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list by listing %w", err)
	}

	return bids, nil
}

// ListBySeller возвращает ставки на все объявления продавца с заголовками объявлений.
func (r *BidRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids, `
		SELECT b.*, l.title as listing_title
		FROM bids b
		JOIN listings l ON l.id = b.listing_id
		WHERE l.owner_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`, sellerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list by seller %w", err)
	}

	return bids, nil
}

// ListByBidder возвращает ставки, сделанные пользователем.
func (r *BidRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID, limit, offset int) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids, `
		SELECT b.*, l.title as listing_title
		FROM bids b
		JOIN listings l ON l.id = b.listing_id
		WHERE b.bidder_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`, bidderID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list by bidder %w", err)
	}

	return bids, nil
}

// AcceptCascade принимает ставку атомарно: ставка становится accepted,
// объявление переходит в sold с привязкой принятой ставки, остальные
// активные ставки отклоняются. Либо все три шага проходят, либо ни один.
func (r *BidRepository) AcceptCascade(ctx context.Context, listingID, bidID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE bids SET status = 'accepted', accepted_at = NOW()
			WHERE id = $1 AND listing_id = $2 AND status = 'active'
		`, bidID, listingID)
		if err != nil {
			return fmt.Errorf("bid repository: accept bid %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("bid repository: accept bid rows affected %w", err)
		}
		if affected == 0 {
			return ErrBidConflict
		}

		result, err = tx.ExecContext(ctx, `
			UPDATE listings
			SET status = 'sold', accepted_bid_id = $2, sold_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = 'active'
		`, listingID, bidID)
		if err != nil {
			return fmt.Errorf("bid repository: mark listing sold %w", err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("bid repository: mark listing sold rows affected %w", err)
		}
		if affected == 0 {
			return ErrBidConflict
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE bids SET status = 'rejected', rejected_at = NOW()
			WHERE listing_id = $1 AND status = 'active' AND id != $2
		`, listingID, bidID); err != nil {
			return fmt.Errorf("bid repository: reject other bids %w", err)
		}

		return nil
	})
}

// Reject отклоняет активную ставку. Повторное отклонение проходит как no-op.
func (r *BidRepository) Reject(ctx context.Context, bidID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bids SET status = 'rejected', rejected_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, bidID)
	if err != nil {
		return fmt.Errorf("bid repository: reject %w", err)
	}

	return nil
}

// RejectAllForListing отклоняет все активные ставки объявления. Используется
// при снятии объявления и при продаже вне торгов.
func (r *BidRepository) RejectAllForListing(ctx context.Context, listingID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bids SET status = 'rejected', rejected_at = NOW()
		WHERE listing_id = $1 AND status = 'active'
	`, listingID)
	if err != nil {
		return fmt.Errorf("bid repository: reject all for listing %w", err)
	}

	return nil
}

// CountActiveByListing возвращает число активных ставок объявления.
func (r *BidRepository) CountActiveByListing(ctx context.Context, listingID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM bids WHERE listing_id = $1 AND status = 'active'
	`, listingID)
	if err != nil {
		return 0, fmt.Errorf("bid repository: count active %w", err)
	}

	return count, nil
}
