package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campusmarket/campus-market-backend/internal/goroutine"
	"github.com/campusmarket/campus-market-backend/internal/logger"
	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
	"github.com/campusmarket/campus-market-backend/internal/validation"
)

// notifyTimeout ограничивает фоновую доставку уведомлений.
const notifyTimeout = 10 * time.Second

// BidRepo описывает зависимости BidService от слоя хранилища.
type BidRepo interface {
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	HighestActive(ctx context.Context, listingID uuid.UUID) (*models.Bid, error)
	ListActiveByListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Bid, error)
	ListByBidder(ctx context.Context, bidderID uuid.UUID, limit, offset int) ([]models.Bid, error)
}

// ListingRepoForBids даёт ставочному сервису доступ к объявлениям.
type ListingRepoForBids interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// BidNotifier запускает побочный эффект после успешной ставки.
type BidNotifier interface {
	NotifyBidPlaced(ctx context.Context, listing *models.Listing, bid *models.Bid) error
}

// BidService реализует журнал ставок: строгое превышение, проверки
// владения и статусов, побочный эффект уведомления.
type BidService struct {
	bids     BidRepo
	listings ListingRepoForBids
	notifier BidNotifier
	cache    *CacheService
}

func NewBidService(bids BidRepo, listings ListingRepoForBids, notifier BidNotifier, cache *CacheService) *BidService {
	return &BidService{
		bids:     bids,
		listings: listings,
		notifier: notifier,
		cache:    cache,
	}
}

// PlaceBid размещает ставку на объявление с режимом торгов.
// Порядок проверок фиксирован: сумма, существование объявления,
// собственное объявление, статус и режим, строгое превышение.
func (s *BidService) PlaceBid(ctx context.Context, listingID, bidderID uuid.UUID, amount decimal.Decimal) (*models.Bid, error) {
	if err := validation.ValidateBidAmount(amount); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInvalidAmount, err.Error())
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}

	if listing.OwnerID == bidderID {
		return nil, apperror.ErrSelfBid
	}

	if listing.Status != models.ListingStatusActive {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "ставки принимаются только на активные объявления")
	}

	if listing.PricingMode != models.PricingModeBidding {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "объявление не принимает ставки")
	}

	highest, err := s.bids.HighestActive(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if highest != nil && !amount.GreaterThan(highest.Amount) {
		return nil, apperror.ErrBidTooLow
	}

	bid := &models.Bid{
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
	}

	if err := s.bids.Create(ctx, bid); err != nil {
		// Повторная проверка внутри транзакции вставки: проигранная
		// гонка выглядит для клиента как обычный BidTooLow.
		if errors.Is(err, repository.ErrBidNotHighest) {
			return nil, apperror.ErrBidTooLow
		}
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}

	// Кэш инвалидируется синхронно, до возврата ответа.
	s.cache.InvalidateListingCache(listingID)
	s.cache.InvalidateByPrefix("seller_bids:" + listing.OwnerID.String())

	// Уведомление — best-effort, ошибки не доходят до клиента.
	goroutine.SafeGo(func() {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyBidPlaced(nctx, listing, bid); err != nil {
			logger.Errorf("bid service: уведомление о ставке %s не доставлено: %v", bid.ID, err)
		}
	})

	return bid, nil
}

// HighestActiveBid возвращает текущую максимальную активную ставку или nil.
func (s *BidService) HighestActiveBid(ctx context.Context, listingID uuid.UUID) (*models.Bid, error) {
	return s.bids.HighestActive(ctx, listingID)
}

// ListBidsForListing возвращает активные ставки объявления по убыванию суммы.
func (s *BidService) ListBidsForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	key := BidsCacheKey(listingID)
	if cached, ok := s.cache.Get(key); ok {
		if bids, ok := cached.([]models.Bid); ok {
			return bids, nil
		}
	}

	bids, err := s.bids.ListActiveByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, bids, time.Minute)
	return bids, nil
}

// ListBidsForSeller возвращает ставки на все объявления продавца,
// новые первыми. Заголовки объявлений подставляются одним JOIN-ом.
// Страницы кэшируются; новая ставка сбрасывает префикс seller_bids:.
func (s *BidService) ListBidsForSeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Bid, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	key := SellerBidsCacheKey(sellerID, limit, offset)
	if cached, ok := s.cache.Get(key); ok {
		if bids, ok := cached.([]models.Bid); ok {
			return bids, nil
		}
	}

	bids, err := s.bids.ListBySeller(ctx, sellerID, limit, offset)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, bids, time.Minute)
	return bids, nil
}

// ListBidsForBidder возвращает ставки, сделанные пользователем.
func (s *BidService) ListBidsForBidder(ctx context.Context, bidderID uuid.UUID, limit, offset int) ([]models.Bid, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.bids.ListByBidder(ctx, bidderID, limit, offset)
}
