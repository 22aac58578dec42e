package service

import (
	"context"
	"errors"
	"fmt"
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

// ListingRepo описывает зависимости ListingService от слоя хранилища.
type ListingRepo interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Update(ctx context.Context, listing *models.Listing) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from []string, to string) (int64, error)
	MarkSoldDirect(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, params repository.ListingSearchParams) ([]models.Listing, error)
	Count(ctx context.Context, params repository.ListingSearchParams) (int, error)
	ListPendingModeration(ctx context.Context, limit, offset int) ([]models.Listing, error)
	AddPhotos(ctx context.Context, listingID uuid.UUID, mediaIDs []uuid.UUID) error
	ListPhotos(ctx context.Context, listingID uuid.UUID) ([]models.MediaFile, error)
	DeletePhoto(ctx context.Context, listingID, mediaID uuid.UUID) error
}

// BidRepoForListings даёт сервису объявлений доступ к ставкам:
// каскад принятия и отклонение выполняются на стороне хранилища.
type BidRepoForListings interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	AcceptCascade(ctx context.Context, listingID, bidID uuid.UUID) error
	Reject(ctx context.Context, bidID uuid.UUID) error
	CountActiveByListing(ctx context.Context, listingID uuid.UUID) (int, error)
	RejectAllForListing(ctx context.Context, listingID uuid.UUID) error
}

// UserRepoForListings проверяет роль модератора.
type UserRepoForListings interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ListingNotifier доставляет события жизненного цикла объявления.
type ListingNotifier interface {
	NotifyBidAccepted(ctx context.Context, listing *models.Listing, bid *models.Bid) error
	NotifyBidRejected(ctx context.Context, listing *models.Listing, bid *models.Bid) error
	NotifyListingModerated(ctx context.Context, listing *models.Listing, approved bool) error
}

// ListingService реализует жизненный цикл объявления:
// pending -> active -> {sold, deleted}; pending -> rejected.
type ListingService struct {
	listings ListingRepo
	bids     BidRepoForListings
	users    UserRepoForListings
	notifier ListingNotifier
	cache    *CacheService

	detailTTL time.Duration
}

func NewListingService(
	listings ListingRepo,
	bids BidRepoForListings,
	users UserRepoForListings,
	notifier ListingNotifier,
	cache *CacheService,
	detailTTL time.Duration,
) *ListingService {
	if detailTTL <= 0 {
		detailTTL = 2 * time.Minute
	}
	return &ListingService{
		listings:  listings,
		bids:      bids,
		users:     users,
		notifier:  notifier,
		cache:     cache,
		detailTTL: detailTTL,
	}
}

// CreateListingInput содержит данные нового объявления.
type CreateListingInput struct {
	Title       string
	Description string
	Category    string
	Condition   string
	PricingMode string
	Price       *decimal.Decimal
	Visibility  string
	PhotoIDs    []uuid.UUID
}

// CreateListing создаёт объявление в статусе pending (очередь модерации).
func (s *ListingService) CreateListing(ctx context.Context, ownerID uuid.UUID, in CreateListingInput) (*models.Listing, error) {
	if err := s.validateListingInput(in); err != nil {
		return nil, err
	}

	listing := &models.Listing{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Condition:   in.Condition,
		PricingMode: in.PricingMode,
		Price:       in.Price,
		Visibility:  in.Visibility,
		Status:      models.ListingStatusPending,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	if len(in.PhotoIDs) > 0 {
		if err := s.listings.AddPhotos(ctx, listing.ID, in.PhotoIDs); err != nil {
			return nil, err
		}
	}

	return listing, nil
}

// GetListing возвращает объявление с фотографиями, через кэш (короткий TTL).
func (s *ListingService) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	key := ListingCacheKey(id)
	if cached, ok := s.cache.Get(key); ok {
		if listing, ok := cached.(*models.Listing); ok {
			return listing, nil
		}
	}

	listing, err := s.getListing(ctx, id)
	if err != nil {
		return nil, err
	}

	photos, err := s.listings.ListPhotos(ctx, id)
	if err != nil {
		return nil, err
	}
	listing.Photos = photos

	s.cache.Set(key, listing, s.detailTTL)
	return listing, nil
}

// UpdateListing редактирует объявление. Разрешено владельцу, пока
// объявление в статусе pending или active.
func (s *ListingService) UpdateListing(ctx context.Context, ownerID, id uuid.UUID, in CreateListingInput) (*models.Listing, error) {
	listing, err := s.getListing(ctx, id)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID != ownerID {
		return nil, apperror.ErrForbidden
	}

	if listing.Status != models.ListingStatusPending && listing.Status != models.ListingStatusActive {
		return nil, apperror.ErrInvalidTransition
	}

	if err := s.validateListingInput(in); err != nil {
		return nil, err
	}

	// Уход с режима торгов запрещён, пока по объявлению есть активные
	// ставки: объявление без торгов не может нести ставки.
	if listing.PricingMode == models.PricingModeBidding && in.PricingMode != models.PricingModeBidding {
		active, err := s.bids.CountActiveByListing(ctx, id)
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, apperror.New(apperror.ErrCodeInvalidTransition,
				"нельзя сменить режим ценообразования: по объявлению есть активные ставки")
		}
	}

	listing.Title = in.Title
	listing.Description = in.Description
	listing.Category = in.Category
	listing.Condition = in.Condition
	listing.PricingMode = in.PricingMode
	listing.Price = in.Price
	listing.Visibility = in.Visibility

	if err := s.listings.Update(ctx, listing); err != nil {
		return nil, err
	}

	s.cache.InvalidateListingCache(id)
	return listing, nil
}

// BrowseResult страница выдачи объявлений.
type BrowseResult struct {
	Items   []models.Listing `json:"items"`
	Total   int              `json:"total"`
	HasMore bool             `json:"has_more"`
}

// BrowseListings возвращает страницу активных объявлений по фильтрам.
// Страницы кэшируются; любая мутация объявления сбрасывает префикс listings:.
func (s *ListingService) BrowseListings(ctx context.Context, params repository.ListingSearchParams) (*BrowseResult, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	params.Status = models.ListingStatusActive

	key := ListingsPageCacheKey(browseFilterKey(params), params.Limit, params.Offset)
	if cached, ok := s.cache.Get(key); ok {
		if result, ok := cached.(*BrowseResult); ok {
			return result, nil
		}
	}

	items, err := s.listings.List(ctx, params)
	if err != nil {
		return nil, err
	}

	total, err := s.listings.Count(ctx, params)
	if err != nil {
		return nil, err
	}

	result := &BrowseResult{
		Items:   items,
		Total:   total,
		HasMore: params.Offset+len(items) < total,
	}

	s.cache.Set(key, result, 0)
	return result, nil
}

// MyListings возвращает объявления владельца в любом статусе.
func (s *ListingService) MyListings(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.listings.List(ctx, repository.ListingSearchParams{
		OwnerID: &ownerID,
		Limit:   limit,
		Offset:  offset,
	})
}

// AcceptBid принимает ставку: одна транзакция переводит ставку в accepted,
// объявление в sold и отклоняет остальные активные ставки. Частично
// применённого состояния не существует.
func (s *ListingService) AcceptBid(ctx context.Context, ownerID, listingID, bidID uuid.UUID) error {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return err
	}

	if listing.OwnerID != ownerID {
		return apperror.ErrForbidden
	}

	bid, err := s.getBid(ctx, bidID)
	if err != nil {
		return err
	}

	if bid.ListingID != listingID {
		return apperror.ErrBidNotFound
	}

	// Второе принятие на том же объявлении: объявление уже sold.
	if listing.Status != models.ListingStatusActive {
		return apperror.ErrInvalidTransition
	}

	if bid.Status != models.BidStatusActive {
		return apperror.ErrInvalidTransition
	}

	if err := s.bids.AcceptCascade(ctx, listingID, bidID); err != nil {
		if errors.Is(err, repository.ErrBidConflict) {
			return apperror.ErrInvalidTransition
		}
		return err
	}

	s.invalidateAfterMutation(listingID)

	goroutine.SafeGo(func() {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyBidAccepted(nctx, listing, bid); err != nil {
			logger.Errorf("listing service: уведомление о принятии ставки %s не доставлено: %v", bid.ID, err)
		}
	})

	return nil
}

// RejectBid отклоняет активную ставку. Повторное отклонение и отклонение
// уже принятой ставки — no-op с успешным результатом.
func (s *ListingService) RejectBid(ctx context.Context, ownerID, bidID uuid.UUID) error {
	bid, err := s.getBid(ctx, bidID)
	if err != nil {
		return err
	}

	listing, err := s.getListing(ctx, bid.ListingID)
	if err != nil {
		return err
	}

	if listing.OwnerID != ownerID {
		return apperror.ErrForbidden
	}

	if bid.Status != models.BidStatusActive {
		return nil
	}

	if err := s.bids.Reject(ctx, bidID); err != nil {
		return err
	}

	s.invalidateAfterMutation(listing.ID)

	goroutine.SafeGo(func() {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyBidRejected(nctx, listing, bid); err != nil {
			logger.Errorf("listing service: уведомление об отклонении ставки %s не доставлено: %v", bid.ID, err)
		}
	})

	return nil
}

// MarkSold помечает активное объявление проданным (продажа вне торгов).
func (s *ListingService) MarkSold(ctx context.Context, ownerID, listingID uuid.UUID) error {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return err
	}

	if listing.OwnerID != ownerID {
		return apperror.ErrForbidden
	}

	affected, err := s.listings.MarkSoldDirect(ctx, listingID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrInvalidTransition
	}

	// Конкурирующие ставки не должны оставаться активными на проданном
	// объявлении.
	if err := s.bids.RejectAllForListing(ctx, listingID); err != nil {
		return err
	}

	s.invalidateAfterMutation(listingID)
	return nil
}

// DeleteListing снимает объявление: допустимо из pending и active.
func (s *ListingService) DeleteListing(ctx context.Context, ownerID, listingID uuid.UUID) error {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return err
	}

	if listing.OwnerID != ownerID {
		return apperror.ErrForbidden
	}

	affected, err := s.listings.UpdateStatus(ctx, listingID,
		[]string{models.ListingStatusPending, models.ListingStatusActive},
		models.ListingStatusDeleted,
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrInvalidTransition
	}

	if err := s.bids.RejectAllForListing(ctx, listingID); err != nil {
		return err
	}

	s.invalidateAfterMutation(listingID)
	return nil
}

// ApproveListing публикует объявление из очереди модерации.
func (s *ListingService) ApproveListing(ctx context.Context, moderatorID, listingID uuid.UUID) error {
	return s.moderate(ctx, moderatorID, listingID, true)
}

// RejectListing отклоняет объявление из очереди модерации.
func (s *ListingService) RejectListing(ctx context.Context, moderatorID, listingID uuid.UUID) error {
	return s.moderate(ctx, moderatorID, listingID, false)
}

func (s *ListingService) moderate(ctx context.Context, moderatorID, listingID uuid.UUID, approve bool) error {
	moderator, err := s.users.GetByID(ctx, moderatorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return err
	}

	if moderator.Role != models.RoleModerator {
		return apperror.ErrForbidden
	}

	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return err
	}

	if listing.OwnerID == moderatorID {
		return apperror.ErrSelfModeration
	}

	target := models.ListingStatusRejected
	if approve {
		target = models.ListingStatusActive
	}

	affected, err := s.listings.UpdateStatus(ctx, listingID,
		[]string{models.ListingStatusPending}, target)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrInvalidTransition
	}

	s.invalidateAfterMutation(listingID)

	goroutine.SafeGo(func() {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyListingModerated(nctx, listing, approve); err != nil {
			logger.Errorf("listing service: уведомление о модерации %s не доставлено: %v", listingID, err)
		}
	})

	return nil
}

// ListPendingModeration возвращает очередь модерации, старые первыми.
func (s *ListingService) ListPendingModeration(ctx context.Context, moderatorID uuid.UUID, limit, offset int) ([]models.Listing, error) {
	moderator, err := s.users.GetByID(ctx, moderatorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	if moderator.Role != models.RoleModerator {
		return nil, apperror.ErrForbidden
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.listings.ListPendingModeration(ctx, limit, offset)
}

// AttachPhotos добавляет фотографии к объявлению владельца.
func (s *ListingService) AttachPhotos(ctx context.Context, ownerID, listingID uuid.UUID, mediaIDs []uuid.UUID) error {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != ownerID {
		return apperror.ErrForbidden
	}

	existing, err := s.listings.ListPhotos(ctx, listingID)
	if err != nil {
		return err
	}
	if len(existing)+len(mediaIDs) > validation.MaxListingPhotos {
		return apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("к объявлению можно прикрепить не более %d фотографий", validation.MaxListingPhotos))
	}

	if err := s.listings.AddPhotos(ctx, listingID, mediaIDs); err != nil {
		return err
	}

	s.cache.Delete(ListingCacheKey(listingID))
	return nil
}

// DetachPhoto убирает фотографию объявления.
func (s *ListingService) DetachPhoto(ctx context.Context, ownerID, listingID, mediaID uuid.UUID) error {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != ownerID {
		return apperror.ErrForbidden
	}

	if err := s.listings.DeletePhoto(ctx, listingID, mediaID); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return apperror.ErrListingNotFound
		}
		return err
	}

	s.cache.Delete(ListingCacheKey(listingID))
	return nil
}

func (s *ListingService) getListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (s *ListingService) getBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	bid, err := s.bids.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) {
			return nil, apperror.ErrBidNotFound
		}
		return nil, err
	}
	return bid, nil
}

func (s *ListingService) invalidateAfterMutation(listingID uuid.UUID) {
	s.cache.InvalidateListingCache(listingID)
}

func (s *ListingService) validateListingInput(in CreateListingInput) error {
	if err := validation.ValidateListingTitle(in.Title); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateListingDescription(in.Description); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidCategories[in.Category]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестная категория")
	}
	if _, ok := models.ValidConditions[in.Condition]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестное состояние товара")
	}
	if _, ok := models.ValidPricingModes[in.PricingMode]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестный режим ценообразования")
	}
	if _, ok := models.ValidVisibilities[in.Visibility]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестный режим видимости")
	}
	if err := validation.ValidatePrice(in.Price); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	// Фиксированная цена и торг требуют указанной цены,
	// торги могут стартовать без неё.
	if in.Price == nil && in.PricingMode != models.PricingModeBidding {
		return apperror.New(apperror.ErrCodeValidation, "цена обязательна для выбранного режима")
	}
	return nil
}

// browseFilterKey собирает стабильный ключ кэша из фильтров выдачи.
func browseFilterKey(p repository.ListingSearchParams) string {
	owner := ""
	if p.OwnerID != nil {
		owner = p.OwnerID.String()
	}
	minPrice, maxPrice := "", ""
	if p.MinPrice != nil {
		minPrice = p.MinPrice.String()
	}
	if p.MaxPrice != nil {
		maxPrice = p.MaxPrice.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		p.Query, p.Category, p.Condition, p.PricingMode, p.University, owner, minPrice, maxPrice)
}
