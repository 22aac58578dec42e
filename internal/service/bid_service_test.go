package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
)

type mockBidRepo struct {
	mock.Mock
}

func (m *mockBidRepo) Create(ctx context.Context, bid *models.Bid) error {
	args := m.Called(ctx, bid)
	if args.Error(0) == nil {
		bid.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockBidRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func (m *mockBidRepo) HighestActive(ctx context.Context, listingID uuid.UUID) (*models.Bid, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func (m *mockBidRepo) ListActiveByListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]models.Bid), args.Error(1)
}

func (m *mockBidRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Bid, error) {
	args := m.Called(ctx, sellerID, limit, offset)
	return args.Get(0).([]models.Bid), args.Error(1)
}

func (m *mockBidRepo) ListByBidder(ctx context.Context, bidderID uuid.UUID, limit, offset int) ([]models.Bid, error) {
	args := m.Called(ctx, bidderID, limit, offset)
	return args.Get(0).([]models.Bid), args.Error(1)
}

type mockListingRepoForBids struct {
	mock.Mock
}

func (m *mockListingRepoForBids) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

// stubBidNotifier не мокается: уведомления уходят в фоне,
// ассерты на них в юнит-тестах нестабильны.
type stubBidNotifier struct{}

func (stubBidNotifier) NotifyBidPlaced(ctx context.Context, listing *models.Listing, bid *models.Bid) error {
	return nil
}

func newBidService(bids *mockBidRepo, listings *mockListingRepoForBids) *BidService {
	return NewBidService(bids, listings, stubBidNotifier{}, NewCacheService(100, time.Minute))
}

func activeBiddingListing(ownerID uuid.UUID) *models.Listing {
	return &models.Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Status:      models.ListingStatusActive,
		PricingMode: models.PricingModeBidding,
	}
}

func TestBidService_PlaceBid_FirstBid(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	ownerID := uuid.New()
	bidderID := uuid.New()
	listing := activeBiddingListing(ownerID)

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("HighestActive", ctx, listing.ID).Return(nil, nil)
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(nil)

	bid, err := svc.PlaceBid(ctx, listing.ID, bidderID, decimal.NewFromInt(100))

	assert.NoError(t, err)
	assert.NotNil(t, bid)
	assert.Equal(t, bidderID, bid.BidderID)
	assert.True(t, bid.Amount.Equal(decimal.NewFromInt(100)))
}

func TestBidService_PlaceBid_StrictIncrease(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	listing := activeBiddingListing(uuid.New())
	highest := &models.Bid{ID: uuid.New(), ListingID: listing.ID, Amount: decimal.NewFromInt(500)}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("HighestActive", ctx, listing.ID).Return(highest, nil)
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(nil)

	bid, err := svc.PlaceBid(ctx, listing.ID, uuid.New(), decimal.NewFromInt(501))
	assert.NoError(t, err)
	assert.NotNil(t, bid)
}

func TestBidService_PlaceBid_TieRejected(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	listing := activeBiddingListing(uuid.New())
	highest := &models.Bid{ID: uuid.New(), ListingID: listing.ID, Amount: decimal.NewFromInt(500)}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("HighestActive", ctx, listing.ID).Return(highest, nil)

	// Равная сумма не превышает текущий максимум.
	_, err := svc.PlaceBid(ctx, listing.ID, uuid.New(), decimal.NewFromInt(500))
	assert.ErrorIs(t, err, apperror.ErrBidTooLow)

	_, err = svc.PlaceBid(ctx, listing.ID, uuid.New(), decimal.NewFromInt(499))
	assert.ErrorIs(t, err, apperror.ErrBidTooLow)
}

func TestBidService_PlaceBid_InvalidAmount(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	// Сумма проверяется до обращения к хранилищу: моки без ожиданий.
	_, err := svc.PlaceBid(ctx, uuid.New(), uuid.New(), decimal.Zero)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidAmount))

	_, err = svc.PlaceBid(ctx, uuid.New(), uuid.New(), decimal.NewFromInt(-10))
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidAmount))
}

func TestBidService_PlaceBid_ListingNotFound(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	listingID := uuid.New()
	listings.On("GetByID", ctx, listingID).Return(nil, repository.ErrListingNotFound)

	_, err := svc.PlaceBid(ctx, listingID, uuid.New(), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)
}

func TestBidService_PlaceBid_SelfBid(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := activeBiddingListing(ownerID)
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	_, err := svc.PlaceBid(ctx, listing.ID, ownerID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperror.ErrSelfBid)
}

func TestBidService_PlaceBid_ListingNotActive(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	listing := activeBiddingListing(uuid.New())
	listing.Status = models.ListingStatusSold
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	_, err := svc.PlaceBid(ctx, listing.ID, uuid.New(), decimal.NewFromInt(100))
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidTransition))
}

func TestBidService_PlaceBid_NotBiddingMode(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	listing := activeBiddingListing(uuid.New())
	listing.PricingMode = models.PricingModeFixed
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	_, err := svc.PlaceBid(ctx, listing.ID, uuid.New(), decimal.NewFromInt(100))
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidTransition))
}

func TestBidService_PlaceBid_RaceLostLooksLikeTooLow(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	listing := activeBiddingListing(uuid.New())
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("HighestActive", ctx, listing.ID).Return(nil, nil)
	// Конкурирующая ставка успела раньше: повторная проверка в транзакции.
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(repository.ErrBidNotHighest)

	_, err := svc.PlaceBid(ctx, listing.ID, uuid.New(), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperror.ErrBidTooLow)
}

func TestBidService_ListBidsForListing_Cached(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	listingID := uuid.New()
	stored := []models.Bid{{ID: uuid.New()}, {ID: uuid.New()}}
	bids.On("ListActiveByListing", ctx, listingID).Return(stored, nil).Once()

	first, err := svc.ListBidsForListing(ctx, listingID)
	assert.NoError(t, err)
	assert.Len(t, first, 2)

	// Второй вызов отдаётся из кэша, репозиторий не трогается.
	second, err := svc.ListBidsForListing(ctx, listingID)
	assert.NoError(t, err)
	assert.Len(t, second, 2)
	bids.AssertNumberOfCalls(t, "ListActiveByListing", 1)
}

func TestBidService_ListBidsForSeller_LimitNormalized(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	sellerID := uuid.New()
	bids.On("ListBySeller", ctx, sellerID, 20, 0).Return([]models.Bid{}, nil)

	_, err := svc.ListBidsForSeller(ctx, sellerID, -5, 0)
	assert.NoError(t, err)
	bids.AssertExpectations(t)
}

func TestBidService_ListBidsForSeller_CachedUntilNewBid(t *testing.T) {
	bids := new(mockBidRepo)
	listings := new(mockListingRepoForBids)
	svc := newBidService(bids, listings)
	ctx := context.Background()

	sellerID := uuid.New()
	listing := activeBiddingListing(sellerID)
	stored := []models.Bid{{ID: uuid.New(), ListingID: listing.ID}}

	bids.On("ListBySeller", ctx, sellerID, 20, 0).Return(stored, nil).Twice()

	first, err := svc.ListBidsForSeller(ctx, sellerID, 20, 0)
	assert.NoError(t, err)
	assert.Len(t, first, 1)

	// Повторное чтение отдаётся из кэша.
	_, err = svc.ListBidsForSeller(ctx, sellerID, 20, 0)
	assert.NoError(t, err)
	bids.AssertNumberOfCalls(t, "ListBySeller", 1)

	// Новая ставка на объявление продавца сбрасывает его страницы.
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("HighestActive", ctx, listing.ID).Return(nil, nil)
	bids.On("Create", ctx, mock.AnythingOfType("*models.Bid")).Return(nil)

	_, err = svc.PlaceBid(ctx, listing.ID, uuid.New(), decimal.NewFromInt(300))
	assert.NoError(t, err)

	_, err = svc.ListBidsForSeller(ctx, sellerID, 20, 0)
	assert.NoError(t, err)
	bids.AssertNumberOfCalls(t, "ListBySeller", 2)
}
