package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetByListingAndReviewer(ctx context.Context, listingID, reviewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, listingID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, reviewedID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByListingID(ctx context.Context, listingID uuid.UUID) ([]models.Review, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockListingRepoForReview struct {
	mock.Mock
}

func (m *mockListingRepoForReview) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

type mockBidRepoForReview struct {
	mock.Mock
}

func (m *mockBidRepoForReview) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func newReviewService(repo *mockReviewRepo, listings *mockListingRepoForReview, bids *mockBidRepoForReview) *ReviewService {
	return NewReviewService(repo, listings, bids, NewCacheService(100, time.Minute))
}

// soldListingWithBuyer готовит проданное объявление с принятой ставкой.
func soldListingWithBuyer(sellerID, buyerID uuid.UUID) (*models.Listing, *models.Bid) {
	bidID := uuid.New()
	listing := &models.Listing{
		ID:            uuid.New(),
		OwnerID:       sellerID,
		Status:        models.ListingStatusSold,
		AcceptedBidID: &bidID,
	}
	bid := &models.Bid{
		ID:        bidID,
		ListingID: listing.ID,
		BidderID:  buyerID,
		Status:    models.BidStatusAccepted,
	}
	return listing, bid
}

func TestReviewService_CreateReview_SellerReviewsBuyer(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	sellerID := uuid.New()
	buyerID := uuid.New()
	listing, bid := soldListingWithBuyer(sellerID, buyerID)

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	repo.On("GetByListingAndReviewer", ctx, listing.ID, sellerID).Return(nil, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	comment := "Быстро забрал, рекомендую"
	review, err := svc.CreateReview(ctx, listing.ID, sellerID, 5, &comment)

	assert.NoError(t, err)
	assert.Equal(t, buyerID, review.ReviewedID)
	assert.Equal(t, 5, review.Rating)
}

func TestReviewService_CreateReview_BuyerReviewsSeller(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	sellerID := uuid.New()
	buyerID := uuid.New()
	listing, bid := soldListingWithBuyer(sellerID, buyerID)

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	repo.On("GetByListingAndReviewer", ctx, listing.ID, buyerID).Return(nil, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	review, err := svc.CreateReview(ctx, listing.ID, buyerID, 4, nil)

	assert.NoError(t, err)
	assert.Equal(t, sellerID, review.ReviewedID)
}

func TestReviewService_CreateReview_InvalidRating(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	_, err := svc.CreateReview(ctx, uuid.New(), uuid.New(), 0, nil)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateReview(ctx, uuid.New(), uuid.New(), 6, nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestReviewService_CreateReview_ListingNotSold(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	listing := &models.Listing{ID: uuid.New(), OwnerID: uuid.New(), Status: models.ListingStatusActive}
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	_, err := svc.CreateReview(ctx, listing.ID, listing.OwnerID, 5, nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidTransition))
}

func TestReviewService_CreateReview_NotParticipant(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	listing, bid := soldListingWithBuyer(uuid.New(), uuid.New())
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)

	_, err := svc.CreateReview(ctx, listing.ID, uuid.New(), 5, nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
}

func TestReviewService_CreateReview_AlreadyReviewed(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	sellerID := uuid.New()
	listing, bid := soldListingWithBuyer(sellerID, uuid.New())

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	repo.On("GetByListingAndReviewer", ctx, listing.ID, sellerID).
		Return(&models.Review{ID: uuid.New()}, nil)

	_, err := svc.CreateReview(ctx, listing.ID, sellerID, 5, nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
}

func TestReviewService_CreateReview_SoldWithoutBuyer(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	// Продажа через MarkSold: покупатель не зафиксирован.
	sellerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: sellerID, Status: models.ListingStatusSold}
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	_, err := svc.CreateReview(ctx, listing.ID, sellerID, 5, nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeBadRequest))
}

func TestReviewService_GetUserRating_Cached(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	userID := uuid.New()
	repo.On("GetAverageRating", ctx, userID).Return(4.5, 12, nil).Once()

	avg, count, err := svc.GetUserRating(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, 12, count)

	avg, count, err = svc.GetUserRating(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, 12, count)
	repo.AssertNumberOfCalls(t, "GetAverageRating", 1)
}

func TestReviewService_CanLeaveReview(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	sellerID := uuid.New()
	buyerID := uuid.New()
	listing, bid := soldListingWithBuyer(sellerID, buyerID)

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	repo.On("GetByListingAndReviewer", ctx, listing.ID, buyerID).Return(nil, nil)

	can, err := svc.CanLeaveReview(ctx, listing.ID, buyerID)
	assert.NoError(t, err)
	assert.True(t, can)

	// Посторонний пользователь отзыв оставить не может.
	can, err = svc.CanLeaveReview(ctx, listing.ID, uuid.New())
	assert.NoError(t, err)
	assert.False(t, can)
}

func TestReviewService_CanLeaveReview_StorageErrorPropagated(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	listingID := uuid.New()
	storageErr := errors.New("read tcp: connection reset by peer")
	listings.On("GetByID", ctx, listingID).Return(nil, storageErr)

	// Сбой базы не маскируется под "нельзя оставить отзыв".
	_, err := svc.CanLeaveReview(ctx, listingID, uuid.New())
	assert.ErrorIs(t, err, storageErr)
}

func TestReviewService_CanLeaveReview_UnknownListing(t *testing.T) {
	repo := new(mockReviewRepo)
	listings := new(mockListingRepoForReview)
	bids := new(mockBidRepoForReview)
	svc := newReviewService(repo, listings, bids)
	ctx := context.Background()

	listingID := uuid.New()
	listings.On("GetByID", ctx, listingID).Return(nil, repository.ErrListingNotFound)

	can, err := svc.CanLeaveReview(ctx, listingID, uuid.New())
	assert.NoError(t, err)
	assert.False(t, can)
}
