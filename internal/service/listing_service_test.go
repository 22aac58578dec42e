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

type mockListingRepo struct {
	mock.Mock
}

func (m *mockListingRepo) Create(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	if args.Error(0) == nil {
		listing.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingRepo) Update(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *mockListingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []string, to string) (int64, error) {
	args := m.Called(ctx, id, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockListingRepo) MarkSoldDirect(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockListingRepo) List(ctx context.Context, params repository.ListingSearchParams) ([]models.Listing, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *mockListingRepo) Count(ctx context.Context, params repository.ListingSearchParams) (int, error) {
	args := m.Called(ctx, params)
	return args.Int(0), args.Error(1)
}

func (m *mockListingRepo) ListPendingModeration(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *mockListingRepo) AddPhotos(ctx context.Context, listingID uuid.UUID, mediaIDs []uuid.UUID) error {
	args := m.Called(ctx, listingID, mediaIDs)
	return args.Error(0)
}

func (m *mockListingRepo) ListPhotos(ctx context.Context, listingID uuid.UUID) ([]models.MediaFile, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]models.MediaFile), args.Error(1)
}

func (m *mockListingRepo) DeletePhoto(ctx context.Context, listingID, mediaID uuid.UUID) error {
	args := m.Called(ctx, listingID, mediaID)
	return args.Error(0)
}

type mockBidRepoForListings struct {
	mock.Mock
}

func (m *mockBidRepoForListings) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func (m *mockBidRepoForListings) AcceptCascade(ctx context.Context, listingID, bidID uuid.UUID) error {
	args := m.Called(ctx, listingID, bidID)
	return args.Error(0)
}

func (m *mockBidRepoForListings) Reject(ctx context.Context, bidID uuid.UUID) error {
	args := m.Called(ctx, bidID)
	return args.Error(0)
}

func (m *mockBidRepoForListings) CountActiveByListing(ctx context.Context, listingID uuid.UUID) (int, error) {
	args := m.Called(ctx, listingID)
	return args.Int(0), args.Error(1)
}

func (m *mockBidRepoForListings) RejectAllForListing(ctx context.Context, listingID uuid.UUID) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

type mockUserRepoForListings struct {
	mock.Mock
}

func (m *mockUserRepoForListings) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type stubListingNotifier struct{}

func (stubListingNotifier) NotifyBidAccepted(ctx context.Context, listing *models.Listing, bid *models.Bid) error {
	return nil
}

func (stubListingNotifier) NotifyBidRejected(ctx context.Context, listing *models.Listing, bid *models.Bid) error {
	return nil
}

func (stubListingNotifier) NotifyListingModerated(ctx context.Context, listing *models.Listing, approved bool) error {
	return nil
}

func newListingService(listings *mockListingRepo, bids *mockBidRepoForListings, users *mockUserRepoForListings) *ListingService {
	return NewListingService(listings, bids, users, stubListingNotifier{}, NewCacheService(100, time.Minute), time.Minute)
}

func validListingInput() CreateListingInput {
	price := decimal.NewFromInt(1500)
	return CreateListingInput{
		Title:       "Учебник по матанализу",
		Description: "Второй курс, состояние хорошее, без пометок.",
		Category:    models.CategoryBooks,
		Condition:   models.ConditionGood,
		PricingMode: models.PricingModeFixed,
		Price:       &price,
		Visibility:  models.VisibilityUniversity,
	}
}

func TestListingService_CreateListing_PendingStatus(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	listings.On("Create", ctx, mock.AnythingOfType("*models.Listing")).Return(nil)

	listing, err := svc.CreateListing(ctx, uuid.New(), validListingInput())
	assert.NoError(t, err)
	assert.Equal(t, models.ListingStatusPending, listing.Status)
}

func TestListingService_CreateListing_UnknownCategory(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)

	in := validListingInput()
	in.Category = "weapons"

	_, err := svc.CreateListing(context.Background(), uuid.New(), in)
	assert.True(t, apperror.IsValidation(err))
}

func TestListingService_CreateListing_PriceRequiredForFixed(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)

	in := validListingInput()
	in.Price = nil

	_, err := svc.CreateListing(context.Background(), uuid.New(), in)
	assert.True(t, apperror.IsValidation(err))
}

func TestListingService_CreateListing_BiddingWithoutPrice(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	in := validListingInput()
	in.PricingMode = models.PricingModeBidding
	in.Price = nil

	listings.On("Create", ctx, mock.AnythingOfType("*models.Listing")).Return(nil)

	listing, err := svc.CreateListing(ctx, uuid.New(), in)
	assert.NoError(t, err)
	assert.Nil(t, listing.Price)
}

func TestListingService_AcceptBid_Success(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusActive, PricingMode: models.PricingModeBidding}
	bid := &models.Bid{ID: uuid.New(), ListingID: listing.ID, BidderID: uuid.New(), Status: models.BidStatusActive}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	bids.On("AcceptCascade", ctx, listing.ID, bid.ID).Return(nil)

	err := svc.AcceptBid(ctx, ownerID, listing.ID, bid.ID)
	assert.NoError(t, err)
	bids.AssertCalled(t, "AcceptCascade", ctx, listing.ID, bid.ID)
}

func TestListingService_AcceptBid_Forbidden(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	listing := &models.Listing{ID: uuid.New(), OwnerID: uuid.New(), Status: models.ListingStatusActive}
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	err := svc.AcceptBid(ctx, uuid.New(), listing.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListingService_AcceptBid_BidFromOtherListing(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusActive}
	bid := &models.Bid{ID: uuid.New(), ListingID: uuid.New(), Status: models.BidStatusActive}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)

	err := svc.AcceptBid(ctx, ownerID, listing.ID, bid.ID)
	assert.ErrorIs(t, err, apperror.ErrBidNotFound)
}

func TestListingService_AcceptBid_SecondAccept(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	// Первое принятие уже перевело объявление в sold.
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusSold}
	bid := &models.Bid{ID: uuid.New(), ListingID: listing.ID, Status: models.BidStatusActive}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)

	err := svc.AcceptBid(ctx, ownerID, listing.ID, bid.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestListingService_AcceptBid_CascadeConflict(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusActive}
	bid := &models.Bid{ID: uuid.New(), ListingID: listing.ID, Status: models.BidStatusActive}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	bids.On("AcceptCascade", ctx, listing.ID, bid.ID).Return(repository.ErrBidConflict)

	err := svc.AcceptBid(ctx, ownerID, listing.ID, bid.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestListingService_RejectBid_Success(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusActive}
	bid := &models.Bid{ID: uuid.New(), ListingID: listing.ID, Status: models.BidStatusActive}

	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("Reject", ctx, bid.ID).Return(nil)

	err := svc.RejectBid(ctx, ownerID, bid.ID)
	assert.NoError(t, err)
	bids.AssertCalled(t, "Reject", ctx, bid.ID)
}

func TestListingService_RejectBid_Idempotent(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusActive}
	bid := &models.Bid{ID: uuid.New(), ListingID: listing.ID, Status: models.BidStatusRejected}

	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	// Повторное отклонение успешно и не трогает хранилище.
	err := svc.RejectBid(ctx, ownerID, bid.ID)
	assert.NoError(t, err)
	bids.AssertNotCalled(t, "Reject", ctx, bid.ID)
}

func TestListingService_RejectBid_AcceptedIsNoOp(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusSold}
	bid := &models.Bid{ID: uuid.New(), ListingID: listing.ID, Status: models.BidStatusAccepted}

	bids.On("GetByID", ctx, bid.ID).Return(bid, nil)
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	err := svc.RejectBid(ctx, ownerID, bid.ID)
	assert.NoError(t, err)
	bids.AssertNotCalled(t, "Reject", ctx, bid.ID)
}

func TestListingService_MarkSold_InvalidTransition(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusSold}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	listings.On("MarkSoldDirect", ctx, listing.ID).Return(int64(0), nil)

	err := svc.MarkSold(ctx, ownerID, listing.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestListingService_DeleteListing_Forbidden(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	listing := &models.Listing{ID: uuid.New(), OwnerID: uuid.New(), Status: models.ListingStatusActive}
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	err := svc.DeleteListing(ctx, uuid.New(), listing.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListingService_ApproveListing_Success(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	moderatorID := uuid.New()
	moderator := &models.User{ID: moderatorID, Role: models.RoleModerator}
	listing := &models.Listing{ID: uuid.New(), OwnerID: uuid.New(), Status: models.ListingStatusPending}

	users.On("GetByID", ctx, moderatorID).Return(moderator, nil)
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	listings.On("UpdateStatus", ctx, listing.ID,
		[]string{models.ListingStatusPending}, models.ListingStatusActive).Return(int64(1), nil)

	err := svc.ApproveListing(ctx, moderatorID, listing.ID)
	assert.NoError(t, err)
}

func TestListingService_ApproveListing_NotModerator(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	studentID := uuid.New()
	users.On("GetByID", ctx, studentID).Return(&models.User{ID: studentID, Role: models.RoleStudent}, nil)

	err := svc.ApproveListing(ctx, studentID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListingService_ModerateOwnListing(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	moderatorID := uuid.New()
	moderator := &models.User{ID: moderatorID, Role: models.RoleModerator}
	listing := &models.Listing{ID: uuid.New(), OwnerID: moderatorID, Status: models.ListingStatusPending}

	users.On("GetByID", ctx, moderatorID).Return(moderator, nil)
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)

	err := svc.RejectListing(ctx, moderatorID, listing.ID)
	assert.ErrorIs(t, err, apperror.ErrSelfModeration)
}

func TestListingService_RejectListing_AlreadyModerated(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	moderatorID := uuid.New()
	moderator := &models.User{ID: moderatorID, Role: models.RoleModerator}
	listing := &models.Listing{ID: uuid.New(), OwnerID: uuid.New(), Status: models.ListingStatusActive}

	users.On("GetByID", ctx, moderatorID).Return(moderator, nil)
	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	listings.On("UpdateStatus", ctx, listing.ID,
		[]string{models.ListingStatusPending}, models.ListingStatusRejected).Return(int64(0), nil)

	err := svc.RejectListing(ctx, moderatorID, listing.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestListingService_UpdateListing_ModeChangeBlockedByActiveBids(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Status:      models.ListingStatusActive,
		PricingMode: models.PricingModeBidding,
	}

	in := validListingInput()
	in.PricingMode = models.PricingModeFixed

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("CountActiveByListing", ctx, listing.ID).Return(2, nil)

	// На объявлении с активными ставками сменить режим нельзя:
	// иначе ставки повисли бы на объявлении без торгов.
	_, err := svc.UpdateListing(ctx, ownerID, listing.ID, in)
	assert.True(t, apperror.Is(err, apperror.ErrCodeInvalidTransition))
	listings.AssertNotCalled(t, "Update", ctx, mock.Anything)
}

func TestListingService_UpdateListing_ModeChangeWithoutBids(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Status:      models.ListingStatusActive,
		PricingMode: models.PricingModeBidding,
	}

	in := validListingInput()
	in.PricingMode = models.PricingModeNegotiable

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	bids.On("CountActiveByListing", ctx, listing.ID).Return(0, nil)
	listings.On("Update", ctx, mock.AnythingOfType("*models.Listing")).Return(nil)

	updated, err := svc.UpdateListing(ctx, ownerID, listing.ID, in)
	assert.NoError(t, err)
	assert.Equal(t, models.PricingModeNegotiable, updated.PricingMode)
}

func TestListingService_UpdateListing_SameModeSkipsBidCheck(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	price := decimal.NewFromInt(900)
	listing := &models.Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Status:      models.ListingStatusActive,
		PricingMode: models.PricingModeFixed,
		Price:       &price,
	}

	in := validListingInput()

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	listings.On("Update", ctx, mock.AnythingOfType("*models.Listing")).Return(nil)

	_, err := svc.UpdateListing(ctx, ownerID, listing.ID, in)
	assert.NoError(t, err)
	bids.AssertNotCalled(t, "CountActiveByListing", ctx, listing.ID)
}

func TestListingService_MarkSold_RejectsActiveBids(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusActive}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	listings.On("MarkSoldDirect", ctx, listing.ID).Return(int64(1), nil)
	bids.On("RejectAllForListing", ctx, listing.ID).Return(nil)

	err := svc.MarkSold(ctx, ownerID, listing.ID)
	assert.NoError(t, err)
	bids.AssertCalled(t, "RejectAllForListing", ctx, listing.ID)
}

func TestListingService_DeleteListing_RejectsActiveBids(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	ownerID := uuid.New()
	listing := &models.Listing{ID: uuid.New(), OwnerID: ownerID, Status: models.ListingStatusActive}

	listings.On("GetByID", ctx, listing.ID).Return(listing, nil)
	listings.On("UpdateStatus", ctx, listing.ID,
		[]string{models.ListingStatusPending, models.ListingStatusActive},
		models.ListingStatusDeleted).Return(int64(1), nil)
	bids.On("RejectAllForListing", ctx, listing.ID).Return(nil)

	err := svc.DeleteListing(ctx, ownerID, listing.ID)
	assert.NoError(t, err)
	bids.AssertCalled(t, "RejectAllForListing", ctx, listing.ID)
}

func TestListingService_BrowseListings_PageCached(t *testing.T) {
	listings := new(mockListingRepo)
	bids := new(mockBidRepoForListings)
	users := new(mockUserRepoForListings)
	svc := newListingService(listings, bids, users)
	ctx := context.Background()

	params := repository.ListingSearchParams{Limit: 20, Offset: 0}
	expectedParams := params
	expectedParams.Status = models.ListingStatusActive

	listings.On("List", ctx, expectedParams).Return([]models.Listing{{ID: uuid.New()}}, nil).Once()
	listings.On("Count", ctx, expectedParams).Return(1, nil).Once()

	first, err := svc.BrowseListings(ctx, params)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.Total)
	assert.False(t, first.HasMore)

	second, err := svc.BrowseListings(ctx, params)
	assert.NoError(t, err)
	assert.Len(t, second.Items, 1)
	listings.AssertNumberOfCalls(t, "List", 1)
}
