package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
	"github.com/campusmarket/campus-market-backend/internal/validation"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByListingAndReviewer(ctx context.Context, listingID, reviewerID uuid.UUID) (*models.Review, error)
	ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error)
	ListByListingID(ctx context.Context, listingID uuid.UUID) ([]models.Review, error)
	GetAverageRating(ctx context.Context, userID uuid.UUID) (float64, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ListingRepoForReview interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type BidRepoForReview interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
}

// ReviewService реализует отзывы после завершённой сделки.
type ReviewService struct {
	repo     ReviewRepository
	listings ListingRepoForReview
	bids     BidRepoForReview
	cache    *CacheService
}

func NewReviewService(repo ReviewRepository, listings ListingRepoForReview, bids BidRepoForReview, cache *CacheService) *ReviewService {
	return &ReviewService{repo: repo, listings: listings, bids: bids, cache: cache}
}

// CreateReview создаёт отзыв о контрагенте после продажи объявления.
// Отзыв доступен продавцу и покупателю (автору принятой ставки),
// один отзыв на сделку от каждого участника.
func (s *ReviewService) CreateReview(ctx context.Context, listingID, reviewerID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if err := validation.ValidateRating(rating); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateReviewComment(comment); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}

	if listing.Status != models.ListingStatusSold {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "отзыв можно оставить только после продажи")
	}

	// Определяем контрагента: продавец оценивает покупателя и наоборот.
	var reviewedID uuid.UUID
	switch {
	case reviewerID == listing.OwnerID:
		buyerID, err := s.buyerOf(ctx, listing)
		if err != nil {
			return nil, err
		}
		reviewedID = buyerID
	default:
		buyerID, err := s.buyerOf(ctx, listing)
		if err != nil {
			return nil, err
		}
		if reviewerID != buyerID {
			return nil, apperror.New(apperror.ErrCodeForbidden, "вы не участник этой сделки")
		}
		reviewedID = listing.OwnerID
	}

	existing, err := s.repo.GetByListingAndReviewer(ctx, listingID, reviewerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "вы уже оставили отзыв по этой сделке")
	}

	review := &models.Review{
		ListingID:  listingID,
		ReviewerID: reviewerID,
		ReviewedID: reviewedID,
		Rating:     rating,
		Comment:    comment,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}

	s.cache.InvalidateUserCache(reviewedID)
	return review, nil
}

// buyerOf возвращает покупателя проданного объявления — автора принятой
// ставки. Продажа без торгов контрагента не фиксирует.
func (s *ReviewService) buyerOf(ctx context.Context, listing *models.Listing) (uuid.UUID, error) {
	if listing.AcceptedBidID == nil {
		return uuid.Nil, apperror.New(apperror.ErrCodeBadRequest, "по этой продаже покупатель не зафиксирован")
	}

	bid, err := s.bids.GetByID(ctx, *listing.AcceptedBidID)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) {
			return uuid.Nil, apperror.ErrBidNotFound
		}
		return uuid.Nil, err
	}

	return bid.BidderID, nil
}

// GetReview возвращает отзыв по ID.
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "отзыв не найден")
		}
		return nil, err
	}
	return review, nil
}

// ListUserReviews возвращает отзывы о пользователе.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByReviewedID(ctx, userID, limit, offset)
}

// ListListingReviews возвращает отзывы по сделке.
func (s *ReviewService) ListListingReviews(ctx context.Context, listingID uuid.UUID) ([]models.Review, error) {
	return s.repo.ListByListingID(ctx, listingID)
}

// GetUserRating возвращает средний рейтинг и количество отзывов, через кэш.
func (s *ReviewService) GetUserRating(ctx context.Context, userID uuid.UUID) (float64, int, error) {
	type rating struct {
		Avg   float64
		Count int
	}

	key := "rating:" + userID.String()
	if cached, ok := s.cache.Get(key); ok {
		if r, ok := cached.(rating); ok {
			return r.Avg, r.Count, nil
		}
	}

	avg, count, err := s.repo.GetAverageRating(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	s.cache.Set(key, rating{Avg: avg, Count: count}, 0)
	return avg, count, nil
}

// CanLeaveReview проверяет, может ли пользователь оставить отзыв по сделке.
func (s *ReviewService) CanLeaveReview(ctx context.Context, listingID, userID uuid.UUID) (bool, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return false, nil
		}
		return false, err
	}
	if listing.Status != models.ListingStatusSold {
		return false, nil
	}

	if userID != listing.OwnerID {
		buyerID, err := s.buyerOf(ctx, listing)
		if err != nil {
			// Продажа без зафиксированного покупателя — легитимное "нельзя",
			// ошибки хранилища пробрасываются.
			if apperror.Is(err, apperror.ErrCodeBadRequest) {
				return false, nil
			}
			return false, err
		}
		if userID != buyerID {
			return false, nil
		}
	}

	existing, err := s.repo.GetByListingAndReviewer(ctx, listingID, userID)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}
