package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
)

// FavoriteRepo описывает зависимости сервиса избранного.
type FavoriteRepo interface {
	Add(ctx context.Context, userID, listingID uuid.UUID) error
	Remove(ctx context.Context, userID, listingID uuid.UUID) error
	Exists(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Listing, error)
}

// ListingRepoForFavorites проверяет существование объявления.
type ListingRepoForFavorites interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// FavoriteService реализует сохранённые объявления пользователя.
type FavoriteService struct {
	repo     FavoriteRepo
	listings ListingRepoForFavorites
	cache    *CacheService
}

func NewFavoriteService(repo FavoriteRepo, listings ListingRepoForFavorites, cache *CacheService) *FavoriteService {
	return &FavoriteService{repo: repo, listings: listings, cache: cache}
}

// Save добавляет объявление в избранное. Повторное сохранение — no-op.
func (s *FavoriteService) Save(ctx context.Context, userID, listingID uuid.UUID) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return apperror.ErrListingNotFound
		}
		return err
	}

	if listing.Status != models.ListingStatusActive {
		return apperror.New(apperror.ErrCodeInvalidTransition, "сохранять можно только активные объявления")
	}

	if err := s.repo.Add(ctx, userID, listingID); err != nil {
		return err
	}

	s.cache.InvalidateByPrefix("favorites:" + userID.String())
	return nil
}

// Unsave убирает объявление из избранного.
func (s *FavoriteService) Unsave(ctx context.Context, userID, listingID uuid.UUID) error {
	if err := s.repo.Remove(ctx, userID, listingID); err != nil {
		return err
	}

	s.cache.InvalidateByPrefix("favorites:" + userID.String())
	return nil
}

// IsSaved проверяет, сохранено ли объявление.
func (s *FavoriteService) IsSaved(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, userID, listingID)
}

// ListSaved возвращает избранные объявления пользователя.
func (s *FavoriteService) ListSaved(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	key := "favorites:" + userID.String() + ":" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
	if cached, ok := s.cache.Get(key); ok {
		if listings, ok := cached.([]models.Listing); ok {
			return listings, nil
		}
	}

	listings, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, listings, 0)
	return listings, nil
}
