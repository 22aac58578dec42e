package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
	"github.com/campusmarket/campus-market-backend/internal/validation"
)

// ServicePostRepo описывает зависимости сервиса услуг.
type ServicePostRepo interface {
	Create(ctx context.Context, post *models.ServicePost) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServicePost, error)
	List(ctx context.Context, category string, limit, offset int) ([]models.ServicePost, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.ServicePost, error)
	Update(ctx context.Context, post *models.ServicePost) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ServicePostService реализует объявления об услугах (репетиторство,
// переезды, ремонт техники). Ставки к услугам не применяются.
type ServicePostService struct {
	repo  ServicePostRepo
	cache *CacheService

	detailTTL time.Duration
}

func NewServicePostService(repo ServicePostRepo, cache *CacheService, detailTTL time.Duration) *ServicePostService {
	if detailTTL <= 0 {
		detailTTL = 2 * time.Minute
	}
	return &ServicePostService{repo: repo, cache: cache, detailTTL: detailTTL}
}

// ServicePostInput данные услуги при создании и редактировании.
type ServicePostInput struct {
	Title       string
	Description string
	Category    string
	PricingMode string
	Price       *decimal.Decimal
	Visibility  string
}

// CreateServicePost публикует услугу. Услуги не проходят модерацию
// и сразу активны.
func (s *ServicePostService) CreateServicePost(ctx context.Context, providerID uuid.UUID, in ServicePostInput) (*models.ServicePost, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	post := &models.ServicePost{
		ProviderID:  providerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		PricingMode: in.PricingMode,
		Price:       in.Price,
		Visibility:  in.Visibility,
		Status:      models.ListingStatusActive,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.cache.InvalidateByPrefix("services:")
	return post, nil
}

// GetServicePost возвращает услугу, через кэш (короткий TTL).
func (s *ServicePostService) GetServicePost(ctx context.Context, id uuid.UUID) (*models.ServicePost, error) {
	key := "service:" + id.String()
	if cached, ok := s.cache.Get(key); ok {
		if post, ok := cached.(*models.ServicePost); ok {
			return post, nil
		}
	}

	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, post, s.detailTTL)
	return post, nil
}

// BrowseServicePosts возвращает страницу активных услуг.
func (s *ServicePostService) BrowseServicePosts(ctx context.Context, category string, limit, offset int) ([]models.ServicePost, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, category, limit, offset)
}

// MyServicePosts возвращает услуги исполнителя.
func (s *ServicePostService) MyServicePosts(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.ServicePost, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByProvider(ctx, providerID, limit, offset)
}

// UpdateServicePost редактирует услугу. Разрешено только исполнителю.
func (s *ServicePostService) UpdateServicePost(ctx context.Context, providerID, id uuid.UUID, in ServicePostInput) (*models.ServicePost, error) {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.ProviderID != providerID {
		return nil, apperror.ErrForbidden
	}

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Description = in.Description
	post.Category = in.Category
	post.PricingMode = in.PricingMode
	post.Price = in.Price
	post.Visibility = in.Visibility

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}

	s.invalidate(id)
	return post, nil
}

// DeleteServicePost снимает услугу с публикации.
func (s *ServicePostService) DeleteServicePost(ctx context.Context, providerID, id uuid.UUID) error {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return err
	}

	if post.ProviderID != providerID {
		return apperror.ErrForbidden
	}

	if post.Status == models.ListingStatusDeleted {
		return apperror.ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, id, models.ListingStatusDeleted); err != nil {
		return err
	}

	s.invalidate(id)
	return nil
}

func (s *ServicePostService) getPost(ctx context.Context, id uuid.UUID) (*models.ServicePost, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrServicePostNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *ServicePostService) invalidate(id uuid.UUID) {
	s.cache.Delete("service:" + id.String())
	s.cache.InvalidateByPrefix("services:")
}

func (s *ServicePostService) validateInput(in ServicePostInput) error {
	if err := validation.ValidateListingTitle(in.Title); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateListingDescription(in.Description); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidCategories[in.Category]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестная категория")
	}
	// Торги к услугам не применяются.
	if in.PricingMode != models.PricingModeFixed && in.PricingMode != models.PricingModeNegotiable {
		return apperror.New(apperror.ErrCodeValidation, "для услуги доступны только фиксированная цена и торг")
	}
	if _, ok := models.ValidVisibilities[in.Visibility]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестный режим видимости")
	}
	if err := validation.ValidatePrice(in.Price); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Price == nil {
		return apperror.New(apperror.ErrCodeValidation, "цена обязательна для услуги")
	}
	return nil
}
