package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
)

// UserRepo описывает зависимости UserService.
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	GetPublicProfile(ctx context.Context, userID uuid.UUID) (*models.PublicUser, error)
}

// UserService отдаёт публичные профили и пакетные выборки пользователей.
type UserService struct {
	repo  UserRepo
	cache *CacheService
}

func NewUserService(repo UserRepo, cache *CacheService) *UserService {
	return &UserService{repo: repo, cache: cache}
}

// GetPublicProfile возвращает публичный профиль с рейтингом, через кэш.
func (s *UserService) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*models.PublicUser, error) {
	key := ProfileCacheKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		if profile, ok := cached.(*models.PublicUser); ok {
			return profile, nil
		}
	}

	profile, err := s.repo.GetPublicProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	s.cache.Set(key, profile, 0)
	return profile, nil
}

// GetUsersByIDs возвращает пользователей по списку идентификаторов.
// Дубликаты убираются, уже закэшированные профили не перечитываются.
func (s *UserService) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	result := make(map[uuid.UUID]models.User, len(ids))

	seen := make(map[uuid.UUID]struct{}, len(ids))
	var missing []uuid.UUID
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if cached, ok := s.cache.Get("user:" + id.String()); ok {
			if user, ok := cached.(models.User); ok {
				result[id] = user
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		users, err := s.repo.ListByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}

		toCache := make(map[string]interface{}, len(users))
		for _, user := range users {
			result[user.ID] = user
			toCache["user:"+user.ID.String()] = user
		}
		s.cache.SetMany(toCache, 0)
	}

	return result, nil
}
