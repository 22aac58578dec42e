package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/repository/common"
)

// ErrServicePostNotFound возвращается, когда услуга не найдена.
var ErrServicePostNotFound = errors.New("service post not found")

// ServicePostRepository отвечает за работу с таблицей service_posts.
type ServicePostRepository struct {
	db *sqlx.DB
}

func NewServicePostRepository(db *sqlx.DB) *ServicePostRepository {
	return &ServicePostRepository{db: db}
}

// Create создаёт объявление об услуге.
func (r *ServicePostRepository) Create(ctx context.Context, post *models.ServicePost) error {
	query := `
		INSERT INTO service_posts (provider_id, title, description, category, pricing_mode, price, visibility, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		post.ProviderID, post.Title, post.Description, post.Category,
		post.PricingMode, post.Price, post.Visibility, post.Status,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return fmt.Errorf("service post repository: create %w", err)
	}

	return nil
}

// GetByID возвращает услугу по идентификатору.
func (r *ServicePostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ServicePost, error) {
	return common.GetByID[models.ServicePost](ctx, r.db, "service_posts", id, ErrServicePostNotFound)
}

// List возвращает активные услуги с фильтром по категории.
func (r *ServicePostRepository) List(ctx context.Context, category string, limit, offset int) ([]models.ServicePost, error) {
	query := `SELECT * FROM service_posts WHERE status = 'active'`
	args := []interface{}{}
	argNum := 1

	if category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argNum)
		args = append(args, category)
		argNum++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, limit, offset)

	var posts []models.ServicePost
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("service post repository: list %w", err)
	}

	return posts, nil
}

// ListByProvider возвращает услуги конкретного исполнителя.
func (r *ServicePostRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.ServicePost, error) {
	var posts []models.ServicePost
	err := r.db.SelectContext(ctx, &posts, `
		SELECT * FROM service_posts WHERE provider_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("service post repository: list by provider %w", err)
	}

	return posts, nil
}

// Update обновляет редактируемые поля услуги.
func (r *ServicePostRepository) Update(ctx context.Context, post *models.ServicePost) error {
	query := `
		UPDATE service_posts
		SET title = $2, description = $3, category = $4, pricing_mode = $5,
			price = $6, visibility = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		post.ID, post.Title, post.Description, post.Category,
		post.PricingMode, post.Price, post.Visibility,
	).Scan(&post.UpdatedAt); err != nil {
		return fmt.Errorf("service post repository: update %w", err)
	}

	return nil
}

// UpdateStatus переводит услугу в новый статус.
func (r *ServicePostRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE service_posts SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("service post repository: update status %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("service post repository: update status rows affected %w", err)
	}
	if affected == 0 {
		return ErrServicePostNotFound
	}

	return nil
}
