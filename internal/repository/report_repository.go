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

// ErrReportNotFound возвращается, когда жалоба не найдена.
var ErrReportNotFound = errors.New("report not found")

// ReportRepository отвечает за работу с таблицей reports.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create сохраняет жалобу на объявление.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (reporter_id, listing_id, reason, details, status)
		VALUES ($1, $2, $3, $4, 'open')
		RETURNING id, status, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		report.ReporterID, report.ListingID, report.Reason, report.Details,
	).Scan(&report.ID, &report.Status, &report.CreatedAt); err != nil {
		return fmt.Errorf("report repository: create %w", err)
	}

	return nil
}

// GetByID возвращает жалобу по идентификатору.
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return common.GetByID[models.Report](ctx, r.db, "reports", id, ErrReportNotFound)
}

// ListOpen возвращает открытые жалобы, старые первыми.
func (r *ReportRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.SelectContext(ctx, &reports, `
		SELECT * FROM reports WHERE status = 'open' ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("report repository: list open %w", err)
	}

	return reports, nil
}

// UpdateStatus закрывает или отклоняет жалобу.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE reports SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("report repository: update status %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("report repository: update status rows affected %w", err)
	}
	if affected == 0 {
		return ErrReportNotFound
	}

	return nil
}
