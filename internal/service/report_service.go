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

// Статусы и причины жалоб.
const (
	ReportStatusOpen      = "open"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

var validReportReasons = map[string]struct{}{
	"prohibited_item": {},
	"scam":            {},
	"spam":            {},
	"wrong_category":  {},
	"other":           {},
}

// ReportRepo описывает зависимости сервиса жалоб.
type ReportRepo interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ListingRepoForReports проверяет существование объявления.
type ListingRepoForReports interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// UserRepoForReports проверяет роль модератора.
type UserRepoForReports interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ReportService реализует жалобы на объявления и их разбор модераторами.
type ReportService struct {
	repo     ReportRepo
	listings ListingRepoForReports
	users    UserRepoForReports
}

func NewReportService(repo ReportRepo, listings ListingRepoForReports, users UserRepoForReports) *ReportService {
	return &ReportService{repo: repo, listings: listings, users: users}
}

// SubmitReport создаёт жалобу на объявление.
func (s *ReportService) SubmitReport(ctx context.Context, reporterID, listingID uuid.UUID, reason string, details *string) (*models.Report, error) {
	if _, ok := validReportReasons[reason]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестная причина жалобы")
	}
	if err := validation.ValidateReportDetails(details); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}

	if listing.OwnerID == reporterID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя пожаловаться на собственное объявление")
	}

	report := &models.Report{
		ReporterID: reporterID,
		ListingID:  listingID,
		Reason:     reason,
		Details:    details,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, err
	}

	return report, nil
}

// ListOpenReports возвращает очередь открытых жалоб модератору.
func (s *ReportService) ListOpenReports(ctx context.Context, moderatorID uuid.UUID, limit, offset int) ([]models.Report, error) {
	if err := s.requireModerator(ctx, moderatorID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListOpen(ctx, limit, offset)
}

// ResolveReport закрывает жалобу как обоснованную.
func (s *ReportService) ResolveReport(ctx context.Context, moderatorID, reportID uuid.UUID) error {
	return s.closeReport(ctx, moderatorID, reportID, ReportStatusResolved)
}

// DismissReport закрывает жалобу как необоснованную.
func (s *ReportService) DismissReport(ctx context.Context, moderatorID, reportID uuid.UUID) error {
	return s.closeReport(ctx, moderatorID, reportID, ReportStatusDismissed)
}

func (s *ReportService) closeReport(ctx context.Context, moderatorID, reportID uuid.UUID, status string) error {
	if err := s.requireModerator(ctx, moderatorID); err != nil {
		return err
	}

	report, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "жалоба не найдена")
		}
		return err
	}

	if report.Status != ReportStatusOpen {
		return apperror.ErrInvalidTransition
	}

	return s.repo.UpdateStatus(ctx, reportID, status)
}

func (s *ReportService) requireModerator(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return err
	}
	if user.Role != models.RoleModerator {
		return apperror.ErrForbidden
	}
	return nil
}
