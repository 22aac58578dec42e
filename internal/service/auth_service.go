package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/campusmarket/campus-market-backend/internal/logger"
	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
	"github.com/campusmarket/campus-market-backend/internal/validation"
)

const verificationCodeTTL = 15 * time.Minute

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, refreshToken string) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
	ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error
	DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error
	CreateVerificationCode(ctx context.Context, code *models.VerificationCode) error
	GetActiveVerificationCode(ctx context.Context, userID uuid.UUID) (*models.VerificationCode, error)
	DeleteVerificationCodes(ctx context.Context, userID uuid.UUID) error
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
// Регистрация открыта только для почты университетского домена.
type AuthService struct {
	repo             AuthRepository
	tokenManager     *TokenManager
	universityDomain string
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager, universityDomain string) *AuthService {
	return &AuthService{
		repo:             repo,
		tokenManager:     tokenManager,
		universityDomain: universityDomain,
	}
}

// Register создаёт нового пользователя со студенческой ролью.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateUniversityEmail(in.Email, s.universityDomain); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if len(in.Password) < 8 {
		return nil, apperror.New(apperror.ErrCodeValidation, "пароль должен быть не менее 8 символов")
	}

	if _, err := s.repo.GetByEmail(ctx, strings.ToLower(in.Email)); err == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	username := in.Username
	if username == "" {
		username = deriveUsername(in.Email)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(in.Email),
		Username:     username,
		PasswordHash: string(passHash),
		Role:         models.RoleStudent,
		University:   emailDomain(in.Email),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Код подтверждения почты. Отправка письма вне зоны ответственности
	// сервиса, код логируется в development.
	if err := s.issueVerificationCode(ctx, user.ID); err != nil {
		logger.Warnf("auth service: не удалось выпустить код подтверждения: %v", err)
	}

	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.createSession(ctx, user.ID, tokenPair.RefreshToken, refreshExp, meta); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:      user,
		TokenPair: tokenPair,
	}, nil
}

// Login проверяет учётные данные и возвращает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(in.Email))
	if err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "аккаунт заблокирован")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	// Обновляем время последнего входа, ошибка не прерывает вход
	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.Warnf("auth service: не удалось обновить last_login_at для %s: %v", user.ID, err)
	}

	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.createSession(ctx, user.ID, tokenPair.RefreshToken, refreshExp, meta); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:      user,
		TokenPair: tokenPair,
	}, nil
}

// Refresh выпускает новую пару токенов по действующей сессии.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta map[string]string) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	// Токен должен соответствовать живой сессии: logout инвалидирует его.
	if _, err := s.repo.GetSessionByToken(ctx, oldToken); err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "сессия не найдена или истекла")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "некорректный subject")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSession(ctx, oldToken); err != nil {
		return nil, err
	}

	if err := s.createSession(ctx, userID, tokenPair.RefreshToken, refreshExp, meta); err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Logout удаляет сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteSession(ctx, refreshToken)
}

// VerifyEmail сверяет код подтверждения и помечает почту подтверждённой.
func (s *AuthService) VerifyEmail(ctx context.Context, userID uuid.UUID, code string) error {
	stored, err := s.repo.GetActiveVerificationCode(ctx, userID)
	if err != nil {
		return apperror.New(apperror.ErrCodeBadRequest, "код подтверждения не найден или истёк")
	}

	if stored.Code != code {
		return apperror.New(apperror.ErrCodeBadRequest, "неверный код подтверждения")
	}

	if err := s.repo.MarkEmailVerified(ctx, userID); err != nil {
		return err
	}

	return s.repo.DeleteVerificationCodes(ctx, userID)
}

// ResendVerificationCode выпускает новый код подтверждения почты.
func (s *AuthService) ResendVerificationCode(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.EmailVerifiedAt != nil {
		return apperror.New(apperror.ErrCodeConflict, "почта уже подтверждена")
	}

	return s.issueVerificationCode(ctx, userID)
}

// GetUser возвращает пользователя по идентификатору.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListSessions возвращает список активных сессий пользователя.
func (s *AuthService) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	return s.repo.ListSessions(ctx, userID)
}

// DeleteSession удаляет сессию по идентификатору.
func (s *AuthService) DeleteSession(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	return s.repo.DeleteSessionByID(ctx, sessionID, userID)
}

// DeleteAllSessionsExcept удаляет все сессии пользователя кроме текущей.
func (s *AuthService) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, currentRefreshToken string) error {
	return s.repo.DeleteAllSessionsExcept(ctx, userID, currentRefreshToken)
}

func (s *AuthService) createSession(ctx context.Context, userID uuid.UUID, refreshToken string, expiresAt time.Time, meta map[string]string) error {
	session := &models.Session{
		UserID:       userID,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}

	if meta != nil {
		if ua, ok := meta["user_agent"]; ok {
			session.UserAgent = &ua
		}
		if ip, ok := meta["ip"]; ok {
			session.IPAddress = &ip
		}
	}

	return s.repo.CreateSession(ctx, session)
}

func (s *AuthService) issueVerificationCode(ctx context.Context, userID uuid.UUID) error {
	code, err := generateNumericCode(6)
	if err != nil {
		return err
	}

	vc := &models.VerificationCode{
		UserID:    userID,
		Code:      code,
		ExpiresAt: time.Now().Add(verificationCodeTTL),
	}
	if err := s.repo.CreateVerificationCode(ctx, vc); err != nil {
		return err
	}

	logger.Warnf("auth service: код подтверждения для %s: %s", userID, code)
	return nil
}

// generateNumericCode возвращает криптостойкий числовой код заданной длины.
func generateNumericCode(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}

// deriveUsername формирует username из локальной части email.
func deriveUsername(email string) string {
	name := strings.Split(email, "@")[0]
	name = strings.NewReplacer(".", "_", "+", "_", "-", "_").Replace(name)
	name = strings.ToLower(name)
	if len(name) < 3 {
		name = "user_" + uuid.NewString()[:6]
	}
	return name
}

// emailDomain возвращает доменную часть адреса.
func emailDomain(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if idx := strings.LastIndex(email, "@"); idx >= 0 {
		return email[idx+1:]
	}
	return ""
}
