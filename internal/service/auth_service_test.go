package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/pkg/apperror"
	"github.com/campusmarket/campus-market-backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error {
	args := m.Called(ctx, userID, exceptRefreshToken)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateVerificationCode(ctx context.Context, code *models.VerificationCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *mockAuthRepo) GetActiveVerificationCode(ctx context.Context, userID uuid.UUID) (*models.VerificationCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerificationCode), args.Error(1)
}

func (m *mockAuthRepo) DeleteVerificationCodes(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func testTokenManager() *TokenManager {
	return NewTokenManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 720*time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ivan.petrov@student.example.edu").Return(nil, repository.ErrUserNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	repo.On("CreateVerificationCode", ctx, mock.AnythingOfType("*models.VerificationCode")).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "ivan.petrov@student.example.edu",
		Password: "password123",
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.RoleStudent, result.User.Role)
	assert.Equal(t, "student.example.edu", result.User.University)
	// Username выводится из локальной части почты.
	assert.Equal(t, "ivan_petrov", result.User.Username)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
}

func TestAuthService_Register_WrongDomain(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "someone@gmail.com",
		Password: "password123",
	}, nil)

	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Register_SubdomainAllowed(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "anna@cs.student.example.edu").Return(nil, repository.ErrUserNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	repo.On("CreateVerificationCode", ctx, mock.AnythingOfType("*models.VerificationCode")).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "anna@cs.student.example.edu",
		Password: "password123",
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "cs.student.example.edu", result.User.University)
}

func TestAuthService_Register_ShortPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ivan@student.example.edu",
		Password: "short",
	}, nil)

	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	existing := &models.User{ID: uuid.New(), Email: "ivan@student.example.edu"}
	repo.On("GetByEmail", ctx, "ivan@student.example.edu").Return(existing, nil)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "ivan@student.example.edu",
		Password: "password123",
	}, nil)

	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	passHash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ivan@student.example.edu",
		PasswordHash: string(passHash),
		Role:         models.RoleStudent,
		IsActive:     true,
	}

	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)
	repo.On("UpdateLastLoginAt", ctx, user.ID).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Login(ctx, LoginInput{Email: user.Email, Password: "password123"}, map[string]string{
		"user_agent": "test-agent",
		"ip":         "127.0.0.1",
	})

	assert.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	passHash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ivan@student.example.edu",
		PasswordHash: string(passHash),
		IsActive:     true,
	}

	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: user.Email, Password: "wrong-password"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@student.example.edu").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Login(ctx, LoginInput{Email: "ghost@student.example.edu", Password: "password123"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "banned@student.example.edu", IsActive: false}
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: user.Email, Password: "password123"}, nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
}

func TestAuthService_Refresh_SessionRevoked(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := testTokenManager()
	svc := NewAuthService(repo, tm, "student.example.edu")
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleStudent}
	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	// После logout токен валиден криптографически, но сессии уже нет.
	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(nil, repository.ErrUserNotFound)

	_, err = svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeUnauthorized))
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := testTokenManager()
	svc := NewAuthService(repo, tm, "student.example.edu")
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleStudent, IsActive: true}
	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	session := &models.Session{ID: uuid.New(), UserID: user.ID, RefreshToken: pair.RefreshToken}
	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(session, nil)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	newPair, err := svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, newPair.AccessToken)
	repo.AssertCalled(t, "DeleteSession", ctx, pair.RefreshToken)
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")

	_, err := svc.Refresh(context.Background(), "not-a-jwt", nil)
	assert.True(t, apperror.Is(err, apperror.ErrCodeUnauthorized))
}

func TestAuthService_VerifyEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	userID := uuid.New()
	stored := &models.VerificationCode{UserID: userID, Code: "123456", ExpiresAt: time.Now().Add(time.Minute)}

	repo.On("GetActiveVerificationCode", ctx, userID).Return(stored, nil)
	repo.On("MarkEmailVerified", ctx, userID).Return(nil)
	repo.On("DeleteVerificationCodes", ctx, userID).Return(nil)

	assert.NoError(t, svc.VerifyEmail(ctx, userID, "123456"))

	err := svc.VerifyEmail(ctx, userID, "000000")
	assert.True(t, apperror.Is(err, apperror.ErrCodeBadRequest))
}

func TestAuthService_ResendVerificationCode_AlreadyVerified(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager(), "student.example.edu")
	ctx := context.Background()

	now := time.Now()
	user := &models.User{ID: uuid.New(), EmailVerifiedAt: &now}
	repo.On("GetByID", ctx, user.ID).Return(user, nil)

	err := svc.ResendVerificationCode(ctx, user.ID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
}

func TestTokenManager_ParseAccess(t *testing.T) {
	tm := testTokenManager()
	user := &models.User{ID: uuid.New(), Role: models.RoleModerator}

	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	userID, role, err := tm.ParseAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, models.RoleModerator, role)

	// Refresh токен не принимается как access.
	_, _, err = tm.ParseAccess(pair.RefreshToken)
	assert.Error(t, err)
}
