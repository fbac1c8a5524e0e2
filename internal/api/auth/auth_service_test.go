package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/NgKhai/product-manager/internal/types"
)

// MockAuthRepo is a mock implementation of AuthRepo
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) FindByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error) {
	args := m.Called(ctx, name, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) VerifyCredentials(ctx context.Context, email, password string) (*types.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) AppendRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockAuthRepo) RemoveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockAuthRepo) ClearRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthRepo) HasRefreshToken(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	args := m.Called(ctx, userID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthRepo) ReplaceRefreshToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	args := m.Called(ctx, userID, oldToken, newToken)
	return args.Error(0)
}

func setupAuthServiceTest() (*AuthServiceImpl, *MockAuthRepo, *TokenCodec) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockAuthRepo)
	codec := NewTokenCodec(testAuthConfig())
	service := NewAuthService(mockRepo, codec, bcrypt.MinCost, logger)
	return service, mockRepo, codec
}

func activeUser() *types.User {
	return &types.User{
		ID:     uuid.New(),
		Name:   "Jordan",
		Email:  "jordan@example.com",
		Role:   types.RoleUser,
		Status: types.StatusActive,
	}
}

func TestAuthServiceImpl_Register(t *testing.T) {
	service, mockRepo, codec := setupAuthServiceTest()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		user := activeUser()
		mockRepo.On("CreateUser", ctx, "Jordan", "jordan@example.com", mock.AnythingOfType("string")).
			Return(user, nil).Once()
		mockRepo.On("AppendRefreshToken", ctx, user.ID, mock.AnythingOfType("string")).
			Return(nil).Once()

		got, access, refresh, err := service.Register(ctx, "Jordan", "jordan@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, user, got)

		claims, err := codec.VerifyAccess(access)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.Subject)

		_, err = codec.VerifyRefresh(refresh)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockRepo.On("CreateUser", ctx, "Jordan", "taken@example.com", mock.AnythingOfType("string")).
			Return(nil, types.ErrDuplicateEmail).Once()

		_, _, _, err := service.Register(ctx, "Jordan", "taken@example.com", "password123")
		assert.ErrorIs(t, err, types.ErrDuplicateEmail)
		mockRepo.AssertExpectations(t)
	})

	t.Run("hashed password reaches the store", func(t *testing.T) {
		user := activeUser()
		mockRepo.On("CreateUser", ctx, "Jordan", "jordan@example.com", mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")) == nil
		})).Return(user, nil).Once()
		mockRepo.On("AppendRefreshToken", ctx, user.ID, mock.AnythingOfType("string")).
			Return(nil).Once()

		_, _, _, err := service.Register(ctx, "Jordan", "jordan@example.com", "password123")
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestAuthServiceImpl_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		user := activeUser()
		mockRepo.On("VerifyCredentials", ctx, user.Email, "password123").Return(user, nil).Once()
		mockRepo.On("AppendRefreshToken", ctx, user.ID, mock.AnythingOfType("string")).Return(nil).Once()

		got, access, refresh, err := service.Login(ctx, user.Email, "password123")
		require.NoError(t, err)
		assert.Equal(t, user, got)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		mockRepo.On("VerifyCredentials", ctx, "jordan@example.com", "wrong").
			Return(nil, types.ErrInvalidCredentials).Once()

		_, _, _, err := service.Login(ctx, "jordan@example.com", "wrong")
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
		mockRepo.AssertExpectations(t)
	})

	t.Run("deactivated account after password match", func(t *testing.T) {
		service, mockRepo, _ := setupAuthServiceTest()
		user := activeUser()
		user.Status = types.StatusDisabled
		mockRepo.On("VerifyCredentials", ctx, user.Email, "password123").Return(user, nil).Once()

		_, _, _, err := service.Login(ctx, user.Email, "password123")
		assert.ErrorIs(t, err, types.ErrAccountDeactivated)
		mockRepo.AssertNotCalled(t, "AppendRefreshToken", mock.Anything, mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})
}

func TestAuthServiceImpl_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation success", func(t *testing.T) {
		service, mockRepo, codec := setupAuthServiceTest()
		user := activeUser()
		oldRefresh, err := codec.IssueRefresh(user.ID)
		require.NoError(t, err)

		mockRepo.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		mockRepo.On("ReplaceRefreshToken", ctx, user.ID, oldRefresh, mock.AnythingOfType("string")).
			Return(nil).Once()

		access, newRefresh, err := service.Refresh(ctx, oldRefresh)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, newRefresh)
		assert.NotEqual(t, oldRefresh, newRefresh, "rotation must mint a fresh token")

		claims, err := codec.VerifyAccess(access)
		require.NoError(t, err)
		assert.Equal(t, user.Role, claims.Role)
		mockRepo.AssertExpectations(t)
	})

	t.Run("replay after rotation", func(t *testing.T) {
		service, mockRepo, codec := setupAuthServiceTest()
		user := activeUser()
		stolen, err := codec.IssueRefresh(user.ID)
		require.NoError(t, err)

		mockRepo.On("FindByID", ctx, user.ID).Return(user, nil).Once()
		// The token verifies but is gone from the store: already rotated.
		mockRepo.On("ReplaceRefreshToken", ctx, user.ID, stolen, mock.AnythingOfType("string")).
			Return(types.ErrInvalidRefreshToken).Once()

		_, _, err = service.Refresh(ctx, stolen)
		assert.ErrorIs(t, err, types.ErrInvalidRefreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("access token rejected", func(t *testing.T) {
		service, mockRepo, codec := setupAuthServiceTest()
		access, err := codec.IssueAccess(uuid.New(), types.RoleUser)
		require.NoError(t, err)

		_, _, err = service.Refresh(ctx, access)
		assert.ErrorIs(t, err, types.ErrTokenMalformed)
		mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("deactivated user", func(t *testing.T) {
		service, mockRepo, codec := setupAuthServiceTest()
		user := activeUser()
		user.Status = types.StatusDisabled
		refresh, err := codec.IssueRefresh(user.ID)
		require.NoError(t, err)

		mockRepo.On("FindByID", ctx, user.ID).Return(user, nil).Once()

		_, _, err = service.Refresh(ctx, refresh)
		assert.ErrorIs(t, err, types.ErrAccountDeactivated)
		mockRepo.AssertNotCalled(t, "ReplaceRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})
}

func TestAuthServiceImpl_Logout(t *testing.T) {
	service, mockRepo, _ := setupAuthServiceTest()
	ctx := context.Background()
	userID := uuid.New()

	t.Run("removes the presented token", func(t *testing.T) {
		mockRepo.On("RemoveRefreshToken", ctx, userID, "some-refresh-token").Return(nil).Once()

		err := service.Logout(ctx, userID, "some-refresh-token")
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("no token is a no-op", func(t *testing.T) {
		err := service.Logout(ctx, userID, "")
		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "RemoveRefreshToken", mock.Anything, mock.Anything, "")
	})
}

func TestAuthServiceImpl_LogoutAll(t *testing.T) {
	service, mockRepo, _ := setupAuthServiceTest()
	ctx := context.Background()
	userID := uuid.New()

	mockRepo.On("ClearRefreshTokens", ctx, userID).Return(nil).Once()

	err := service.LogoutAll(ctx, userID)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
