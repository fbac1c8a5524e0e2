package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NgKhai/product-manager/internal/types"
)

func setupGateTest(t *testing.T) (*TokenCodec, *AuthServiceImpl, *MockAuthRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockAuthRepo)
	codec := NewTokenCodec(testAuthConfig())
	service := NewAuthService(mockRepo, codec, 4, logger)
	return codec, service, mockRepo
}

// echoIdentity records what the gate put on the context.
func echoIdentity(sawIdentity *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, *sawIdentity = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("valid token attaches identity", func(t *testing.T) {
		codec, service, mockRepo := setupGateTest(t)
		user := activeUser()
		token, err := codec.IssueAccess(user.ID, user.Role)
		require.NoError(t, err)
		mockRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()

		var sawIdentity bool
		handler := Authenticate(logger, codec, service)(echoIdentity(&sawIdentity))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, sawIdentity)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		codec, service, _ := setupGateTest(t)
		var sawIdentity bool
		handler := Authenticate(logger, codec, service)(echoIdentity(&sawIdentity))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, sawIdentity)
	})

	t.Run("expired token", func(t *testing.T) {
		codec, service, _ := setupGateTest(t)
		issued := time.Now().Add(-time.Hour)
		codec.now = func() time.Time { return issued }
		user := activeUser()
		token, err := codec.IssueAccess(user.ID, user.Role)
		require.NoError(t, err)
		codec.now = time.Now

		handler := Authenticate(logger, codec, service)(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), types.ErrTokenExpired.Error())
	})

	t.Run("refresh token rejected at the gate", func(t *testing.T) {
		codec, service, _ := setupGateTest(t)
		refresh, err := codec.IssueRefresh(activeUser().ID)
		require.NoError(t, err)

		handler := Authenticate(logger, codec, service)(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+refresh)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deactivated account gets 403", func(t *testing.T) {
		codec, service, mockRepo := setupGateTest(t)
		user := activeUser()
		user.Status = types.StatusDisabled
		token, err := codec.IssueAccess(user.ID, user.Role)
		require.NoError(t, err)
		mockRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()

		handler := Authenticate(logger, codec, service)(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockRepo.AssertExpectations(t)
	})

	t.Run("access cookie works without header", func(t *testing.T) {
		codec, service, mockRepo := setupGateTest(t)
		user := activeUser()
		token, err := codec.IssueAccess(user.ID, user.Role)
		require.NoError(t, err)
		mockRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()

		var sawIdentity bool
		handler := Authenticate(logger, codec, service)(echoIdentity(&sawIdentity))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, sawIdentity)
	})
}

func TestOptionalAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("no token continues unauthenticated", func(t *testing.T) {
		codec, service, _ := setupGateTest(t)
		var sawIdentity bool
		handler := OptionalAuth(logger, codec, service)(echoIdentity(&sawIdentity))

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, sawIdentity)
	})

	t.Run("invalid token continues unauthenticated", func(t *testing.T) {
		codec, service, _ := setupGateTest(t)
		var sawIdentity bool
		handler := OptionalAuth(logger, codec, service)(echoIdentity(&sawIdentity))

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, sawIdentity)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		codec, service, mockRepo := setupGateTest(t)
		user := activeUser()
		token, err := codec.IssueAccess(user.ID, user.Role)
		require.NoError(t, err)
		mockRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()

		var sawIdentity bool
		handler := OptionalAuth(logger, codec, service)(echoIdentity(&sawIdentity))

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, sawIdentity)
	})
}

func TestRequireRoles(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	serve := func(user *types.User, mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if user != nil {
			req = req.WithContext(identityContext(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("allowed role passes", func(t *testing.T) {
		admin := activeUser()
		admin.Role = types.RoleAdmin
		rec := serve(admin, RequireAdmin(logger))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("role outside the set gets 403", func(t *testing.T) {
		rec := serve(activeUser(), RequireAdmin(logger))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), types.ErrInsufficientRole.Error())
	})

	t.Run("no identity gets 401", func(t *testing.T) {
		rec := serve(nil, RequireAdmin(logger))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("multiple allowed roles", func(t *testing.T) {
		mw := RequireRoles(logger, types.RoleUser, types.RoleAdmin)
		rec := serve(activeUser(), mw)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
