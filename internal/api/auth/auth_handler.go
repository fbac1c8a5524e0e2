package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/NgKhai/product-manager/internal/api"
	"github.com/NgKhai/product-manager/internal/types"
)

type AuthHandler struct {
	service    AuthService
	logger     *slog.Logger
	refreshTTL time.Duration
	secure     bool // Secure cookie flag, on in production
}

func NewAuthHandler(service AuthService, refreshTTL time.Duration, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:    service,
		logger:     logger,
		refreshTTL: refreshTTL,
		secure:     secure,
	}
}

// setRefreshCookie delivers the refresh token on the guarded cookie only;
// it never appears in a JSON body.
func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFromRequest prefers the cookie, falling back to the optional
// JSON body for cookie-less clients.
func refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req RefreshRequest
	if err := api.DecodeJSONBody(w, r, &req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, access, refresh, err := h.service.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, types.ErrDuplicateEmail) {
			api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrDuplicateEmail.Error())
			return
		}
		l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Registration failed. Please try again.")
		return
	}

	h.setRefreshCookie(w, refresh)
	api.SuccessResponse(w, r, http.StatusCreated, AuthResponse{
		User:        NewPublicUser(user),
		AccessToken: access,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, access, refresh, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidCredentials):
			// One message for unknown email and wrong password alike.
			api.ErrorResponse(w, r, http.StatusUnauthorized, types.ErrInvalidCredentials.Error())
		case errors.Is(err, types.ErrAccountDeactivated):
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrAccountDeactivated.Error())
		default:
			l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed. Please try again.")
		}
		return
	}

	h.setRefreshCookie(w, refresh)
	api.SuccessResponse(w, r, http.StatusOK, AuthResponse{
		User:        NewPublicUser(user),
		AccessToken: access,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Refresh"))

	refreshToken := refreshTokenFromRequest(w, r)
	if refreshToken == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Refresh token not provided")
		return
	}

	access, newRefresh, err := h.service.Refresh(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrTokenExpired),
			errors.Is(err, types.ErrTokenMalformed),
			errors.Is(err, types.ErrTokenTypeMismatch),
			errors.Is(err, types.ErrUserNotFound),
			errors.Is(err, types.ErrInvalidRefreshToken),
			errors.Is(err, types.ErrAccountDeactivated):
			api.ErrorResponse(w, r, http.StatusUnauthorized, authFailureMessage(err))
		default:
			l.ErrorContext(ctx, "Token refresh failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Token refresh failed")
		}
		return
	}

	h.setRefreshCookie(w, newRefresh)
	api.SuccessResponse(w, r, http.StatusOK, TokenResponse{AccessToken: access})
}

// Logout runs behind the auth gate: only a caller with a live access token
// can revoke server-side state. Clearing the cookie happens regardless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Logout"))

	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	refreshToken := refreshTokenFromRequest(w, r)
	if err := h.service.Logout(ctx, userID, refreshToken); err != nil {
		l.ErrorContext(ctx, "Logout failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Logout failed. Please try again.")
		return
	}

	h.clearRefreshCookie(w)
	api.SuccessResponse(w, r, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "LogoutAll"))

	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.service.LogoutAll(ctx, userID); err != nil {
		l.ErrorContext(ctx, "Logout-all failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to logout from all devices")
		return
	}

	h.clearRefreshCookie(w)
	api.SuccessResponse(w, r, http.StatusOK, map[string]string{"message": "Logged out from all devices"})
}

// Me returns the authenticated caller's public profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	api.SuccessResponse(w, r, http.StatusOK, map[string]PublicUser{"user": NewPublicUser(user)})
}
