package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/NgKhai/product-manager/internal/api"
	"github.com/NgKhai/product-manager/internal/types"
)

// Define typed context keys
type contextKey string

const UserIDKey contextKey = "userID"
const UserRoleKey contextKey = "userRole"
const UserKey contextKey = "user"

// GetUserIDFromContext returns the authenticated caller's id, if any.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (types.Role, bool) {
	role, ok := ctx.Value(UserRoleKey).(types.Role)
	return role, ok
}

func GetUserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(UserKey).(*types.User)
	return user, ok
}

// IsAdmin reports whether the request context carries an admin identity.
func IsAdmin(ctx context.Context) bool {
	role, ok := GetUserRoleFromContext(ctx)
	return ok && role == types.RoleAdmin
}

// extractToken pulls the bearer credential off the request: Authorization
// header first, then the access cookie. Empty string when absent.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) == 2 && strings.EqualFold(headerParts[0], "bearer") {
			return headerParts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie(AccessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// resolveIdentity verifies the access token and loads the user behind it.
// It is shared by the mandatory and optional gates; only the failure
// handling differs.
func resolveIdentity(ctx context.Context, codec *TokenCodec, users AuthService, tokenString string) (*types.User, error) {
	claims, err := codec.VerifyAccess(tokenString)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, types.ErrTokenMalformed
	}

	user, err := users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, types.ErrAccountDeactivated
	}
	return user, nil
}

func identityContext(ctx context.Context, user *types.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	ctx = context.WithValue(ctx, UserRoleKey, user.Role)
	ctx = context.WithValue(ctx, UserKey, user)
	return ctx
}

// Authenticate is the mandatory auth gate: it rejects requests without a
// valid access token behind an active account, and attaches the identity
// to the request context for downstream handlers.
func Authenticate(logger *slog.Logger, codec *TokenCodec, users AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			tokenString := extractToken(r)
			if tokenString == "" {
				l.WarnContext(ctx, "Missing bearer token")
				api.ErrorResponse(w, r, http.StatusUnauthorized, types.ErrNoToken.Error())
				return
			}

			user, err := resolveIdentity(ctx, codec, users, tokenString)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, types.ErrAccountDeactivated) {
					// Deactivation is an authorization failure: the caller
					// proved who they are, the account just may not act.
					status = http.StatusForbidden
				}
				l.WarnContext(ctx, "Authentication failed", slog.Any("error", err))
				api.ErrorResponse(w, r, status, authFailureMessage(err))
				return
			}

			l.DebugContext(ctx, "Authentication successful",
				slog.String("user_id", user.ID.String()))
			next.ServeHTTP(w, r.WithContext(identityContext(ctx, user)))
		})
	}
}

// OptionalAuth performs the same extraction and verification as
// Authenticate, but every failure is swallowed: the request proceeds
// unauthenticated with the identity keys unset. Used by public reads whose
// behavior varies when the caller happens to be identified.
func OptionalAuth(logger *slog.Logger, codec *TokenCodec, users AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString := extractToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolveIdentity(ctx, codec, users, tokenString)
			if err != nil {
				logger.DebugContext(ctx, "Optional auth: invalid token, continuing unauthenticated",
					slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(identityContext(ctx, user)))
		})
	}
}

// RequireRoles enforces a role policy: the authenticated caller's role must
// be in the allowed set. Must run after Authenticate.
func RequireRoles(logger *slog.Logger, allowed ...types.Role) func(next http.Handler) http.Handler {
	roleSet := make(map[types.Role]struct{}, len(allowed))
	for _, role := range allowed {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			role, ok := GetUserRoleFromContext(ctx)
			if !ok {
				logger.ErrorContext(ctx, "Role check without authenticated identity")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			if _, permitted := roleSet[role]; !permitted {
				logger.WarnContext(ctx, "Role check failed",
					slog.String("role", string(role)),
					slog.Any("allowed", allowed))
				api.ErrorResponse(w, r, http.StatusForbidden, types.ErrInsufficientRole.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates a route to admin callers.
func RequireAdmin(logger *slog.Logger) func(next http.Handler) http.Handler {
	return RequireRoles(logger, types.RoleAdmin)
}

// authFailureMessage keeps outward messages stable and non-leaking while
// still surfacing the specific verification failure.
func authFailureMessage(err error) string {
	switch {
	case errors.Is(err, types.ErrTokenExpired):
		return types.ErrTokenExpired.Error()
	case errors.Is(err, types.ErrTokenTypeMismatch):
		return types.ErrTokenTypeMismatch.Error()
	case errors.Is(err, types.ErrTokenMalformed):
		return types.ErrTokenMalformed.Error()
	case errors.Is(err, types.ErrUserNotFound):
		return types.ErrUserNotFound.Error()
	case errors.Is(err, types.ErrAccountDeactivated):
		return types.ErrAccountDeactivated.Error()
	default:
		return "Invalid or expired token"
	}
}
