package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/NgKhai/product-manager/app/observability/metrics"
	"github.com/NgKhai/product-manager/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService orchestrates the session lifecycle: registration, login,
// refresh-token rotation and revocation.
type AuthService interface {
	// Register creates a user (role user, status active) and mints the
	// initial token pair. Fails with types.ErrDuplicateEmail.
	Register(ctx context.Context, name, email, password string) (*types.User, string, string, error)
	// Login verifies credentials and mints a token pair. Fails with
	// types.ErrInvalidCredentials or, after a successful password match,
	// types.ErrAccountDeactivated.
	Login(ctx context.Context, email, password string) (*types.User, string, string, error)
	// Refresh rotates refreshToken: verifies it, checks store membership
	// and atomically replaces it with a fresh one. A token that verified
	// but is no longer stored fails with types.ErrInvalidRefreshToken —
	// the replay-after-rotation signal.
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
	// Logout removes one refresh token from the user's set. Idempotent.
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error
	// LogoutAll clears the user's whole refresh-token set, ending every
	// other active session immediately.
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	// GetUserByID loads a user for the auth gate and /me.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

type AuthServiceImpl struct {
	logger     *slog.Logger
	repo       AuthRepo
	codec      *TokenCodec
	bcryptCost int
}

func NewAuthService(repo AuthRepo, codec *TokenCodec, bcryptCost int, logger *slog.Logger) *AuthServiceImpl {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthServiceImpl{
		logger:     logger,
		repo:       repo,
		codec:      codec,
		bcryptCost: bcryptCost,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (*types.User, string, string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, name, email, string(hashed))
	if err != nil {
		return nil, "", "", err
	}

	access, refresh, err := s.mintAndStorePair(ctx, user)
	if err != nil {
		return nil, "", "", err
	}

	s.logger.InfoContext(ctx, "User registered",
		slog.String("user_id", user.ID.String()))
	metrics.Get().RegistrationsTotal.Add(ctx, 1)
	return user, access, refresh, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.User, string, string, error) {
	user, err := s.repo.VerifyCredentials(ctx, email, password)
	if err != nil {
		metrics.Get().LoginFailuresTotal.Add(ctx, 1)
		return nil, "", "", err
	}

	// Checked only after the password matched, so the error order leaks
	// nothing about account existence.
	if !user.IsActive() {
		return nil, "", "", types.ErrAccountDeactivated
	}

	access, refresh, err := s.mintAndStorePair(ctx, user)
	if err != nil {
		return nil, "", "", err
	}

	s.logger.InfoContext(ctx, "User logged in",
		slog.String("user_id", user.ID.String()))
	metrics.Get().LoginsTotal.Add(ctx, 1)
	return user, access, refresh, nil
}

func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return "", "", err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", "", types.ErrTokenMalformed
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if !user.IsActive() {
		return "", "", types.ErrAccountDeactivated
	}

	newRefresh, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return "", "", err
	}

	// One-time use: the old token is removed and the new one stored in a
	// single conditional write, so a concurrent refresh of the same token
	// succeeds exactly once.
	if err := s.repo.ReplaceRefreshToken(ctx, user.ID, refreshToken, newRefresh); err != nil {
		if errors.Is(err, types.ErrInvalidRefreshToken) {
			// A verified token missing from the store means it was already
			// rotated — possible replay of a stolen token.
			s.logger.WarnContext(ctx, "Refresh token reuse detected",
				slog.String("user_id", user.ID.String()))
			metrics.Get().TokenReuseDetectedTotal.Add(ctx, 1)
		}
		return "", "", err
	}

	access, err := s.codec.IssueAccess(user.ID, user.Role)
	if err != nil {
		return "", "", err
	}

	metrics.Get().TokenRefreshesTotal.Add(ctx, 1)
	return access, newRefresh, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if refreshToken == "" {
		// Nothing stored to revoke; the client just drops its cookie.
		return nil
	}
	return s.repo.RemoveRefreshToken(ctx, userID, refreshToken)
}

func (s *AuthServiceImpl) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.ClearRefreshTokens(ctx, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "All sessions revoked",
		slog.String("user_id", userID.String()))
	return nil
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *AuthServiceImpl) mintAndStorePair(ctx context.Context, user *types.User) (string, string, error) {
	access, err := s.codec.IssueAccess(user.ID, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.repo.AppendRefreshToken(ctx, user.ID, refresh); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return access, refresh, nil
}
