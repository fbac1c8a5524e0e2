package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/NgKhai/product-manager/config"
	"github.com/NgKhai/product-manager/internal/types"
)

// TokenCodec signs and verifies the access/refresh token pair. Access and
// refresh tokens use independent secrets so that compromise of one cannot
// forge the other. The codec has no side effects; all state is the
// immutable configuration injected at construction.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string

	// now is swappable for expiry tests.
	now func() time.Time
}

func NewTokenCodec(cfg config.AuthConfig) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		now:           time.Now,
	}
}

// IssueAccess mints a short-lived access token carrying the subject and
// role, so authorization decisions need no database round trip.
func (c *TokenCodec) IssueAccess(userID uuid.UUID, role types.Role) (string, error) {
	return c.sign(c.accessSecret, types.Claims{
		Role:      role,
		TokenType: types.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			ExpiresAt: jwt.NewNumericDate(c.now().Add(c.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ID:        uuid.NewString(),
		},
	})
}

// IssueRefresh mints a long-lived refresh token carrying only the subject;
// the role is re-resolved from the stored user on every refresh.
func (c *TokenCodec) IssueRefresh(userID uuid.UUID) (string, error) {
	return c.sign(c.refreshSecret, types.Claims{
		TokenType: types.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			ExpiresAt: jwt.NewNumericDate(c.now().Add(c.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ID:        uuid.NewString(),
		},
	})
}

// VerifyAccess validates signature, issuer, audience, expiry and token
// type, returning the claims on success.
func (c *TokenCodec) VerifyAccess(tokenString string) (*types.Claims, error) {
	return c.verify(tokenString, c.accessSecret, types.TokenTypeAccess)
}

// VerifyRefresh is the refresh-secret counterpart of VerifyAccess.
func (c *TokenCodec) VerifyRefresh(tokenString string) (*types.Claims, error) {
	return c.verify(tokenString, c.refreshSecret, types.TokenTypeRefresh)
}

func (c *TokenCodec) sign(secret []byte, claims types.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *TokenCodec) verify(tokenString string, secret []byte, want types.TokenType) (*types.Claims, error) {
	claims := &types.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.ErrTokenExpired
		}
		// Signature, issuer, audience and structural failures all collapse
		// into a single malformed error; callers get no detail to probe.
		return nil, types.ErrTokenMalformed
	}

	if claims.TokenType != want {
		return nil, types.ErrTokenTypeMismatch
	}
	return claims, nil
}
