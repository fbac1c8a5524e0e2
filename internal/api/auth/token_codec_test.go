package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NgKhai/product-manager/config"
	"github.com/NgKhai/product-manager/internal/types"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "secure-rest-api",
		Audience:      "api-users",
	}
}

func TestTokenCodec_AccessRoundTrip(t *testing.T) {
	codec := NewTokenCodec(testAuthConfig())
	userID := uuid.New()

	token, err := codec.IssueAccess(userID, types.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, types.RoleAdmin, claims.Role)
	assert.Equal(t, types.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "secure-rest-api", claims.Issuer)
	assert.NotEmpty(t, claims.ID, "every token carries a unique jti")
}

func TestTokenCodec_RefreshRoundTrip(t *testing.T) {
	codec := NewTokenCodec(testAuthConfig())
	userID := uuid.New()

	token, err := codec.IssueRefresh(userID)
	require.NoError(t, err)

	claims, err := codec.VerifyRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, types.TokenTypeRefresh, claims.TokenType)
	assert.Empty(t, claims.Role, "refresh tokens carry no role")
}

func TestTokenCodec_TypeMismatch(t *testing.T) {
	codec := NewTokenCodec(testAuthConfig())
	userID := uuid.New()

	access, err := codec.IssueAccess(userID, types.RoleUser)
	require.NoError(t, err)
	refresh, err := codec.IssueRefresh(userID)
	require.NoError(t, err)

	// Crossing the verifiers must fail before the type check even runs:
	// the secrets differ, so the signature is rejected as malformed.
	_, err = codec.VerifyRefresh(access)
	assert.ErrorIs(t, err, types.ErrTokenMalformed)
	_, err = codec.VerifyAccess(refresh)
	assert.ErrorIs(t, err, types.ErrTokenMalformed)
}

func TestTokenCodec_SharedSecretTypeCheck(t *testing.T) {
	// With identical secrets the signature verifies, so the token type claim
	// is the only line of defense.
	cfg := testAuthConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	codec := NewTokenCodec(cfg)

	refresh, err := codec.IssueRefresh(uuid.New())
	require.NoError(t, err)

	_, err = codec.VerifyAccess(refresh)
	assert.ErrorIs(t, err, types.ErrTokenTypeMismatch)
}

func TestTokenCodec_Expiry(t *testing.T) {
	codec := NewTokenCodec(testAuthConfig())
	issued := time.Now()
	codec.now = func() time.Time { return issued }

	token, err := codec.IssueAccess(uuid.New(), types.RoleUser)
	require.NoError(t, err)

	codec.now = func() time.Time { return issued.Add(14 * time.Minute) }
	_, err = codec.VerifyAccess(token)
	assert.NoError(t, err, "token still inside its TTL")

	codec.now = func() time.Time { return issued.Add(16 * time.Minute) }
	_, err = codec.VerifyAccess(token)
	assert.ErrorIs(t, err, types.ErrTokenExpired)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	codec := NewTokenCodec(testAuthConfig())
	token, err := codec.IssueAccess(uuid.New(), types.RoleUser)
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.AccessSecret = "a-different-secret"
	other := NewTokenCodec(otherCfg)

	_, err = other.VerifyAccess(token)
	assert.ErrorIs(t, err, types.ErrTokenMalformed)
}

func TestTokenCodec_WrongIssuer(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Issuer = "some-other-service"
	issuer := NewTokenCodec(cfg)

	token, err := issuer.IssueAccess(uuid.New(), types.RoleUser)
	require.NoError(t, err)

	codec := NewTokenCodec(testAuthConfig())
	_, err = codec.VerifyAccess(token)
	assert.ErrorIs(t, err, types.ErrTokenMalformed)
}

func TestTokenCodec_Garbage(t *testing.T) {
	codec := NewTokenCodec(testAuthConfig())

	for _, tokenString := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := codec.VerifyAccess(tokenString)
		assert.ErrorIs(t, err, types.ErrTokenMalformed)
	}
}
