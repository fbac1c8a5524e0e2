package types

import "github.com/golang-jwt/jwt/v5"

// TokenType discriminates access from refresh tokens inside the signed
// claims; presenting one where the other is expected fails verification.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the signed fields embedded in every token. Role is only
// populated on access tokens; refresh tokens carry just the subject and
// re-resolve the role from the stored user on each use.
type Claims struct {
	Role                 Role      `json:"role,omitempty"`
	TokenType            TokenType `json:"type"`
	jwt.RegisteredClaims           // Subject carries the user ID.
}
