package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/NgKhai/product-manager/internal/types"
)

// RefreshCookieName is the HttpOnly cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// AccessCookieName is checked by the auth gate after the Authorization
// header. The server never sets it; it exists for clients that choose
// cookie storage for the access token.
const AccessCookieName = "accessToken"

// RegisterRequest represents the expected JSON body for user registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

// LoginRequest represents the expected JSON body for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshRequest is the optional JSON body for refresh and logout; the
// refresh token usually arrives via cookie instead.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// PublicUser is the outward shape of a user: no password hash, no
// refresh-token history.
type PublicUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// NewPublicUser strips secret fields off a stored user.
func NewPublicUser(u *types.User) PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// AuthResponse is the success body for register and login. The refresh
// token is deliberately absent: it travels only in the cookie.
type AuthResponse struct {
	User        PublicUser `json:"user"`
	AccessToken string     `json:"accessToken"`
}

// TokenResponse is the success body for refresh.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}
