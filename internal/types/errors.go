package types

import "errors"

// Auth failure taxonomy. Handlers map these to HTTP statuses at the
// boundary; lower layers only wrap them, never translate them.
var (
	// ErrDuplicateEmail is returned when registration or a profile update
	// collides with an existing account's email.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrInvalidCredentials merges "no such user" and "wrong password" so
	// callers cannot enumerate accounts through error messages.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDeactivated is returned for a disabled account after the
	// password check has already succeeded.
	ErrAccountDeactivated = errors.New("account is deactivated")

	ErrNoToken           = errors.New("no token provided")
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenMalformed    = errors.New("token is malformed or has an invalid signature")
	ErrTokenTypeMismatch = errors.New("token type mismatch")

	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidRefreshToken signals a refresh token that verified
	// cryptographically but is no longer in the stored set: either revoked
	// or already rotated. Reuse after rotation is a theft signal.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrInsufficientRole = errors.New("insufficient role")
)

// Resource failure taxonomy shared by the product and user modules.
var (
	ErrNotFound     = errors.New("requested item not found")
	ErrDuplicateSKU = errors.New("sku already in use")
	ErrForbidden    = errors.New("action forbidden")
)
