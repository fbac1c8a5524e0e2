package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/NgKhai/product-manager/internal/types"
)

// PGXPool is the subset of pgxpool.Pool the credential store uses; pgxmock
// satisfies it in tests.
type PGXPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the credential-store contract the session manager relies on.
// It owns the user record and the bounded set of currently-valid refresh
// tokens.
type AuthRepo interface {
	FindByEmail(ctx context.Context, email string) (*types.User, error)
	FindByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	// CreateUser inserts a new active user with role "user". Fails with
	// types.ErrDuplicateEmail on the unique constraint.
	CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error)
	// VerifyCredentials merges missing-user and wrong-password into
	// types.ErrInvalidCredentials so callers cannot enumerate accounts.
	VerifyCredentials(ctx context.Context, email, password string) (*types.User, error)

	// AppendRefreshToken records a freshly minted refresh token, evicting
	// the oldest entries beyond the most-recent-5 bound.
	AppendRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	// RemoveRefreshToken deletes one token by exact value; idempotent.
	RemoveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	// ClearRefreshTokens empties the user's token set (logout-all).
	ClearRefreshTokens(ctx context.Context, userID uuid.UUID) error
	// HasRefreshToken is the membership test used before rotation.
	HasRefreshToken(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	// ReplaceRefreshToken atomically swaps oldToken for newToken. It fails
	// with types.ErrInvalidRefreshToken when oldToken is not present, so
	// under concurrent refresh of the same token exactly one caller wins.
	ReplaceRefreshToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresAuthRepo(pgpool PGXPool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = "id, name, email, password_hash, role, status, created_at, updated_at"

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// NormalizeEmail is the canonical form used both as login key and for the
// uniqueness constraint.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *PostgresAuthRepo) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	user, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1",
		NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: query failed: %w", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) FindByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1",
		userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: query failed: %w", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, name, email, passwordHash string) (*types.User, error) {
	user, err := scanUser(r.pgpool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role, status)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+userColumns,
		name, NormalizeEmail(email), passwordHash, types.RoleUser, types.StatusActive))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, types.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: insert failed: %w", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) VerifyCredentials(ctx context.Context, email, password string) (*types.User, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			// Burn a comparison against a fixed hash so a missing account
			// costs the same as a wrong password.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, types.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, types.ErrInvalidCredentials
	}
	return user, nil
}

// dummyHash is a bcrypt digest of an unguessable throwaway value, used only
// to equalize timing on unknown-email logins.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

func (r *PostgresAuthRepo) AppendRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append refresh token: begin failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx,
		"INSERT INTO refresh_tokens (user_id, token) VALUES ($1, $2)",
		userID, token)
	if err != nil {
		return fmt.Errorf("append refresh token: insert failed: %w", err)
	}

	// FIFO eviction: keep only the most recent entries per user.
	_, err = tx.Exec(ctx,
		`DELETE FROM refresh_tokens
         WHERE user_id = $1 AND id NOT IN (
             SELECT id FROM refresh_tokens
             WHERE user_id = $1
             ORDER BY id DESC
             LIMIT $2
         )`,
		userID, types.MaxRefreshTokensPerUser)
	if err != nil {
		return fmt.Errorf("append refresh token: trim failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("append refresh token: commit failed: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) RemoveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	tag, err := r.pgpool.Exec(ctx,
		"DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2",
		userID, token)
	if err != nil {
		return fmt.Errorf("remove refresh token: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already gone; logout stays idempotent.
		r.logger.DebugContext(ctx, "Refresh token already absent on removal",
			slog.String("user_id", userID.String()))
	}
	return nil
}

func (r *PostgresAuthRepo) ClearRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx,
		"DELETE FROM refresh_tokens WHERE user_id = $1",
		userID)
	if err != nil {
		return fmt.Errorf("clear refresh tokens: delete failed: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) HasRefreshToken(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE user_id = $1 AND token = $2)",
		userID, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("refresh token membership: query failed: %w", err)
	}
	return exists, nil
}

func (r *PostgresAuthRepo) ReplaceRefreshToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("rotate refresh token: begin failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// The delete doubles as the membership check: zero rows means the token
	// was already rotated or revoked, and this caller loses the race.
	tag, err := tx.Exec(ctx,
		"DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2",
		userID, oldToken)
	if err != nil {
		return fmt.Errorf("rotate refresh token: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrInvalidRefreshToken
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO refresh_tokens (user_id, token) VALUES ($1, $2)",
		userID, newToken)
	if err != nil {
		return fmt.Errorf("rotate refresh token: insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("rotate refresh token: commit failed: %w", err)
	}
	return nil
}
