package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NgKhai/product-manager/app/observability/metrics"
	"github.com/NgKhai/product-manager/internal/types"
)

// PGXPool is the subset of pgxpool.Pool the user store uses; pgxmock
// satisfies it in tests.
type PGXPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ UserRepo = (*PostgresUserRepo)(nil)

type UserRepo interface {
	// List returns one page of accounts, newest first, plus the total count.
	List(ctx context.Context, page, limit int) ([]types.User, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	// Update applies a partial profile update. An email collision fails with
	// types.ErrDuplicateEmail.
	Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error)
	// Deactivate flips the account to disabled and drops every stored
	// refresh token, ending all sessions.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresUserRepo(pgpool PGXPool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = "id, name, email, password_hash, role, status, created_at, updated_at"

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Status,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) List(ctx context.Context, page, limit int) ([]types.User, int64, error) {
	start := time.Now()
	defer func() {
		metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	var total int64
	if err := r.pgpool.QueryRow(ctx, "SELECT count(*) FROM users").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list users: count failed: %w", err)
	}

	rows, err := r.pgpool.Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: query failed: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list users: scan failed: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: rows failed: %w", err)
	}

	return users, total, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	u, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: query failed: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	var sets []string
	var args []any

	if params.Name != nil {
		args = append(args, *params.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if params.Email != nil {
		args = append(args, strings.ToLower(strings.TrimSpace(*params.Email)))
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)

	u, err := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, types.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: update failed: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE users SET status = $1, updated_at = now() WHERE id = $2",
		types.StatusDisabled, id)
	if err != nil {
		return fmt.Errorf("deactivate user: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}

	// Live sessions must die with the account.
	if _, err := r.pgpool.Exec(ctx, "DELETE FROM refresh_tokens WHERE user_id = $1", id); err != nil {
		return fmt.Errorf("deactivate user: failed to clear refresh tokens: %w", err)
	}
	return nil
}
