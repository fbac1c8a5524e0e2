package user

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/NgKhai/product-manager/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService applies the self-or-admin access rule for account management.
type UserService interface {
	// List is admin-only; non-admin callers get types.ErrForbidden.
	List(ctx context.Context, page, limit int, callerRole types.Role) ([]types.User, types.Pagination, error)
	Get(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole types.Role) (*types.User, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams, callerID uuid.UUID, callerRole types.Role) (*types.User, error)
	// Deactivate soft-deletes the account and revokes its sessions.
	Deactivate(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole types.Role) error
}

type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

func NewUserService(repo UserRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// canAccess is the self-or-admin rule shared by get, update and deactivate.
func canAccess(id, callerID uuid.UUID, callerRole types.Role) bool {
	return callerRole == types.RoleAdmin || id == callerID
}

func (s *UserServiceImpl) List(ctx context.Context, page, limit int, callerRole types.Role) ([]types.User, types.Pagination, error) {
	if callerRole != types.RoleAdmin {
		return nil, types.Pagination{}, types.ErrForbidden
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, types.Pagination{}, err
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return users, types.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

func (s *UserServiceImpl) Get(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole types.Role) (*types.User, error) {
	if !canAccess(id, callerID, callerRole) {
		return nil, types.ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

func (s *UserServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams, callerID uuid.UUID, callerRole types.Role) (*types.User, error) {
	if !canAccess(id, callerID, callerRole) {
		return nil, types.ErrForbidden
	}

	user, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User profile updated",
		slog.String("user_id", id.String()),
		slog.String("caller_id", callerID.String()))
	return user, nil
}

func (s *UserServiceImpl) Deactivate(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole types.Role) error {
	if !canAccess(id, callerID, callerRole) {
		return types.ErrForbidden
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "User deactivated",
		slog.String("user_id", id.String()),
		slog.String("caller_id", callerID.String()))
	return nil
}
