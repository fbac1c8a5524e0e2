package user

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NgKhai/product-manager/internal/api"
	"github.com/NgKhai/product-manager/internal/api/auth"
	"github.com/NgKhai/product-manager/internal/types"
)

type UserHandler struct {
	service UserService
	logger  *slog.Logger
}

func NewUserHandler(service UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// caller pulls the authenticated identity placed by the auth gate.
func caller(r *http.Request) (uuid.UUID, types.Role, bool) {
	id, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", false
	}
	role, ok := auth.GetUserRoleFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", false
	}
	return id, role, true
}

func userIDFromURL(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "userID"))
}

// List handles GET /users. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListUsers"))

	_, role, ok := caller(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, pagination, err := h.service.List(ctx, page, limit, role)
	if err != nil {
		if errors.Is(err, types.ErrForbidden) {
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrInsufficientRole.Error())
			return
		}
		l.ErrorContext(ctx, "User listing failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list users")
		return
	}

	if users == nil {
		users = []types.User{}
	}
	api.SuccessResponse(w, r, http.StatusOK, UserListResponse{
		Users:      users,
		Pagination: pagination,
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetUser"))

	callerID, role, ok := caller(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := userIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.service.Get(ctx, id, callerID, role)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrForbidden.Error())
		case errors.Is(err, types.ErrUserNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, types.ErrUserNotFound.Error())
		default:
			l.ErrorContext(ctx, "User lookup failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, map[string]auth.PublicUser{"user": auth.NewPublicUser(user)})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateUser"))

	callerID, role, ok := caller(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := userIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Update(ctx, id, req.toParams(), callerID, role)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrForbidden.Error())
		case errors.Is(err, types.ErrUserNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, types.ErrUserNotFound.Error())
		case errors.Is(err, types.ErrDuplicateEmail):
			api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrDuplicateEmail.Error())
		default:
			l.ErrorContext(ctx, "User update failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update user")
		}
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, map[string]auth.PublicUser{"user": auth.NewPublicUser(user)})
}

// Delete deactivates the account rather than removing the row, so audit
// references stay intact. Sessions are revoked as part of it.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteUser"))

	callerID, role, ok := caller(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := userIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.Deactivate(ctx, id, callerID, role); err != nil {
		switch {
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrForbidden.Error())
		case errors.Is(err, types.ErrUserNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, types.ErrUserNotFound.Error())
		default:
			l.ErrorContext(ctx, "User delete failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete user")
		}
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, map[string]string{"message": "User deactivated"})
}
