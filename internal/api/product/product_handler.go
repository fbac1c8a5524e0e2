package product

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

type ProductHandler struct {
	service ProductService
	logger  *slog.Logger
}

func NewProductHandler(service ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// callerRole resolves the request's role; anonymous callers read as plain
// users, which keeps the visibility rules uniform.
func callerRole(r *http.Request) types.Role {
	if role, ok := auth.GetUserRoleFromContext(r.Context()); ok {
		return role
	}
	return types.RoleUser
}

func productIDFromURL(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "productID"))
}

// parseFilter maps the listing query string onto a filter. Bad numeric
// values are ignored rather than rejected.
func parseFilter(r *http.Request) types.ProductFilter {
	q := r.URL.Query()
	filter := types.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sort_by"),
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if min, err := strconv.ParseFloat(q.Get("min_price"), 64); err == nil {
		filter.MinPrice = &min
	}
	if max, err := strconv.ParseFloat(q.Get("max_price"), 64); err == nil {
		filter.MaxPrice = &max
	}
	filter.InStock = q.Get("in_stock") == "true"
	filter.SortDesc = q.Get("order") == "desc"
	filter.ShowAll = q.Get("show_all") == "true"

	return filter
}

// List handles GET /products. Runs behind the optional auth gate: admins
// may request disabled products with show_all=true.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListProducts"))

	products, pagination, err := h.service.List(ctx, parseFilter(r), callerRole(r))
	if err != nil {
		l.ErrorContext(ctx, "Product listing failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list products")
		return
	}

	if products == nil {
		products = []types.Product{}
	}
	api.SuccessResponse(w, r, http.StatusOK, ProductListResponse{
		Products:   products,
		Pagination: pagination,
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetProduct"))

	id, err := productIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.service.GetByID(ctx, id, callerRole(r))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Product not found")
			return
		}
		l.ErrorContext(ctx, "Product lookup failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, map[string]*types.Product{"product": product})
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateProduct"))

	callerID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateProductRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Create(ctx, types.CreateProductParams{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
		SKU:         req.SKU,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
	}, callerID)
	if err != nil {
		if errors.Is(err, types.ErrDuplicateSKU) {
			api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrDuplicateSKU.Error())
			return
		}
		l.ErrorContext(ctx, "Product creation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create product")
		return
	}

	api.SuccessResponse(w, r, http.StatusCreated, map[string]*types.Product{"product": product})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateProduct"))

	callerID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := productIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Update(ctx, id, req.toParams(), callerID, callerRole(r))
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Product not found")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrForbidden.Error())
		case errors.Is(err, types.ErrDuplicateSKU):
			api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrDuplicateSKU.Error())
		default:
			l.ErrorContext(ctx, "Product update failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update product")
		}
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, map[string]*types.Product{"product": product})
}

// Delete deactivates a product. The record stays in place so existing
// references keep resolving for admins.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteProduct"))

	callerID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := productIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.Delete(ctx, id, callerID, callerRole(r)); err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Product not found")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrForbidden.Error())
		default:
			l.ErrorContext(ctx, "Product delete failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete product")
		}
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// HardDelete removes the row for good. Admin-gated at the router, and the
// service checks again.
func (h *ProductHandler) HardDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "HardDeleteProduct"))

	id, err := productIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.service.HardDelete(ctx, id, callerRole(r)); err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Product not found")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, types.ErrForbidden.Error())
		default:
			l.ErrorContext(ctx, "Product hard delete failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete product")
		}
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, map[string]string{"message": "Product permanently deleted"})
}
