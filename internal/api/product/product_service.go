package product

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/NgKhai/product-manager/internal/types"
)

var _ ProductService = (*ProductServiceImpl)(nil)

// ProductService applies the catalog's visibility and ownership rules on
// top of the store. Caller identity arrives as explicit arguments rather
// than context values so the rules are testable in isolation.
type ProductService interface {
	List(ctx context.Context, filter types.ProductFilter, callerRole types.Role) ([]types.Product, types.Pagination, error)
	GetByID(ctx context.Context, id uuid.UUID, callerRole types.Role) (*types.Product, error)
	Create(ctx context.Context, params types.CreateProductParams, callerID uuid.UUID) (*types.Product, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateProductParams, callerID uuid.UUID, callerRole types.Role) (*types.Product, error)
	Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole types.Role) error
	HardDelete(ctx context.Context, id uuid.UUID, callerRole types.Role) error
}

type ProductServiceImpl struct {
	logger *slog.Logger
	repo   ProductRepo
	cache  *cache.Cache
}

const listingCacheTTL = 30 * time.Second

func NewProductService(repo ProductRepo, logger *slog.Logger) *ProductServiceImpl {
	return &ProductServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(listingCacheTTL, time.Minute),
	}
}

type cachedListing struct {
	products []types.Product
	total    int64
}

// listingCacheKey flattens the filter into a stable string; pointer fields
// are dereferenced so logically equal filters share one entry.
func listingCacheKey(filter types.ProductFilter) string {
	deref := func(f *float64) float64 {
		if f == nil {
			return -1
		}
		return *f
	}
	activeOnly := "nil"
	if filter.ActiveOnly != nil {
		activeOnly = strconv.FormatBool(*filter.ActiveOnly)
	}
	return fmt.Sprintf("listing:%d:%d:%s:%g:%g:%t:%s:%s:%t:%t:%s",
		filter.Page, filter.Limit, filter.Category,
		deref(filter.MinPrice), deref(filter.MaxPrice),
		filter.InStock, filter.Search, filter.SortBy, filter.SortDesc,
		filter.ShowAll, activeOnly)
}

func paginate(filter types.ProductFilter, total int64) types.Pagination {
	pages := total / int64(filter.Limit)
	if total%int64(filter.Limit) != 0 {
		pages++
	}
	return types.Pagination{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
		Pages: pages,
	}
}

func (s *ProductServiceImpl) List(ctx context.Context, filter types.ProductFilter, callerRole types.Role) ([]types.Product, types.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	// Disabled products are admin-only. Everyone else gets the active
	// slice, whatever the query asked for.
	if callerRole != types.RoleAdmin {
		active := true
		filter.ActiveOnly = &active
		filter.ShowAll = false
	} else if !filter.ShowAll && filter.ActiveOnly == nil {
		active := true
		filter.ActiveOnly = &active
	}

	key := listingCacheKey(filter)
	if entry, found := s.cache.Get(key); found {
		listing := entry.(cachedListing)
		return listing.products, paginate(filter, listing.total), nil
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, types.Pagination{}, err
	}

	s.cache.Set(key, cachedListing{products: products, total: total}, cache.DefaultExpiration)
	return products, paginate(filter, total), nil
}

func (s *ProductServiceImpl) GetByID(ctx context.Context, id uuid.UUID, callerRole types.Role) (*types.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// A disabled product reads as absent to non-admins.
	if !product.IsActive() && callerRole != types.RoleAdmin {
		return nil, types.ErrNotFound
	}
	return product, nil
}

func (s *ProductServiceImpl) Create(ctx context.Context, params types.CreateProductParams, callerID uuid.UUID) (*types.Product, error) {
	product, err := s.repo.Create(ctx, params, callerID)
	if err != nil {
		return nil, err
	}

	s.cache.Flush()
	s.logger.InfoContext(ctx, "Product created",
		slog.String("product_id", product.ID.String()),
		slog.String("sku", product.SKU))
	return product, nil
}

// canModify implements the ownership rule: the creator or an admin.
func canModify(product *types.Product, callerID uuid.UUID, callerRole types.Role) bool {
	return callerRole == types.RoleAdmin || product.CreatedBy == callerID
}

func (s *ProductServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateProductParams, callerID uuid.UUID, callerRole types.Role) (*types.Product, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(existing, callerID, callerRole) {
		return nil, types.ErrForbidden
	}
	// Status changes are an admin lever; owners use delete instead.
	if params.IsActive != nil && callerRole != types.RoleAdmin {
		return nil, types.ErrForbidden
	}

	product, err := s.repo.Update(ctx, id, params, callerID)
	if err != nil {
		return nil, err
	}

	s.cache.Flush()
	s.logger.InfoContext(ctx, "Product updated",
		slog.String("product_id", product.ID.String()))
	return product, nil
}

func (s *ProductServiceImpl) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole types.Role) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(existing, callerID, callerRole) {
		return types.ErrForbidden
	}

	if err := s.repo.SoftDelete(ctx, id, callerID); err != nil {
		return err
	}

	s.cache.Flush()
	s.logger.InfoContext(ctx, "Product deactivated",
		slog.String("product_id", id.String()))
	return nil
}

func (s *ProductServiceImpl) HardDelete(ctx context.Context, id uuid.UUID, callerRole types.Role) error {
	if callerRole != types.RoleAdmin {
		return types.ErrForbidden
	}

	if err := s.repo.HardDelete(ctx, id); err != nil {
		return err
	}

	s.cache.Flush()
	s.logger.InfoContext(ctx, "Product permanently deleted",
		slog.String("product_id", id.String()))
	return nil
}
