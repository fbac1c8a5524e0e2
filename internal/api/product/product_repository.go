package product

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

// PGXPool is the subset of pgxpool.Pool the product store uses; pgxmock
// satisfies it in tests.
type PGXPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ ProductRepo = (*PostgresProductRepo)(nil)

type ProductRepo interface {
	List(ctx context.Context, filter types.ProductFilter) ([]types.Product, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Product, error)
	// Create fails with types.ErrDuplicateSKU on the unique constraint.
	Create(ctx context.Context, params types.CreateProductParams, createdBy uuid.UUID) (*types.Product, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateProductParams, updatedBy uuid.UUID) (*types.Product, error)
	// SoftDelete flips the product to disabled; the record stays resolvable.
	SoftDelete(ctx context.Context, id uuid.UUID, updatedBy uuid.UUID) error
	// HardDelete removes the row permanently (admin only).
	HardDelete(ctx context.Context, id uuid.UUID) error
}

type PostgresProductRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresProductRepo(pgpool PGXPool, logger *slog.Logger) *PostgresProductRepo {
	return &PostgresProductRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const productColumns = "id, name, description, price, category, stock, sku, image_url, tags, status, created_by, updated_by, created_at, updated_at"

// sortColumns whitelists user-supplied sort fields; anything else falls
// back to created_at.
var sortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"category":   "category",
	"created_at": "created_at",
}

func scanProduct(row pgx.Row) (*types.Product, error) {
	var p types.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock,
		&p.SKU, &p.ImageURL, &p.Tags, &p.Status, &p.CreatedBy, &p.UpdatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// buildListQuery assembles the WHERE clause once so the page query and the
// count query cannot drift apart.
func buildListQuery(filter types.ProductFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.ActiveOnly != nil && *filter.ActiveOnly {
		add("status = $%d", types.StatusActive)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.MinPrice != nil {
		add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", *filter.MaxPrice)
	}
	if filter.InStock {
		conditions = append(conditions, "stock > 0")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func (r *PostgresProductRepo) List(ctx context.Context, filter types.ProductFilter) ([]types.Product, int64, error) {
	start := time.Now()
	defer func() {
		metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	where, args := buildListQuery(filter)

	var total int64
	err := r.pgpool.QueryRow(ctx, "SELECT count(*) FROM products"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: count failed: %w", err)
	}

	sortCol, ok := sortColumns[filter.SortBy]
	if !ok {
		sortCol = "created_at"
		filter.SortDesc = true
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	offset := (filter.Page - 1) * filter.Limit
	args = append(args, filter.Limit, offset)
	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		productColumns, where, sortCol, direction, len(args)-1, len(args))

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: query failed: %w", err)
	}
	defer rows.Close()

	var products []types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list products: scan failed: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: rows failed: %w", err)
	}

	return products, total, nil
}

func (r *PostgresProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	product, err := scanProduct(r.pgpool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get product: query failed: %w", err)
	}
	return product, nil
}

func (r *PostgresProductRepo) Create(ctx context.Context, params types.CreateProductParams, createdBy uuid.UUID) (*types.Product, error) {
	product, err := scanProduct(r.pgpool.QueryRow(ctx,
		`INSERT INTO products (name, description, price, category, stock, sku, image_url, tags, status, created_by)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING `+productColumns,
		params.Name, params.Description, params.Price, params.Category, params.Stock,
		strings.ToUpper(params.SKU), params.ImageURL, params.Tags, types.StatusActive, createdBy))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, types.ErrDuplicateSKU
		}
		return nil, fmt.Errorf("create product: insert failed: %w", err)
	}
	return product, nil
}

func (r *PostgresProductRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateProductParams, updatedBy uuid.UUID) (*types.Product, error) {
	var sets []string
	var args []any

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		set("name", *params.Name)
	}
	if params.Description != nil {
		set("description", *params.Description)
	}
	if params.Price != nil {
		set("price", *params.Price)
	}
	if params.Category != nil {
		set("category", *params.Category)
	}
	if params.Stock != nil {
		set("stock", *params.Stock)
	}
	if params.SKU != nil {
		set("sku", strings.ToUpper(*params.SKU))
	}
	if params.ImageURL != nil {
		set("image_url", *params.ImageURL)
	}
	if params.Tags != nil {
		set("tags", params.Tags)
	}
	if params.IsActive != nil {
		status := types.StatusDisabled
		if *params.IsActive {
			status = types.StatusActive
		}
		set("status", status)
	}

	set("updated_by", updatedBy)
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), productColumns)

	product, err := scanProduct(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, types.ErrDuplicateSKU
		}
		return nil, fmt.Errorf("update product: update failed: %w", err)
	}
	return product, nil
}

func (r *PostgresProductRepo) SoftDelete(ctx context.Context, id uuid.UUID, updatedBy uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE products SET status = $1, updated_by = $2, updated_at = now() WHERE id = $3",
		types.StatusDisabled, updatedBy, id)
	if err != nil {
		return fmt.Errorf("delete product: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresProductRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("permanently delete product: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
