package types

import (
	"time"

	"github.com/google/uuid"
)

// ProductCategories is the closed set of categories accepted on create
// and update.
var ProductCategories = []string{
	"Electronics", "Clothing", "Food", "Books", "Toys",
	"Sports", "Home", "Beauty", "Other",
}

// ValidCategory reports whether c is one of ProductCategories.
func ValidCategory(c string) bool {
	for _, v := range ProductCategories {
		if v == c {
			return true
		}
	}
	return false
}

type Product struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	Stock       int        `json:"stock"`
	SKU         string     `json:"sku"`
	ImageURL    string     `json:"image_url,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Status      Status     `json:"status"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	UpdatedBy   *uuid.UUID `json:"updated_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActive reports whether the product is visible to non-admin callers.
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// CreateProductParams carries the validated create payload.
type CreateProductParams struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Stock       int      `json:"stock"`
	SKU         string   `json:"sku"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
}

// UpdateProductParams carries a partial update. Pointer fields distinguish
// omitted from zero. IsActive is honored only for admin callers.
type UpdateProductParams struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	SKU         *string  `json:"sku,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// ProductFilter is the query surface for listings: pagination, category,
// price range, stock availability and free-text search over name and
// description.
type ProductFilter struct {
	Page       int
	Limit      int
	Category   string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    bool
	Search     string
	SortBy     string // column name, validated against a whitelist
	SortDesc   bool
	ShowAll    bool // admins may include disabled products
	ActiveOnly *bool
}

// Pagination describes one page of a listing response.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}
