package product

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/NgKhai/product-manager/internal/types"
)

func categoryValues() []interface{} {
	values := make([]interface{}, len(types.ProductCategories))
	for i, c := range types.ProductCategories {
		values[i] = c
	}
	return values
}

// CreateProductRequest is the JSON body for product creation.
type CreateProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Stock       int      `json:"stock"`
	SKU         string   `json:"sku"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
}

func (r CreateProductRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
		validation.Field(&r.Price, validation.Min(0.0)),
		validation.Field(&r.Category, validation.Required, validation.In(categoryValues()...)),
		validation.Field(&r.Stock, validation.Min(0)),
		validation.Field(&r.SKU, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.ImageURL, is.URL),
	)
}

// UpdateProductRequest is the JSON body for partial product updates.
type UpdateProductRequest struct {
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

func (r UpdateProductRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(2, 100)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
		validation.Field(&r.Price, validation.Min(0.0)),
		validation.Field(&r.Category, validation.In(categoryValues()...)),
		validation.Field(&r.Stock, validation.Min(0)),
		validation.Field(&r.SKU, validation.Length(1, 64)),
		validation.Field(&r.ImageURL, is.URL),
	)
}

func (r UpdateProductRequest) toParams() types.UpdateProductParams {
	return types.UpdateProductParams{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		Stock:       r.Stock,
		SKU:         r.SKU,
		ImageURL:    r.ImageURL,
		Tags:        r.Tags,
		IsActive:    r.IsActive,
	}
}

// ProductListResponse is the success payload for listings.
type ProductListResponse struct {
	Products   []types.Product  `json:"products"`
	Pagination types.Pagination `json:"pagination"`
}
