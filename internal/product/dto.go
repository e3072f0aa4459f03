package product

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the payload for registering a product.
type CreateRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=255"`
	SKU          string     `json:"sku" validate:"required,min=1,max=64"`
	Unit         string     `json:"unit" validate:"required,min=1,max=32"`
	BrandID      *uuid.UUID `json:"brandId" validate:"omitempty"`
	CategoryID   *uuid.UUID `json:"categoryId" validate:"omitempty"`
	SellingPrice float64    `json:"sellingPrice" validate:"gte=0"`
	CostPrice    float64    `json:"costPrice" validate:"gte=0"`
	Sellable     bool       `json:"sellable"`
	Purchasable  bool       `json:"purchasable"`
	Returnable   bool       `json:"returnable"`
}

// UpdateRequest carries mutable catalog fields. Inventory is not
// updatable here; stock changes go through purchases, issues and
// adjustments.
type UpdateRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=255"`
	Unit         string     `json:"unit" validate:"required,min=1,max=32"`
	BrandID      *uuid.UUID `json:"brandId" validate:"omitempty"`
	CategoryID   *uuid.UUID `json:"categoryId" validate:"omitempty"`
	SellingPrice float64    `json:"sellingPrice" validate:"gte=0"`
	Sellable     bool       `json:"sellable"`
	Purchasable  bool       `json:"purchasable"`
	Returnable   bool       `json:"returnable"`
}

// AdjustmentRequest posts a manual stock correction at one location.
type AdjustmentRequest struct {
	LocationID uuid.UUID `json:"locationId" validate:"required"`
	Delta      int64     `json:"delta" validate:"required"`
	Note       string    `json:"note" validate:"max=500"`
}

// Filter narrows product listings.
type Filter struct {
	Search     string
	CategoryID uuid.UUID
	BrandID    uuid.UUID
	From       time.Time
	To         time.Time
	MinQty     *int64
	MaxQty     *int64
	Deleted    bool
}
