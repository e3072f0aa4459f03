package purchase

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the payload for opening a purchase document.
type CreateRequest struct {
	Type             Type       `json:"type" validate:"required,oneof=Vendor Internal Transfer"`
	Status           Status     `json:"status" validate:"required,oneof=Pending Completed"`
	ProductID        uuid.UUID  `json:"productId" validate:"required"`
	VendorID         *uuid.UUID `json:"vendorId"`
	Department       string     `json:"department" validate:"max=255"`
	FromLocationID   *uuid.UUID `json:"fromLocationId"`
	ToLocationID     uuid.UUID  `json:"toLocationId" validate:"required"`
	Quantity         int64      `json:"quantity" validate:"required,gte=1"`
	UnitPrice        float64    `json:"unitPrice" validate:"gte=0"`
	SellingUnitPrice float64    `json:"sellingUnitPrice" validate:"gte=0"`
	TotalPrice       float64    `json:"totalPrice" validate:"gte=0"`
	PONumber         string     `json:"poNumber" validate:"max=64"`
	Note             string     `json:"note" validate:"max=500"`
}

// UpdateRequest replaces the mutable fields of a purchase. The state
// machine reverses the stored document before applying these values.
type UpdateRequest struct {
	Type             Type       `json:"type" validate:"required,oneof=Vendor Internal Transfer"`
	Status           Status     `json:"status" validate:"required,oneof=Pending Completed Cancelled"`
	ProductID        uuid.UUID  `json:"productId" validate:"required"`
	VendorID         *uuid.UUID `json:"vendorId"`
	Department       string     `json:"department" validate:"max=255"`
	FromLocationID   *uuid.UUID `json:"fromLocationId"`
	ToLocationID     uuid.UUID  `json:"toLocationId" validate:"required"`
	Quantity         int64      `json:"quantity" validate:"required,gte=1"`
	UnitPrice        float64    `json:"unitPrice" validate:"gte=0"`
	SellingUnitPrice float64    `json:"sellingUnitPrice" validate:"gte=0"`
	TotalPrice       float64    `json:"totalPrice" validate:"gte=0"`
	PONumber         string     `json:"poNumber" validate:"max=64"`
	Note             string     `json:"note" validate:"max=500"`
}

// Filter narrows purchase listings.
type Filter struct {
	Status    Status
	Type      Type
	ProductID uuid.UUID
	VendorID  uuid.UUID
	From      time.Time
	To        time.Time
}
