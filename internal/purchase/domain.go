package purchase

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type classifies what a purchase document represents.
type Type string

const (
	// TypeVendor is a procurement from an external vendor.
	TypeVendor Type = "Vendor"
	// TypeInternal is an allocation from an internal department.
	TypeInternal Type = "Internal"
	// TypeTransfer moves stock between two locations without a price.
	TypeTransfer Type = "Transfer"
)

// Status is the lifecycle state of a purchase. Stock and cost effects
// exist only while the status is Completed.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Purchase is a transaction document. It drives product stock mutations
// but owns no inventory state itself.
type Purchase struct {
	ID               uuid.UUID  `json:"id"`
	PONumber         string     `json:"po_number"`
	Type             Type       `json:"type"`
	Status           Status     `json:"status"`
	ProductID        uuid.UUID  `json:"product_id"`
	VendorID         *uuid.UUID `json:"vendor_id,omitempty"`
	Department       string     `json:"department,omitempty"`
	FromLocationID   *uuid.UUID `json:"from_location_id,omitempty"`
	ToLocationID     uuid.UUID  `json:"to_location_id"`
	Quantity         int64      `json:"quantity"`
	UnitPrice        float64    `json:"unit_price"`
	SellingUnitPrice float64    `json:"selling_unit_price"`
	TotalPrice       float64    `json:"total_price"`
	Note             string     `json:"note,omitempty"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

var (
	// ErrPriceMismatch indicates unit price times quantity does not
	// equal the declared total for a priced purchase type.
	ErrPriceMismatch = errors.New("unit price times quantity does not match total price")
	// ErrDuplicatePONumber indicates the PO number is already taken.
	ErrDuplicatePONumber = errors.New("po number already exists")
	// ErrMissingVendor indicates a Vendor purchase without a vendor id.
	ErrMissingVendor = errors.New("vendor purchase requires a vendor")
	// ErrMissingDepartment indicates an Internal purchase without a department.
	ErrMissingDepartment = errors.New("internal purchase requires a department")
	// ErrMissingFromLocation indicates a Transfer without a source location.
	ErrMissingFromLocation = errors.New("transfer purchase requires a source location")
)
