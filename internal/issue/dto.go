package issue

import (
	"time"

	"github.com/google/uuid"
)

// LineRequest is one requested product position. Cost snapshots are
// taken server-side and cannot be supplied by the caller.
type LineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int64     `json:"quantity" validate:"required,gte=1"`
	UnitPrice float64   `json:"unitPrice" validate:"gte=0"`
}

// CreateRequest is the payload for issuing a sale.
type CreateRequest struct {
	ClientName string        `json:"clientName" validate:"required,min=1,max=255"`
	CustomerID *uuid.UUID    `json:"customerId"`
	IssueDate  time.Time     `json:"issueDate"`
	Lines      []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateRequest replaces an order's lines. Stored deductions are
// reverted before the new lines are applied.
type UpdateRequest struct {
	ClientName string        `json:"clientName" validate:"required,min=1,max=255"`
	CustomerID *uuid.UUID    `json:"customerId"`
	IssueDate  time.Time     `json:"issueDate"`
	Lines      []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// Filter narrows order listings. Soft-deleted orders are always
// excluded.
type Filter struct {
	CustomerID uuid.UUID
	Search     string
	From       time.Time
	To         time.Time
}
