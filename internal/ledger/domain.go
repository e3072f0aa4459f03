package ledger

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies the cause of an inventory delta.
type ChangeType string

const (
	// ChangePurchase records stock received through a purchase.
	ChangePurchase ChangeType = "purchase"
	// ChangeSale records stock issued to a customer.
	ChangeSale ChangeType = "sale"
	// ChangeAdjustment records a manual correction.
	ChangeAdjustment ChangeType = "adjustment"
	// ChangeTransfer records one leg of an inter-location transfer.
	ChangeTransfer ChangeType = "transfer"
)

// Movement is an immutable ledger entry. The signed sum of all movements
// for a product equals its current total on-hand quantity; entries are
// never updated or deleted after creation.
type Movement struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	ChangeType     ChangeType `json:"change_type"`
	QuantityChange int64      `json:"quantity_change"`
	ReferenceID    *uuid.UUID `json:"reference_id,omitempty"`
	UserID         uuid.UUID  `json:"user_id"`
	Note           string     `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Filter narrows movement listings.
type Filter struct {
	ProductID   uuid.UUID
	ChangeType  ChangeType
	ReferenceID uuid.UUID
	From        time.Time
	To          time.Time
	Limit       int
}

// ProductSum pairs a product with its signed movement total, used by the
// reconciliation sweep to verify the ledger against serving-path stock.
type ProductSum struct {
	ProductID uuid.UUID
	Total     int64
}
