package product

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Inventory maps a location id to the on-hand quantity held there. Each
// location appears at most once; the sum over all entries is the
// product's total on-hand stock. The stock mutation engine in this
// package is the sole writer.
type Inventory map[uuid.UUID]int64

// Total returns the aggregate on-hand quantity across all locations.
func (inv Inventory) Total() int64 {
	var total int64
	for _, qty := range inv {
		total += qty
	}
	return total
}

// Locations returns location ids ordered by descending quantity, ties
// broken by id, so greedy deduction is deterministic.
func (inv Inventory) Locations() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(inv))
	for id := range inv {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if inv[ids[i]] != inv[ids[j]] {
			return inv[ids[i]] > inv[ids[j]]
		}
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// Clone returns a deep copy, used by tests and by update flows that must
// compare before/after state.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for id, qty := range inv {
		out[id] = qty
	}
	return out
}

// Product is the single mutable aggregate for stock. Purchase and issue
// documents drive its mutations but never own inventory state.
type Product struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	SKU          string     `json:"sku"`
	Unit         string     `json:"unit"`
	BrandID      *uuid.UUID `json:"brand_id,omitempty"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	SellingPrice float64    `json:"selling_price"`
	CostPrice    float64    `json:"cost_price"`
	Sellable     bool       `json:"sellable"`
	Purchasable  bool       `json:"purchasable"`
	Returnable   bool       `json:"returnable"`
	Inventory    Inventory  `json:"inventory"`
	IsDeleted    bool       `json:"is_deleted"`
	CreatedBy    uuid.UUID  `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TotalOnHand returns the product's aggregate stock.
func (p Product) TotalOnHand() int64 {
	return p.Inventory.Total()
}

var (
	// ErrInsufficientStock indicates a deduction exceeding available stock,
	// or a sale against an archived product.
	ErrInsufficientStock = errors.New("product: insufficient stock")
	// ErrNegativeStock indicates an adjustment or reversal that would drive
	// a location below zero. It also guards against double reversals.
	ErrNegativeStock = errors.New("product: stock cannot go negative")
	// ErrNoInventoryLocation indicates a revert against a product with no
	// inventory locations at all. Data-integrity error, not user input.
	ErrNoInventoryLocation = errors.New("product: no inventory locations to restore to")
	// ErrNoInventoryEntry indicates a negative adjustment against a location
	// the product has never stocked.
	ErrNoInventoryEntry = errors.New("product: no inventory entry at location")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("product: quantity must be positive")
)
