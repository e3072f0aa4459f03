package issue

import (
	"time"

	"github.com/google/uuid"
)

// Line is one product position on an issue order. CostPrice is a
// snapshot of the product's cost basis taken at deduction time and is
// never recomputed afterwards.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	CostPrice float64   `json:"cost_price"`
}

// Order is a customer sale. Creation deducts stock immediately; there is
// no separate completion state.
type Order struct {
	ID          uuid.UUID  `json:"id"`
	ClientName  string     `json:"client_name"`
	CustomerID  *uuid.UUID `json:"customer_id,omitempty"`
	Lines       []Line     `json:"lines"`
	TotalAmount float64    `json:"total_amount"`
	IssueDate   time.Time  `json:"issue_date"`
	IsDeleted   bool       `json:"is_deleted"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Revenue is the sum of quantity times unit price over all lines.
func (o Order) Revenue() float64 {
	var total float64
	for _, l := range o.Lines {
		total += float64(l.Quantity) * l.UnitPrice
	}
	return total
}

// Profit is revenue minus the cost of goods at the frozen snapshot
// prices.
func (o Order) Profit() float64 {
	var cost float64
	for _, l := range o.Lines {
		cost += float64(l.Quantity) * l.CostPrice
	}
	return o.Revenue() - cost
}
