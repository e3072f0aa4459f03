package product

import (
	"fmt"

	"github.com/google/uuid"
)

// Stock mutation engine. Pure in-memory operations over a Product's
// inventory; callers run them inside the same atomic unit of work as the
// transaction document write and pair every successful mutation with a
// ledger entry.

// DeductForSale removes qty from the product, draining locations in
// descending-quantity order. Location entries are kept even when they
// reach zero so later reversals have somewhere to land.
func DeductForSale(p *Product, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if p.IsDeleted {
		return fmt.Errorf("%w: product %q is archived", ErrInsufficientStock, p.Name)
	}
	total := p.Inventory.Total()
	if total < qty {
		return fmt.Errorf("%w: %q has %d, requested %d", ErrInsufficientStock, p.Name, total, qty)
	}
	remaining := qty
	for _, locID := range p.Inventory.Locations() {
		if remaining <= 0 {
			break
		}
		take := p.Inventory[locID]
		if take > remaining {
			take = remaining
		}
		p.Inventory[locID] -= take
		remaining -= take
	}
	return nil
}

// RevertForSale restores qty to the single location currently holding the
// most stock. Original per-location provenance is not tracked on issue
// lines, so restock targets the dominant stockpile.
func RevertForSale(p *Product, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if len(p.Inventory) == 0 {
		return fmt.Errorf("%w: product %q", ErrNoInventoryLocation, p.Name)
	}
	locs := p.Inventory.Locations()
	p.Inventory[locs[0]] += qty
	return nil
}

// AdjustInventory applies a signed delta at one location. A positive
// delta may create the location entry; a negative delta requires one and
// must not drive it below zero.
func AdjustInventory(p *Product, locationID uuid.UUID, delta int64) error {
	if p.Inventory == nil {
		p.Inventory = make(Inventory)
	}
	current, ok := p.Inventory[locationID]
	if !ok {
		if delta < 0 {
			return fmt.Errorf("%w: product %q location %s", ErrNoInventoryEntry, p.Name, locationID)
		}
		p.Inventory[locationID] = delta
		return nil
	}
	if current+delta < 0 {
		return fmt.Errorf("%w: product %q location %s has %d, delta %d", ErrNegativeStock, p.Name, locationID, current, delta)
	}
	p.Inventory[locationID] = current + delta
	return nil
}

// ReceiveStock books a purchase receipt: recomputes the weighted-average
// cost, optionally overwrites the selling price, credits the location,
// then prunes entries that are no longer positive.
func ReceiveStock(p *Product, locationID uuid.UUID, qty int64, unitCost, sellingUnitPrice float64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	oldTotal := p.Inventory.Total()
	if oldTotal+qty == 0 {
		p.CostPrice = unitCost
	} else {
		p.CostPrice = (p.CostPrice*float64(oldTotal) + unitCost*float64(qty)) / float64(oldTotal+qty)
	}
	if sellingUnitPrice > 0 {
		p.SellingPrice = sellingUnitPrice
	}
	if err := AdjustInventory(p, locationID, qty); err != nil {
		return err
	}
	pruneEmpty(p)
	return nil
}

// TransferStock moves qty between two locations of the same product. The
// debit leg runs first; its failure prevents the credit leg entirely.
func TransferStock(p *Product, fromLocationID, toLocationID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if err := AdjustInventory(p, fromLocationID, -qty); err != nil {
		return err
	}
	return AdjustInventory(p, toLocationID, qty)
}

// pruneEmpty drops non-positive entries. Applied after purchase receipts
// only; sales keep zeroed entries in place.
func pruneEmpty(p *Product) {
	for locID, qty := range p.Inventory {
		if qty <= 0 {
			delete(p.Inventory, locID)
		}
	}
}
