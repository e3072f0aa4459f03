package purchase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/product"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort defines persistence operations the service depends on.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Purchase, error)
	List(ctx context.Context, filter Filter, page shared.Pagination) ([]Purchase, int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside one purchase
// transaction. Product reads take row locks so concurrent documents
// touching the same product serialize.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (Purchase, error)
	Insert(ctx context.Context, p Purchase) error
	Update(ctx context.Context, p Purchase) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (product.Product, error)
	SaveProduct(ctx context.Context, p product.Product) error
	InsertMovement(ctx context.Context, m ledger.Movement) error
}

// ReferencePort checks foreign ids before they are stored.
type ReferencePort interface {
	VendorExists(ctx context.Context, id uuid.UUID) error
	LocationExists(ctx context.Context, id uuid.UUID) error
}

// ReportInvalidator drops cached reports after a stock-affecting write.
// A nil invalidator is ignored.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service runs the purchase state machine. Create, update and delete all
// funnel through the same reverse-then-apply transition so the stock
// effect of a document is defined in exactly one place.
type Service struct {
	repo     RepositoryPort
	refs     ReferencePort
	validate *validator.Validate
	audit    *shared.AuditLogger
	reports  ReportInvalidator
}

// NewService constructs Service.
func NewService(repo RepositoryPort, refs ReferencePort, audit *shared.AuditLogger, reports ReportInvalidator) *Service {
	return &Service{
		repo:     repo,
		refs:     refs,
		validate: validator.New(),
		audit:    audit,
		reports:  reports,
	}
}

func (s *Service) invalidateReports(ctx context.Context) {
	if s.reports != nil {
		_ = s.reports.Invalidate(ctx)
	}
}

// Get returns one purchase by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchases matching the filter plus the total row count.
func (s *Service) List(ctx context.Context, filter Filter, page shared.Pagination) ([]Purchase, int64, error) {
	return s.repo.List(ctx, filter, page)
}

// Create opens a purchase document. A document created Completed applies
// its stock effect in the same transaction that stores it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Purchase, error) {
	if err := s.validate.Struct(req); err != nil {
		return Purchase{}, err
	}

	actor := shared.ActorFromContext(ctx)
	now := time.Now().UTC()
	p := Purchase{
		ID:               uuid.New(),
		PONumber:         req.PONumber,
		Type:             req.Type,
		Status:           req.Status,
		ProductID:        req.ProductID,
		VendorID:         req.VendorID,
		Department:       req.Department,
		FromLocationID:   req.FromLocationID,
		ToLocationID:     req.ToLocationID,
		Quantity:         req.Quantity,
		UnitPrice:        req.UnitPrice,
		SellingUnitPrice: req.SellingUnitPrice,
		TotalPrice:       req.TotalPrice,
		Note:             req.Note,
		CreatedBy:        actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.PONumber == "" {
		p.PONumber = generatePONumber()
	}
	if err := s.validatePurchase(ctx, p); err != nil {
		return Purchase{}, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkProduct(ctx, tx, p.ProductID); err != nil {
			return err
		}
		if err := tx.Insert(ctx, p); err != nil {
			return err
		}
		if p.Status == StatusCompleted {
			return s.applyEffect(ctx, tx, p, actor.UserID)
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "purchase.create", Entity: "purchase", EntityID: p.ID.String(), Meta: map[string]any{"po_number": p.PONumber, "status": p.Status}})
	s.invalidateReports(ctx)
	return p, nil
}

// Update transitions a purchase to new values. The stored effect is
// reversed first when it was Completed, then the new effect is applied
// when the new status is Completed. The two halves are independent: a
// type or product change mid-life reverses with the old values and
// applies with the new ones.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (Purchase, error) {
	if err := s.validate.Struct(req); err != nil {
		return Purchase{}, err
	}

	actor := shared.ActorFromContext(ctx)

	var updated Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		next := old
		next.Type = req.Type
		next.Status = req.Status
		next.ProductID = req.ProductID
		next.VendorID = req.VendorID
		next.Department = req.Department
		next.FromLocationID = req.FromLocationID
		next.ToLocationID = req.ToLocationID
		next.Quantity = req.Quantity
		next.UnitPrice = req.UnitPrice
		next.SellingUnitPrice = req.SellingUnitPrice
		next.TotalPrice = req.TotalPrice
		next.Note = req.Note
		next.UpdatedAt = time.Now().UTC()
		if req.PONumber != "" {
			next.PONumber = req.PONumber
		}
		if err := s.validatePurchase(ctx, next); err != nil {
			return err
		}
		if err := s.checkProduct(ctx, tx, next.ProductID); err != nil {
			return err
		}

		if old.Status == StatusCompleted {
			if err := s.reverseEffect(ctx, tx, old, actor.UserID); err != nil {
				return err
			}
		}
		if next.Status == StatusCompleted {
			if err := s.applyEffect(ctx, tx, next, actor.UserID); err != nil {
				return err
			}
		}

		updated = next
		return tx.Update(ctx, next)
	})
	if err != nil {
		return Purchase{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "purchase.update", Entity: "purchase", EntityID: id.String(), Meta: map[string]any{"status": updated.Status}})
	s.invalidateReports(ctx)
	return updated, nil
}

// Delete reverses a Completed purchase's stock effect and hard-deletes
// the document. Its ledger entries stay as history.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	actor := shared.ActorFromContext(ctx)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == StatusCompleted {
			if err := s.reverseEffect(ctx, tx, p, actor.UserID); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "purchase.delete", Entity: "purchase", EntityID: id.String()})
	s.invalidateReports(ctx)
	return nil
}

// checkProduct rejects documents referencing a missing or archived
// product. Archived products keep their stock on the books but accept no
// new documents.
func (s *Service) checkProduct(ctx context.Context, tx TxRepository, id uuid.UUID) error {
	prod, err := tx.GetProductForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if prod.IsDeleted {
		return fmt.Errorf("%w: product %s", shared.ErrReferenceNotFound, id)
	}
	return nil
}

// applyEffect receives or transfers stock for a Completed purchase and
// appends the matching ledger entries.
func (s *Service) applyEffect(ctx context.Context, tx TxRepository, p Purchase, userID uuid.UUID) error {
	prod, err := tx.GetProductForUpdate(ctx, p.ProductID)
	if err != nil {
		return err
	}

	if p.Type == TypeTransfer {
		if err := product.TransferStock(&prod, *p.FromLocationID, p.ToLocationID, p.Quantity); err != nil {
			return err
		}
		if err := tx.SaveProduct(ctx, prod); err != nil {
			return err
		}
		out := newMovement(p, userID, ledger.ChangeTransfer, -p.Quantity, fmt.Sprintf("transfer out of %s", *p.FromLocationID))
		in := newMovement(p, userID, ledger.ChangeTransfer, p.Quantity, fmt.Sprintf("transfer into %s", p.ToLocationID))
		if err := tx.InsertMovement(ctx, out); err != nil {
			return err
		}
		return tx.InsertMovement(ctx, in)
	}

	if err := product.ReceiveStock(&prod, p.ToLocationID, p.Quantity, p.UnitPrice, p.SellingUnitPrice); err != nil {
		return err
	}
	if err := tx.SaveProduct(ctx, prod); err != nil {
		return err
	}
	return tx.InsertMovement(ctx, newMovement(p, userID, ledger.ChangePurchase, p.Quantity, p.Note))
}

// reverseEffect undoes the stock effect of a previously Completed
// purchase, using the stored document's values. Reversals append
// compensating ledger entries so the movement sum keeps matching
// on-hand stock.
func (s *Service) reverseEffect(ctx context.Context, tx TxRepository, p Purchase, userID uuid.UUID) error {
	prod, err := tx.GetProductForUpdate(ctx, p.ProductID)
	if err != nil {
		return err
	}

	if p.Type == TypeTransfer {
		if err := product.TransferStock(&prod, p.ToLocationID, *p.FromLocationID, p.Quantity); err != nil {
			return err
		}
		if err := tx.SaveProduct(ctx, prod); err != nil {
			return err
		}
		out := newMovement(p, userID, ledger.ChangeTransfer, -p.Quantity, fmt.Sprintf("reversal: transfer out of %s", p.ToLocationID))
		in := newMovement(p, userID, ledger.ChangeTransfer, p.Quantity, fmt.Sprintf("reversal: transfer into %s", *p.FromLocationID))
		if err := tx.InsertMovement(ctx, out); err != nil {
			return err
		}
		return tx.InsertMovement(ctx, in)
	}

	if err := product.AdjustInventory(&prod, p.ToLocationID, -p.Quantity); err != nil {
		// A later receipt may have pruned the zeroed destination entry;
		// reversing below zero fails the same way either path reports it.
		if errors.Is(err, product.ErrNoInventoryEntry) {
			return fmt.Errorf("%w: no stock at %s to reverse", product.ErrNegativeStock, p.ToLocationID)
		}
		return err
	}
	if err := tx.SaveProduct(ctx, prod); err != nil {
		return err
	}
	return tx.InsertMovement(ctx, newMovement(p, userID, ledger.ChangePurchase, -p.Quantity, "reversal"))
}

func newMovement(p Purchase, userID uuid.UUID, change ledger.ChangeType, qty int64, note string) ledger.Movement {
	ref := p.ID
	return ledger.Movement{
		ID:             uuid.New(),
		ProductID:      p.ProductID,
		ChangeType:     change,
		QuantityChange: qty,
		ReferenceID:    &ref,
		UserID:         userID,
		Note:           note,
		CreatedAt:      time.Now().UTC(),
	}
}

// validatePurchase enforces the companion-field rules per type and the
// price identity for priced types.
func (s *Service) validatePurchase(ctx context.Context, p Purchase) error {
	if err := s.refs.LocationExists(ctx, p.ToLocationID); err != nil {
		return err
	}

	switch p.Type {
	case TypeVendor:
		if p.VendorID == nil {
			return ErrMissingVendor
		}
		if err := s.refs.VendorExists(ctx, *p.VendorID); err != nil {
			return err
		}
	case TypeInternal:
		if p.Department == "" {
			return ErrMissingDepartment
		}
	case TypeTransfer:
		if p.FromLocationID == nil {
			return ErrMissingFromLocation
		}
		if err := s.refs.LocationExists(ctx, *p.FromLocationID); err != nil {
			return err
		}
	}

	if p.Type == TypeTransfer {
		if p.TotalPrice != 0 {
			return fmt.Errorf("%w: transfers carry no price", ErrPriceMismatch)
		}
		return nil
	}
	if math.Abs(p.UnitPrice*float64(p.Quantity)-p.TotalPrice) > 1e-9 {
		return fmt.Errorf("%w: %.2f x %d != %.2f", ErrPriceMismatch, p.UnitPrice, p.Quantity, p.TotalPrice)
	}
	return nil
}

func generatePONumber() string {
	return fmt.Sprintf("PO-%d-%04d", time.Now().UnixMilli(), rand.IntN(10000))
}
