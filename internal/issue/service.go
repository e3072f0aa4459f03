package issue

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/product"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort defines persistence operations the service depends on.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	List(ctx context.Context, filter Filter, page shared.Pagination) ([]Order, int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside one order
// transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (Order, error)
	Insert(ctx context.Context, o Order) error
	Update(ctx context.Context, o Order) error
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (product.Product, error)
	SaveProduct(ctx context.Context, p product.Product) error
	InsertMovement(ctx context.Context, m ledger.Movement) error
}

// ReferencePort checks foreign ids before they are stored.
type ReferencePort interface {
	CustomerExists(ctx context.Context, id uuid.UUID) error
}

// Service owns issue order transactions. A sale deducts stock the moment
// it is created; edits revert the stored deduction before applying the
// new one, and soft deletion restores the stock.
type Service struct {
	repo     RepositoryPort
	refs     ReferencePort
	validate *validator.Validate
	audit    *shared.AuditLogger
	reports  ReportInvalidator
}

// ReportInvalidator drops cached reports after a stock-affecting write.
// A nil invalidator is ignored.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
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

// Get returns one order by id. Soft-deleted orders read as not found.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.IsDeleted {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

// List returns live orders matching the filter plus the total row count.
func (s *Service) List(ctx context.Context, filter Filter, page shared.Pagination) ([]Order, int64, error) {
	return s.repo.List(ctx, filter, page)
}

// Create issues a sale: every line is deducted and cost-snapshotted in
// one transaction; any failing line aborts the whole order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return Order{}, err
	}
	if req.CustomerID != nil {
		if err := s.refs.CustomerExists(ctx, *req.CustomerID); err != nil {
			return Order{}, err
		}
	}

	actor := shared.ActorFromContext(ctx)
	now := time.Now().UTC()
	o := Order{
		ID:         uuid.New(),
		ClientName: req.ClientName,
		CustomerID: req.CustomerID,
		IssueDate:  req.IssueDate,
		CreatedBy:  actor.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if o.IssueDate.IsZero() {
		o.IssueDate = now
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := s.deductLines(ctx, tx, o.ID, req.Lines, actor.UserID)
		if err != nil {
			return err
		}
		o.Lines = lines
		o.TotalAmount = o.Revenue()
		return tx.Insert(ctx, o)
	})
	if err != nil {
		return Order{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "issue.create", Entity: "issue_order", EntityID: o.ID.String(), Meta: map[string]any{"client": o.ClientName, "lines": len(o.Lines)}})
	s.invalidateReports(ctx)
	return o, nil
}

// Update reverts every stored line, then deducts the new lines with
// refreshed cost snapshots. Reversal and reapplication share one
// transaction, so a failing new line leaves the original deduction in
// place.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return Order{}, err
	}
	if req.CustomerID != nil {
		if err := s.refs.CustomerExists(ctx, *req.CustomerID); err != nil {
			return Order{}, err
		}
	}

	actor := shared.ActorFromContext(ctx)

	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.IsDeleted {
			return shared.ErrAlreadyDeleted
		}

		if err := s.revertLines(ctx, tx, o, actor.UserID); err != nil {
			return err
		}
		lines, err := s.deductLines(ctx, tx, o.ID, req.Lines, actor.UserID)
		if err != nil {
			return err
		}

		o.ClientName = req.ClientName
		o.CustomerID = req.CustomerID
		if !req.IssueDate.IsZero() {
			o.IssueDate = req.IssueDate
		}
		o.Lines = lines
		o.TotalAmount = o.Revenue()
		o.UpdatedAt = time.Now().UTC()

		updated = o
		return tx.Update(ctx, o)
	})
	if err != nil {
		return Order{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "issue.update", Entity: "issue_order", EntityID: id.String()})
	s.invalidateReports(ctx)
	return updated, nil
}

// SoftDelete restores the order's stock and marks it deleted. A second
// delete is rejected so stock is never restored twice.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	actor := shared.ActorFromContext(ctx)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.IsDeleted {
			return shared.ErrAlreadyDeleted
		}

		if err := s.revertLines(ctx, tx, o, actor.UserID); err != nil {
			return err
		}
		o.IsDeleted = true
		o.UpdatedAt = time.Now().UTC()
		return tx.Update(ctx, o)
	})
	if err != nil {
		return err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "issue.delete", Entity: "issue_order", EntityID: id.String()})
	s.invalidateReports(ctx)
	return nil
}

// deductLines drains stock for each requested line and freezes the
// product's current cost basis into the line snapshot.
func (s *Service) deductLines(ctx context.Context, tx TxRepository, orderID uuid.UUID, reqs []LineRequest, userID uuid.UUID) ([]Line, error) {
	lines := make([]Line, 0, len(reqs))
	for _, lr := range reqs {
		prod, err := tx.GetProductForUpdate(ctx, lr.ProductID)
		if err != nil {
			return nil, err
		}
		if err := product.DeductForSale(&prod, lr.Quantity); err != nil {
			return nil, fmt.Errorf("product %s: %w", prod.Name, err)
		}
		if err := tx.SaveProduct(ctx, prod); err != nil {
			return nil, err
		}

		ref := orderID
		err = tx.InsertMovement(ctx, ledger.Movement{
			ID:             uuid.New(),
			ProductID:      prod.ID,
			ChangeType:     ledger.ChangeSale,
			QuantityChange: -lr.Quantity,
			ReferenceID:    &ref,
			UserID:         userID,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}

		lines = append(lines, Line{
			ProductID: lr.ProductID,
			Quantity:  lr.Quantity,
			UnitPrice: lr.UnitPrice,
			CostPrice: prod.CostPrice,
		})
	}
	return lines, nil
}

// revertLines puts the stored quantities back using the stored lines,
// appending compensating ledger entries.
func (s *Service) revertLines(ctx context.Context, tx TxRepository, o Order, userID uuid.UUID) error {
	for _, l := range o.Lines {
		prod, err := tx.GetProductForUpdate(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if err := product.RevertForSale(&prod, l.Quantity); err != nil {
			return fmt.Errorf("product %s: %w", prod.Name, err)
		}
		if err := tx.SaveProduct(ctx, prod); err != nil {
			return err
		}

		ref := o.ID
		err = tx.InsertMovement(ctx, ledger.Movement{
			ID:             uuid.New(),
			ProductID:      prod.ID,
			ChangeType:     ledger.ChangeSale,
			QuantityChange: l.Quantity,
			ReferenceID:    &ref,
			UserID:         userID,
			Note:           "reversal",
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
