package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort defines persistence operations the service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, p Product) error
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	List(ctx context.Context, filter Filter, page shared.Pagination) ([]Product, int64, error)
	Update(ctx context.Context, p Product) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside a stock transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (Product, error)
	Save(ctx context.Context, p Product) error
	InsertMovement(ctx context.Context, m ledger.Movement) error
}

// ReferencePort checks catalog references before they are stored.
type ReferencePort interface {
	BrandExists(ctx context.Context, id uuid.UUID) error
	CategoryExists(ctx context.Context, id uuid.UUID) error
	LocationExists(ctx context.Context, id uuid.UUID) error
}

// ReportInvalidator drops cached reports after a write changes stock or
// the product set. A nil invalidator is ignored.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service owns the product catalog and manual stock adjustments.
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

// Create registers a new product with an empty inventory.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return Product{}, err
	}
	if err := s.checkRefs(ctx, req.BrandID, req.CategoryID); err != nil {
		return Product{}, err
	}

	actor := shared.ActorFromContext(ctx)
	p := Product{
		ID:           uuid.New(),
		Name:         req.Name,
		SKU:          req.SKU,
		Unit:         req.Unit,
		BrandID:      req.BrandID,
		CategoryID:   req.CategoryID,
		SellingPrice: req.SellingPrice,
		CostPrice:    req.CostPrice,
		Sellable:     req.Sellable,
		Purchasable:  req.Purchasable,
		Returnable:   req.Returnable,
		Inventory:    Inventory{},
		CreatedBy:    actor.UserID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Product{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "product.create", Entity: "product", EntityID: p.ID.String(), Meta: map[string]any{"name": p.Name, "sku": p.SKU}})
	s.invalidateReports(ctx)
	return p, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns products matching the filter plus the total row count.
func (s *Service) List(ctx context.Context, filter Filter, page shared.Pagination) ([]Product, int64, error) {
	return s.repo.List(ctx, filter, page)
}

// Update replaces the catalog fields of a product. Stock and cost price
// are untouched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return Product{}, err
	}
	if err := s.checkRefs(ctx, req.BrandID, req.CategoryID); err != nil {
		return Product{}, err
	}

	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return shared.ErrAlreadyDeleted
		}

		p.Name = req.Name
		p.Unit = req.Unit
		p.BrandID = req.BrandID
		p.CategoryID = req.CategoryID
		p.SellingPrice = req.SellingPrice
		p.Sellable = req.Sellable
		p.Purchasable = req.Purchasable
		p.Returnable = req.Returnable

		updated = p
		return tx.Save(ctx, p)
	})
	if err != nil {
		return Product{}, err
	}

	actor := shared.ActorFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "product.update", Entity: "product", EntityID: id.String()})
	return updated, nil
}

// SoftDelete archives a product. Stock stays on the books; deducting
// from an archived product is rejected by the mutation engine.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return shared.ErrAlreadyDeleted
		}
		p.IsDeleted = true
		return tx.Save(ctx, p)
	})
	if err != nil {
		return err
	}

	actor := shared.ActorFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "product.delete", Entity: "product", EntityID: id.String()})
	s.invalidateReports(ctx)
	return nil
}

// PostAdjustment applies a manual stock correction and records a
// movement for it atomically.
func (s *Service) PostAdjustment(ctx context.Context, productID uuid.UUID, req AdjustmentRequest) (Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return Product{}, err
	}
	if err := s.refs.LocationExists(ctx, req.LocationID); err != nil {
		return Product{}, err
	}

	actor := shared.ActorFromContext(ctx)

	var adjusted Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return shared.ErrAlreadyDeleted
		}

		if err := AdjustInventory(&p, req.LocationID, req.Delta); err != nil {
			return err
		}
		if err := tx.Save(ctx, p); err != nil {
			return err
		}

		movement := ledger.Movement{
			ID:             uuid.New(),
			ProductID:      p.ID,
			ChangeType:     ledger.ChangeAdjustment,
			QuantityChange: req.Delta,
			UserID:         actor.UserID,
			Note:           req.Note,
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.InsertMovement(ctx, movement); err != nil {
			return fmt.Errorf("record adjustment movement: %w", err)
		}

		adjusted = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID, Action: "product.adjust", Entity: "product", EntityID: productID.String(), Meta: map[string]any{"delta": req.Delta, "location_id": req.LocationID}})
	s.invalidateReports(ctx)
	return adjusted, nil
}

func (s *Service) checkRefs(ctx context.Context, brandID, categoryID *uuid.UUID) error {
	if brandID != nil {
		if err := s.refs.BrandExists(ctx, *brandID); err != nil {
			return err
		}
	}
	if categoryID != nil {
		if err := s.refs.CategoryExists(ctx, *categoryID); err != nil {
			return err
		}
	}
	return nil
}
