package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/product"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const uniqueViolation = "23505"

// Repository persists purchase documents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const purchaseColumns = `id, po_number, type, status, product_id, vendor_id, department,
	from_location_id, to_location_id, quantity, unit_price, selling_unit_price, total_price,
	note, created_by, created_at, updated_at`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Purchase, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id)
	return scanPurchase(row)
}

func (r *Repository) List(ctx context.Context, filter Filter, page shared.Pagination) ([]Purchase, int64, error) {
	var (
		where = []string{"TRUE"}
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.ProductID != uuid.Nil {
		add("product_id = $%d", filter.ProductID)
	}
	if filter.VendorID != uuid.Nil {
		add("vendor_id = $%d", filter.VendorID)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}

	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(`SELECT `+purchaseColumns+` FROM purchases WHERE `+cond+`
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, p)
	}
	return purchases, total, rows.Err()
}

func (r *txRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (Purchase, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 FOR UPDATE`, id)
	return scanPurchase(row)
}

func (r *txRepo) Insert(ctx context.Context, p Purchase) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO purchases (`+purchaseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		p.ID, p.PONumber, p.Type, p.Status, p.ProductID, p.VendorID, p.Department,
		p.FromLocationID, p.ToLocationID, p.Quantity, p.UnitPrice, p.SellingUnitPrice, p.TotalPrice,
		p.Note, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	return mapPOConflict(err, p.PONumber)
}

func (r *txRepo) Update(ctx context.Context, p Purchase) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE purchases SET
			po_number = $2, type = $3, status = $4, product_id = $5, vendor_id = $6,
			department = $7, from_location_id = $8, to_location_id = $9, quantity = $10,
			unit_price = $11, selling_unit_price = $12, total_price = $13, note = $14,
			updated_at = $15
		WHERE id = $1`,
		p.ID, p.PONumber, p.Type, p.Status, p.ProductID, p.VendorID,
		p.Department, p.FromLocationID, p.ToLocationID, p.Quantity,
		p.UnitPrice, p.SellingUnitPrice, p.TotalPrice, p.Note,
		p.UpdatedAt,
	)
	if err != nil {
		return mapPOConflict(err, p.PONumber)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, id uuid.UUID) (product.Product, error) {
	row := r.tx.QueryRow(ctx, `
		SELECT id, name, sku, unit, brand_id, category_id, selling_price, cost_price,
			sellable, purchasable, returnable, inventory, is_deleted, created_by, created_at
		FROM products WHERE id = $1 FOR UPDATE`, id)

	var (
		p   product.Product
		inv []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.SKU, &p.Unit, &p.BrandID, &p.CategoryID, &p.SellingPrice, &p.CostPrice,
		&p.Sellable, &p.Purchasable, &p.Returnable, &inv, &p.IsDeleted, &p.CreatedBy, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return product.Product{}, fmt.Errorf("%w: product %s", shared.ErrReferenceNotFound, id)
	}
	if err != nil {
		return product.Product{}, err
	}
	p.Inventory = product.Inventory{}
	if len(inv) > 0 {
		if err := json.Unmarshal(inv, &p.Inventory); err != nil {
			return product.Product{}, fmt.Errorf("decode inventory: %w", err)
		}
	}
	return p, nil
}

func (r *txRepo) SaveProduct(ctx context.Context, p product.Product) error {
	inv, err := json.Marshal(p.Inventory)
	if err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, `
		UPDATE products SET inventory = $2, cost_price = $3, selling_price = $4 WHERE id = $1`,
		p.ID, inv, p.CostPrice, p.SellingPrice,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) InsertMovement(ctx context.Context, m ledger.Movement) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, change_type, quantity_change, reference_id, user_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ProductID, m.ChangeType, m.QuantityChange, m.ReferenceID, m.UserID, m.Note, m.CreatedAt,
	)
	return err
}

func mapPOConflict(err error, poNumber string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicatePONumber, poNumber)
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row rowScanner) (Purchase, error) {
	var p Purchase
	err := row.Scan(
		&p.ID, &p.PONumber, &p.Type, &p.Status, &p.ProductID, &p.VendorID, &p.Department,
		&p.FromLocationID, &p.ToLocationID, &p.Quantity, &p.UnitPrice, &p.SellingUnitPrice, &p.TotalPrice,
		&p.Note, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, shared.ErrNotFound
	}
	if err != nil {
		return Purchase{}, err
	}
	return p, nil
}
