package issue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/product"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists issue orders in PostgreSQL. Lines are stored as a
// jsonb array on the order row; they are only ever read and written as
// one document.
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

const orderColumns = `id, client_name, customer_id, lines, total_amount, issue_date, is_deleted,
	created_by, created_at, updated_at`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM issue_orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *Repository) List(ctx context.Context, filter Filter, page shared.Pagination) ([]Order, int64, error) {
	var (
		where = []string{"is_deleted = FALSE"}
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.CustomerID != uuid.Nil {
		add("customer_id = $%d", filter.CustomerID)
	}
	if filter.Search != "" {
		add("client_name ILIKE $%d", "%"+filter.Search+"%")
	}
	if !filter.From.IsZero() {
		add("issue_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("issue_date <= $%d", filter.To)
	}

	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issue_orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(`SELECT `+orderColumns+` FROM issue_orders WHERE `+cond+`
		ORDER BY issue_date DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

func (r *txRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM issue_orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

func (r *txRepo) Insert(ctx context.Context, o Order) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `
		INSERT INTO issue_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.ClientName, o.CustomerID, lines, o.TotalAmount, o.IssueDate, o.IsDeleted,
		o.CreatedBy, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (r *txRepo) Update(ctx context.Context, o Order) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, `
		UPDATE issue_orders SET
			client_name = $2, customer_id = $3, lines = $4, total_amount = $5,
			issue_date = $6, is_deleted = $7, updated_at = $8
		WHERE id = $1`,
		o.ID, o.ClientName, o.CustomerID, lines, o.TotalAmount,
		o.IssueDate, o.IsDeleted, o.UpdatedAt,
	)
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
	tag, err := r.tx.Exec(ctx, `UPDATE products SET inventory = $2 WHERE id = $1`, p.ID, inv)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o     Order
		lines []byte
	)
	err := row.Scan(
		&o.ID, &o.ClientName, &o.CustomerID, &lines, &o.TotalAmount, &o.IssueDate, &o.IsDeleted,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &o.Lines); err != nil {
			return Order{}, fmt.Errorf("decode lines: %w", err)
		}
	}
	return o, nil
}
