package product

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
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const uniqueViolation = "23505"

// Repository persists products in PostgreSQL. Inventory is stored as a
// jsonb map of location id to quantity.
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

const productColumns = `id, name, sku, unit, brand_id, category_id, selling_price, cost_price,
	sellable, purchasable, returnable, inventory, is_deleted, created_by, created_at`

func (r *Repository) Create(ctx context.Context, p Product) error {
	inv, err := json.Marshal(p.Inventory)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.Name, p.SKU, p.Unit, p.BrandID, p.CategoryID, p.SellingPrice, p.CostPrice,
		p.Sellable, p.Purchasable, p.Returnable, inv, p.IsDeleted, p.CreatedBy, p.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: product %q", shared.ErrDuplicateName, p.Name)
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *Repository) List(ctx context.Context, filter Filter, page shared.Pagination) ([]Product, int64, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	add("is_deleted = $%d", filter.Deleted)
	if filter.Search != "" {
		add("(name ILIKE $%d OR sku ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if filter.CategoryID != uuid.Nil {
		add("category_id = $%d", filter.CategoryID)
	}
	if filter.BrandID != uuid.Nil {
		add("brand_id = $%d", filter.BrandID)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}
	if filter.MinQty != nil {
		add("(SELECT COALESCE(SUM(value::bigint), 0) FROM jsonb_each_text(inventory)) >= $%d", *filter.MinQty)
	}
	if filter.MaxQty != nil {
		add("(SELECT COALESCE(SUM(value::bigint), 0) FROM jsonb_each_text(inventory)) <= $%d", *filter.MaxQty)
	}

	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(`SELECT `+productColumns+` FROM products WHERE `+cond+`
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, p Product) error {
	return saveProduct(ctx, r.pool, p)
}

func (r *txRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	return scanProduct(row)
}

func (r *txRepo) Save(ctx context.Context, p Product) error {
	return saveProduct(ctx, r.tx, p)
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

func scanProduct(row rowScanner) (Product, error) {
	var (
		p   Product
		inv []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.SKU, &p.Unit, &p.BrandID, &p.CategoryID, &p.SellingPrice, &p.CostPrice,
		&p.Sellable, &p.Purchasable, &p.Returnable, &inv, &p.IsDeleted, &p.CreatedBy, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	p.Inventory = Inventory{}
	if len(inv) > 0 {
		if err := json.Unmarshal(inv, &p.Inventory); err != nil {
			return Product{}, fmt.Errorf("decode inventory: %w", err)
		}
	}
	return p, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveProduct(ctx context.Context, db execer, p Product) error {
	inv, err := json.Marshal(p.Inventory)
	if err != nil {
		return err
	}
	tag, err := db.Exec(ctx, `
		UPDATE products SET
			name = $2, unit = $3, brand_id = $4, category_id = $5,
			selling_price = $6, cost_price = $7, sellable = $8, purchasable = $9,
			returnable = $10, inventory = $11, is_deleted = $12
		WHERE id = $1`,
		p.ID, p.Name, p.Unit, p.BrandID, p.CategoryID,
		p.SellingPrice, p.CostPrice, p.Sellable, p.Purchasable,
		p.Returnable, inv, p.IsDeleted,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: product %q", shared.ErrDuplicateName, p.Name)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
