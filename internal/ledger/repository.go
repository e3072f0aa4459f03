package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the append-only stock_movements log. Writes happen
// inside the purchase/issue/product transactions that cause them; this
// repository serves the audit read path.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns movements matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Movement, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ProductID != uuid.Nil {
		add("product_id = $%d", filter.ProductID)
	}
	if filter.ChangeType != "" {
		add("change_type = $%d", string(filter.ChangeType))
	}
	if filter.ReferenceID != uuid.Nil {
		add("reference_id = $%d", filter.ReferenceID)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}
	query := `SELECT id, product_id, change_type, quantity_change, reference_id, user_id, note, created_at FROM stock_movements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ChangeType, &m.QuantityChange, &m.ReferenceID, &m.UserID, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SumByProduct returns the signed movement total for every product that
// has at least one ledger entry.
func (r *Repository) SumByProduct(ctx context.Context) ([]ProductSum, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, COALESCE(SUM(quantity_change), 0) FROM stock_movements GROUP BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductSum
	for rows.Next() {
		var sum ProductSum
		if err := rows.Scan(&sum.ProductID, &sum.Total); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
