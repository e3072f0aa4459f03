package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository runs the aggregate queries against PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) ProfitSummary(ctx context.Context, from, to time.Time) (ProfitSummary, error) {
	summary := ProfitSummary{From: from, To: to}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT o.id),
			COALESCE(SUM((l->>'quantity')::bigint * (l->>'unit_price')::numeric), 0),
			COALESCE(SUM((l->>'quantity')::bigint * (l->>'cost_price')::numeric), 0)
		FROM issue_orders o, jsonb_array_elements(o.lines) l
		WHERE o.is_deleted = FALSE
			AND ($1::timestamptz IS NULL OR o.issue_date >= $1)
			AND ($2::timestamptz IS NULL OR o.issue_date <= $2)`,
		nullableTime(from), nullableTime(to),
	).Scan(&summary.Orders, &summary.Revenue, &summary.Cost)
	if err != nil {
		return ProfitSummary{}, err
	}
	summary.Profit = summary.Revenue - summary.Cost
	return summary, nil
}

func (r *PgRepository) StockValuation(ctx context.Context) ([]ValuationRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id::text, p.name,
			COALESCE((SELECT SUM(value::bigint) FROM jsonb_each_text(p.inventory)), 0) AS on_hand,
			p.cost_price
		FROM products p
		WHERE p.is_deleted = FALSE
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ValuationRow
	for rows.Next() {
		var row ValuationRow
		if err := rows.Scan(&row.ProductID, &row.Name, &row.OnHand, &row.CostPrice); err != nil {
			return nil, err
		}
		row.Value = float64(row.OnHand) * row.CostPrice
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PgRepository) DashboardSummary(ctx context.Context) (DashboardSummary, error) {
	var summary DashboardSummary
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products WHERE is_deleted = FALSE),
			(SELECT COUNT(*) FROM purchases WHERE status = 'Pending'),
			(SELECT COUNT(*) FROM stock_movements WHERE created_at >= date_trunc('day', now())),
			(SELECT COUNT(*) FROM issue_orders WHERE is_deleted = FALSE AND created_at >= date_trunc('day', now()))`,
	).Scan(&summary.Products, &summary.PendingPurchases, &summary.MovementsToday, &summary.OrdersToday)
	return summary, err
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
