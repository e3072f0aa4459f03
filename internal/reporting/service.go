// Package reporting aggregates transaction data read-only. Profit is
// always derived from the cost snapshots frozen on issue order lines,
// never from a product's live cost price.
package reporting

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"
)

// ProfitSummary aggregates sales over a date range.
type ProfitSummary struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Orders  int64     `json:"orders"`
	Revenue float64   `json:"revenue"`
	Cost    float64   `json:"cost"`
	Profit  float64   `json:"profit"`
}

// ValuationRow is the cost value of one product's stock on hand.
type ValuationRow struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	OnHand    int64   `json:"on_hand"`
	CostPrice float64 `json:"cost_price"`
	Value     float64 `json:"value"`
}

// DashboardSummary is the landing-page counters block.
type DashboardSummary struct {
	Products         int64 `json:"products"`
	PendingPurchases int64 `json:"pending_purchases"`
	MovementsToday   int64 `json:"movements_today"`
	OrdersToday      int64 `json:"orders_today"`
}

// Repository exposes the aggregate queries we rely on.
type Repository interface {
	ProfitSummary(ctx context.Context, from, to time.Time) (ProfitSummary, error)
	StockValuation(ctx context.Context) ([]ValuationRow, error)
	DashboardSummary(ctx context.Context) (DashboardSummary, error)
}

// Service coordinates report execution with the cache layer. Concurrent
// requests for the same report share one underlying query.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Profit returns the profit summary for the date range.
func (s *Service) Profit(ctx context.Context, from, to time.Time) (ProfitSummary, error) {
	key, err := s.cache.BuildKey(ctx, "reporting", "profit", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return ProfitSummary{}, err
	}
	var out ProfitSummary
	err = s.fetch(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.ProfitSummary(ctx, from, to)
	})
	return out, err
}

// Valuation returns the current cost value of all stock on hand.
func (s *Service) Valuation(ctx context.Context) ([]ValuationRow, error) {
	key, err := s.cache.BuildKey(ctx, "reporting", "valuation")
	if err != nil {
		return nil, err
	}
	var out []ValuationRow
	err = s.fetch(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.StockValuation(ctx)
	})
	return out, err
}

// Dashboard returns the landing-page counters.
func (s *Service) Dashboard(ctx context.Context) (DashboardSummary, error) {
	key, err := s.cache.BuildKey(ctx, "reporting", "dashboard")
	if err != nil {
		return DashboardSummary{}, err
	}
	var out DashboardSummary
	err = s.fetch(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.DashboardSummary(ctx)
	})
	return out, err
}

// Invalidate drops every cached report. Transaction services call this
// after a commit that changes the underlying data.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	resultChan := s.group.DoChan(key, func() (any, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}
