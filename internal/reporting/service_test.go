package reporting

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	profitCalls int64
	profit      ProfitSummary
	valuation   []ValuationRow
}

func (s *stubRepo) ProfitSummary(_ context.Context, from, to time.Time) (ProfitSummary, error) {
	atomic.AddInt64(&s.profitCalls, 1)
	out := s.profit
	out.From = from
	out.To = to
	return out, nil
}

func (s *stubRepo) StockValuation(_ context.Context) ([]ValuationRow, error) {
	return s.valuation, nil
}

func (s *stubRepo) DashboardSummary(_ context.Context) (DashboardSummary, error) {
	return DashboardSummary{Products: 3}, nil
}

func newTestService(t *testing.T, repo *stubRepo) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestProfitIsCached(t *testing.T) {
	repo := &stubRepo{profit: ProfitSummary{Orders: 2, Revenue: 100, Cost: 60, Profit: 40}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.Profit(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.InDelta(t, 40, first.Profit, 0.0001)

	second, err := svc.Profit(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, atomic.LoadInt64(&repo.profitCalls))
}

func TestInvalidateBumpsVersion(t *testing.T) {
	repo := &stubRepo{profit: ProfitSummary{Orders: 1, Revenue: 10}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Profit(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx))

	_, err = svc.Profit(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt64(&repo.profitCalls))
}

func TestValuation(t *testing.T) {
	repo := &stubRepo{valuation: []ValuationRow{{ProductID: "p1", Name: "Widget", OnHand: 4, CostPrice: 2.5, Value: 10}}}
	svc := newTestService(t, repo)

	rows, err := svc.Valuation(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.InDelta(t, 10, rows[0].Value, 0.0001)
}

func TestNilCachePassesThrough(t *testing.T) {
	repo := &stubRepo{profit: ProfitSummary{Revenue: 5}}
	svc := NewService(repo, nil)

	out, err := svc.Profit(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.InDelta(t, 5, out.Revenue, 0.0001)
}
