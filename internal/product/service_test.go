package product

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memRepo struct {
	mu        sync.Mutex
	products  map[uuid.UUID]Product
	names     map[string]uuid.UUID
	movements []ledger.Movement
}

func newMemRepo() *memRepo {
	return &memRepo{products: map[uuid.UUID]Product{}, names: map[string]uuid.UUID{}}
}

func (m *memRepo) Create(_ context.Context, p Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.names[p.Name]; taken {
		return shared.ErrDuplicateName
	}
	m.names[p.Name] = p.ID
	m.products[p.ID] = p
	return nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) List(_ context.Context, _ Filter, _ shared.Pagination) ([]Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) Update(_ context.Context, p Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return shared.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

// WithTx serialises callers the way row locks do and restores state when
// the callback fails.
func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[uuid.UUID]Product, len(m.products))
	for id, p := range m.products {
		p.Inventory = p.Inventory.Clone()
		snapshot[id] = p
	}
	moved := len(m.movements)

	if err := fn(ctx, (*memTx)(m)); err != nil {
		m.products = snapshot
		m.movements = m.movements[:moved]
		return err
	}
	return nil
}

type memTx memRepo

func (m *memTx) GetForUpdate(_ context.Context, id uuid.UUID) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	p.Inventory = p.Inventory.Clone()
	return p, nil
}

func (m *memTx) Save(_ context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return shared.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memTx) InsertMovement(_ context.Context, mv ledger.Movement) error {
	m.movements = append(m.movements, mv)
	return nil
}

type memRefs struct {
	missing map[uuid.UUID]bool
}

func (m *memRefs) check(id uuid.UUID) error {
	if m.missing[id] {
		return shared.ErrReferenceNotFound
	}
	return nil
}

func (m *memRefs) BrandExists(_ context.Context, id uuid.UUID) error    { return m.check(id) }
func (m *memRefs) CategoryExists(_ context.Context, id uuid.UUID) error { return m.check(id) }
func (m *memRefs) LocationExists(_ context.Context, id uuid.UUID) error { return m.check(id) }

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, &memRefs{missing: map[uuid.UUID]bool{}}, nil, nil), repo
}

func actorContext() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{UserID: uuid.New(), Role: "staff"})
}

func TestServiceCreate(t *testing.T) {
	svc, repo := newTestService()
	ctx := actorContext()

	p, err := svc.Create(ctx, CreateRequest{Name: "Hammer", SKU: "H-1", Unit: "pcs", SellingPrice: 12})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, p.ID)
	require.NotNil(t, p.Inventory)
	require.EqualValues(t, 0, p.TotalOnHand())

	_, err = svc.Create(ctx, CreateRequest{Name: "Hammer", SKU: "H-2", Unit: "pcs"})
	require.ErrorIs(t, err, shared.ErrDuplicateName)

	_, err = svc.Create(ctx, CreateRequest{SKU: "H-3", Unit: "pcs"})
	require.Error(t, err)
	require.Len(t, repo.products, 1)
}

func TestServiceCreateRejectsMissingReference(t *testing.T) {
	repo := newMemRepo()
	ghost := uuid.New()
	svc := NewService(repo, &memRefs{missing: map[uuid.UUID]bool{ghost: true}}, nil, nil)

	_, err := svc.Create(actorContext(), CreateRequest{Name: "Saw", SKU: "S-1", Unit: "pcs", BrandID: &ghost})
	require.ErrorIs(t, err, shared.ErrReferenceNotFound)
}

func TestServiceSoftDeleteTwice(t *testing.T) {
	svc, _ := newTestService()
	ctx := actorContext()

	p, err := svc.Create(ctx, CreateRequest{Name: "Drill", SKU: "D-1", Unit: "pcs"})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(ctx, p.ID))
	require.ErrorIs(t, svc.SoftDelete(ctx, p.ID), shared.ErrAlreadyDeleted)
}

func TestServicePostAdjustment(t *testing.T) {
	svc, repo := newTestService()
	ctx := actorContext()
	loc := uuid.New()

	p, err := svc.Create(ctx, CreateRequest{Name: "Bolt", SKU: "B-1", Unit: "pcs"})
	require.NoError(t, err)

	adjusted, err := svc.PostAdjustment(ctx, p.ID, AdjustmentRequest{LocationID: loc, Delta: 7, Note: "initial count"})
	require.NoError(t, err)
	require.EqualValues(t, 7, adjusted.Inventory[loc])

	require.Len(t, repo.movements, 1)
	mv := repo.movements[0]
	require.Equal(t, ledger.ChangeAdjustment, mv.ChangeType)
	require.EqualValues(t, 7, mv.QuantityChange)
	require.Equal(t, p.ID, mv.ProductID)
}

func TestServicePostAdjustmentRollsBackOnFailure(t *testing.T) {
	svc, repo := newTestService()
	ctx := actorContext()
	loc := uuid.New()

	p, err := svc.Create(ctx, CreateRequest{Name: "Nut", SKU: "N-1", Unit: "pcs"})
	require.NoError(t, err)

	_, err = svc.PostAdjustment(ctx, p.ID, AdjustmentRequest{LocationID: loc, Delta: 5})
	require.NoError(t, err)

	_, err = svc.PostAdjustment(ctx, p.ID, AdjustmentRequest{LocationID: loc, Delta: -9})
	require.ErrorIs(t, err, ErrNegativeStock)

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, stored.Inventory[loc])
	require.Len(t, repo.movements, 1)
}

func TestServiceUpdatePreservesStockAndCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := actorContext()
	loc := uuid.New()

	p, err := svc.Create(ctx, CreateRequest{Name: "Screw", SKU: "SC-1", Unit: "pcs", CostPrice: 3})
	require.NoError(t, err)
	_, err = svc.PostAdjustment(ctx, p.ID, AdjustmentRequest{LocationID: loc, Delta: 4})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, UpdateRequest{Name: "Screw M4", Unit: "box", SellingPrice: 6})
	require.NoError(t, err)
	require.Equal(t, "Screw M4", updated.Name)
	require.InDelta(t, 3, updated.CostPrice, 0.0001)
	require.EqualValues(t, 4, updated.Inventory[loc])
}

func TestServiceCategoryOptional(t *testing.T) {
	svc, repo := newTestService()
	ctx := actorContext()

	plain, err := svc.Create(ctx, CreateRequest{Name: "Clamp", SKU: "C-1", Unit: "pcs"})
	require.NoError(t, err)
	require.Nil(t, plain.CategoryID)
	require.Nil(t, plain.BrandID)

	catID := uuid.New()
	tagged, err := svc.Create(ctx, CreateRequest{Name: "Vice", SKU: "V-1", Unit: "pcs", CategoryID: &catID})
	require.NoError(t, err)
	require.NotNil(t, tagged.CategoryID)
	require.Equal(t, catID, *tagged.CategoryID)

	// Clearing the category on update leaves it unset again.
	updated, err := svc.Update(ctx, tagged.ID, UpdateRequest{Name: "Vice", Unit: "pcs"})
	require.NoError(t, err)
	require.Nil(t, updated.CategoryID)
	require.Nil(t, repo.products[tagged.ID].CategoryID)
}

func TestTotalOnHandOnStoredCopies(t *testing.T) {
	svc, repo := newTestService()
	ctx := actorContext()
	locA := uuid.New()
	locB := uuid.New()

	p, err := svc.Create(ctx, CreateRequest{Name: "Anchor", SKU: "A-1", Unit: "pcs"})
	require.NoError(t, err)
	_, err = svc.PostAdjustment(ctx, p.ID, AdjustmentRequest{LocationID: locA, Delta: 3})
	require.NoError(t, err)
	_, err = svc.PostAdjustment(ctx, p.ID, AdjustmentRequest{LocationID: locB, Delta: 4})
	require.NoError(t, err)

	require.EqualValues(t, 7, repo.products[p.ID].TotalOnHand())
	require.EqualValues(t, 0, Product{}.TotalOnHand())
}
