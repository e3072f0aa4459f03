package purchase

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/product"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memStore struct {
	mu        sync.Mutex
	purchases map[uuid.UUID]Purchase
	poNumbers map[string]uuid.UUID
	products  map[uuid.UUID]product.Product
	movements []ledger.Movement
}

func newMemStore() *memStore {
	return &memStore{
		purchases: map[uuid.UUID]Purchase{},
		poNumbers: map[string]uuid.UUID{},
		products:  map[uuid.UUID]product.Product{},
	}
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return Purchase{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memStore) List(_ context.Context, _ Filter, _ shared.Pagination) ([]Purchase, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Purchase
	for _, p := range m.purchases {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

// WithTx serialises callers and restores all state when the callback
// fails, mirroring the all-or-nothing database transaction.
func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	purchases := make(map[uuid.UUID]Purchase, len(m.purchases))
	for id, p := range m.purchases {
		purchases[id] = p
	}
	poNumbers := make(map[string]uuid.UUID, len(m.poNumbers))
	for po, id := range m.poNumbers {
		poNumbers[po] = id
	}
	products := make(map[uuid.UUID]product.Product, len(m.products))
	for id, p := range m.products {
		p.Inventory = p.Inventory.Clone()
		products[id] = p
	}
	moved := len(m.movements)

	if err := fn(ctx, (*memTx)(m)); err != nil {
		m.purchases = purchases
		m.poNumbers = poNumbers
		m.products = products
		m.movements = m.movements[:moved]
		return err
	}
	return nil
}

type memTx memStore

func (m *memTx) GetForUpdate(_ context.Context, id uuid.UUID) (Purchase, error) {
	p, ok := m.purchases[id]
	if !ok {
		return Purchase{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memTx) Insert(_ context.Context, p Purchase) error {
	if _, taken := m.poNumbers[p.PONumber]; taken {
		return ErrDuplicatePONumber
	}
	m.poNumbers[p.PONumber] = p.ID
	m.purchases[p.ID] = p
	return nil
}

func (m *memTx) Update(_ context.Context, p Purchase) error {
	old, ok := m.purchases[p.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if p.PONumber != old.PONumber {
		if _, taken := m.poNumbers[p.PONumber]; taken {
			return ErrDuplicatePONumber
		}
		delete(m.poNumbers, old.PONumber)
		m.poNumbers[p.PONumber] = p.ID
	}
	m.purchases[p.ID] = p
	return nil
}

func (m *memTx) Delete(_ context.Context, id uuid.UUID) error {
	p, ok := m.purchases[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.poNumbers, p.PONumber)
	delete(m.purchases, id)
	return nil
}

func (m *memTx) GetProductForUpdate(_ context.Context, id uuid.UUID) (product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return product.Product{}, shared.ErrReferenceNotFound
	}
	p.Inventory = p.Inventory.Clone()
	return p, nil
}

func (m *memTx) SaveProduct(_ context.Context, p product.Product) error {
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

type memRefs struct{}

func (memRefs) VendorExists(_ context.Context, _ uuid.UUID) error   { return nil }
func (memRefs) LocationExists(_ context.Context, _ uuid.UUID) error { return nil }

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, memRefs{}, nil, nil), store
}

func seedProduct(store *memStore, costPrice float64, entries map[uuid.UUID]int64) product.Product {
	inv := product.Inventory{}
	for id, qty := range entries {
		inv[id] = qty
	}
	p := product.Product{ID: uuid.New(), Name: "Widget", SKU: "W-1", CostPrice: costPrice, Inventory: inv}
	store.products[p.ID] = p
	return p
}

func actorContext() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{UserID: uuid.New(), Role: "staff"})
}

func vendorRequest(prod product.Product, loc uuid.UUID, qty int64, unitPrice float64, status Status) CreateRequest {
	vendorID := uuid.New()
	return CreateRequest{
		Type:         TypeVendor,
		Status:       status,
		ProductID:    prod.ID,
		VendorID:     &vendorID,
		ToLocationID: loc,
		Quantity:     qty,
		UnitPrice:    unitPrice,
		TotalPrice:   unitPrice * float64(qty),
	}
}

func TestCreatePendingHasNoStockEffect(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	prod := seedProduct(store, 10, nil)

	p, err := svc.Create(actorContext(), vendorRequest(prod, loc, 5, 20, StatusPending))
	require.NoError(t, err)
	require.NotEmpty(t, p.PONumber)

	require.EqualValues(t, 0, store.products[prod.ID].TotalOnHand())
	require.Empty(t, store.movements)
}

func TestCreateCompletedReceivesStock(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	prod := seedProduct(store, 10, nil)

	p, err := svc.Create(actorContext(), vendorRequest(prod, loc, 5, 20, StatusCompleted))
	require.NoError(t, err)

	stored := store.products[prod.ID]
	require.EqualValues(t, 5, stored.Inventory[loc])
	require.InDelta(t, 20, stored.CostPrice, 0.0001)

	require.Len(t, store.movements, 1)
	mv := store.movements[0]
	require.Equal(t, ledger.ChangePurchase, mv.ChangeType)
	require.EqualValues(t, 5, mv.QuantityChange)
	require.Equal(t, p.ID, *mv.ReferenceID)
}

func TestCreateRejectsPriceMismatch(t *testing.T) {
	svc, store := newTestService()
	prod := seedProduct(store, 0, nil)

	req := vendorRequest(prod, uuid.New(), 5, 20, StatusCompleted)
	req.TotalPrice = 99
	_, err := svc.Create(actorContext(), req)
	require.ErrorIs(t, err, ErrPriceMismatch)
	require.Empty(t, store.purchases)
}

func TestCreateCompanionFieldRules(t *testing.T) {
	svc, store := newTestService()
	prod := seedProduct(store, 0, nil)
	loc := uuid.New()

	vendorReq := vendorRequest(prod, loc, 1, 10, StatusPending)
	vendorReq.VendorID = nil
	_, err := svc.Create(actorContext(), vendorReq)
	require.ErrorIs(t, err, ErrMissingVendor)

	_, err = svc.Create(actorContext(), CreateRequest{
		Type: TypeInternal, Status: StatusPending, ProductID: prod.ID,
		ToLocationID: loc, Quantity: 1, UnitPrice: 10, TotalPrice: 10,
	})
	require.ErrorIs(t, err, ErrMissingDepartment)

	_, err = svc.Create(actorContext(), CreateRequest{
		Type: TypeTransfer, Status: StatusPending, ProductID: prod.ID,
		ToLocationID: loc, Quantity: 1,
	})
	require.ErrorIs(t, err, ErrMissingFromLocation)
}

func TestCreateRejectsPricedTransfer(t *testing.T) {
	svc, store := newTestService()
	prod := seedProduct(store, 0, nil)
	from := uuid.New()

	_, err := svc.Create(actorContext(), CreateRequest{
		Type: TypeTransfer, Status: StatusPending, ProductID: prod.ID,
		FromLocationID: &from, ToLocationID: uuid.New(), Quantity: 1, TotalPrice: 5,
	})
	require.ErrorIs(t, err, ErrPriceMismatch)
}

func TestCreateDuplicatePONumber(t *testing.T) {
	svc, store := newTestService()
	prod := seedProduct(store, 0, nil)

	req := vendorRequest(prod, uuid.New(), 1, 10, StatusPending)
	req.PONumber = "PO-FIXED"
	_, err := svc.Create(actorContext(), req)
	require.NoError(t, err)

	_, err = svc.Create(actorContext(), req)
	require.ErrorIs(t, err, ErrDuplicatePONumber)
}

func TestCompletedTransferMovesStockAtomically(t *testing.T) {
	svc, store := newTestService()
	locA := uuid.New()
	locB := uuid.New()
	prod := seedProduct(store, 0, map[uuid.UUID]int64{locA: 10})

	p, err := svc.Create(actorContext(), CreateRequest{
		Type: TypeTransfer, Status: StatusCompleted, ProductID: prod.ID,
		FromLocationID: &locA, ToLocationID: locB, Quantity: 10,
	})
	require.NoError(t, err)

	stored := store.products[prod.ID]
	require.EqualValues(t, 0, stored.Inventory[locA])
	require.EqualValues(t, 10, stored.Inventory[locB])

	require.Len(t, store.movements, 2)
	require.EqualValues(t, -10, store.movements[0].QuantityChange)
	require.EqualValues(t, 10, store.movements[1].QuantityChange)
	require.Equal(t, p.ID, *store.movements[0].ReferenceID)
	require.Equal(t, p.ID, *store.movements[1].ReferenceID)
}

func TestTransferFailureLeavesSourceUntouched(t *testing.T) {
	svc, store := newTestService()
	locA := uuid.New()
	locB := uuid.New()
	prod := seedProduct(store, 0, map[uuid.UUID]int64{locA: 4})

	_, err := svc.Create(actorContext(), CreateRequest{
		Type: TypeTransfer, Status: StatusCompleted, ProductID: prod.ID,
		FromLocationID: &locA, ToLocationID: locB, Quantity: 10,
	})
	require.ErrorIs(t, err, product.ErrNegativeStock)

	stored := store.products[prod.ID]
	require.EqualValues(t, 4, stored.Inventory[locA])
	_, exists := stored.Inventory[locB]
	require.False(t, exists)
	require.Empty(t, store.purchases)
	require.Empty(t, store.movements)
}

func TestUpdateIdenticalValuesKeepsTotals(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	prod := seedProduct(store, 10, nil)
	ctx := actorContext()

	req := vendorRequest(prod, loc, 5, 20, StatusCompleted)
	p, err := svc.Create(ctx, req)
	require.NoError(t, err)
	require.EqualValues(t, 5, store.products[prod.ID].TotalOnHand())

	_, err = svc.Update(ctx, p.ID, UpdateRequest{
		Type: p.Type, Status: p.Status, ProductID: p.ProductID, VendorID: p.VendorID,
		ToLocationID: p.ToLocationID, Quantity: p.Quantity,
		UnitPrice: p.UnitPrice, TotalPrice: p.TotalPrice,
	})
	require.NoError(t, err)

	// reverse(X) then apply(X) leaves totals unchanged
	require.EqualValues(t, 5, store.products[prod.ID].TotalOnHand())
	// each re-application appends fresh history
	require.Len(t, store.movements, 3)
}

func TestUpdateReopenReversesStock(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	prod := seedProduct(store, 10, nil)
	ctx := actorContext()

	p, err := svc.Create(ctx, vendorRequest(prod, loc, 5, 20, StatusCompleted))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, UpdateRequest{
		Type: p.Type, Status: StatusPending, ProductID: p.ProductID, VendorID: p.VendorID,
		ToLocationID: p.ToLocationID, Quantity: p.Quantity,
		UnitPrice: p.UnitPrice, TotalPrice: p.TotalPrice,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, updated.Status)
	require.EqualValues(t, 0, store.products[prod.ID].TotalOnHand())
}

func TestUpdateCanMoveEffectToAnotherProduct(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	first := seedProduct(store, 0, nil)
	second := product.Product{ID: uuid.New(), Name: "Gadget", SKU: "G-1", Inventory: product.Inventory{}}
	store.products[second.ID] = second
	ctx := actorContext()

	p, err := svc.Create(ctx, vendorRequest(first, loc, 5, 20, StatusCompleted))
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, UpdateRequest{
		Type: p.Type, Status: StatusCompleted, ProductID: second.ID, VendorID: p.VendorID,
		ToLocationID: loc, Quantity: 5, UnitPrice: 20, TotalPrice: 100,
	})
	require.NoError(t, err)

	require.EqualValues(t, 0, store.products[first.ID].TotalOnHand())
	require.EqualValues(t, 5, store.products[second.ID].TotalOnHand())
}

func TestDeleteCompletedReversesAndKeepsHistory(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	prod := seedProduct(store, 10, nil)
	ctx := actorContext()

	p, err := svc.Create(ctx, vendorRequest(prod, loc, 5, 20, StatusCompleted))
	require.NoError(t, err)
	require.Len(t, store.movements, 1)

	require.NoError(t, svc.Delete(ctx, p.ID))
	require.Empty(t, store.purchases)
	require.EqualValues(t, 0, store.products[prod.ID].TotalOnHand())
	// receipt plus compensating reversal stay on the ledger
	require.Len(t, store.movements, 2)
}

func TestLedgerSumMatchesOnHand(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	prod := seedProduct(store, 0, nil)
	ctx := actorContext()

	p, err := svc.Create(ctx, vendorRequest(prod, loc, 8, 10, StatusCompleted))
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, UpdateRequest{
		Type: p.Type, Status: StatusCompleted, ProductID: p.ProductID, VendorID: p.VendorID,
		ToLocationID: p.ToLocationID, Quantity: 3, UnitPrice: 10, TotalPrice: 30,
	})
	require.NoError(t, err)

	var sum int64
	for _, mv := range store.movements {
		sum += mv.QuantityChange
	}
	require.Equal(t, store.products[prod.ID].TotalOnHand(), sum)
}

func TestCreateRejectsArchivedProduct(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	prod := seedProduct(store, 10, nil)
	archived := store.products[prod.ID]
	archived.IsDeleted = true
	store.products[prod.ID] = archived

	_, err := svc.Create(actorContext(), vendorRequest(prod, loc, 5, 20, StatusCompleted))
	require.ErrorIs(t, err, shared.ErrReferenceNotFound)
	require.EqualValues(t, 0, store.products[prod.ID].TotalOnHand())
	require.Empty(t, store.purchases)
	require.Empty(t, store.movements)
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	svc, store := newTestService()
	ghost := product.Product{ID: uuid.New()}

	// Pending documents must also verify their product reference.
	_, err := svc.Create(actorContext(), vendorRequest(ghost, uuid.New(), 5, 20, StatusPending))
	require.ErrorIs(t, err, shared.ErrReferenceNotFound)
	require.Empty(t, store.purchases)
}

func TestUpdateRejectsArchivedProduct(t *testing.T) {
	svc, store := newTestService()
	loc := uuid.New()
	prod := seedProduct(store, 10, nil)
	ctx := actorContext()

	p, err := svc.Create(ctx, vendorRequest(prod, loc, 5, 20, StatusCompleted))
	require.NoError(t, err)

	other := seedProduct(store, 0, nil)
	archived := store.products[other.ID]
	archived.IsDeleted = true
	store.products[other.ID] = archived

	_, err = svc.Update(ctx, p.ID, UpdateRequest{
		Type: p.Type, Status: StatusCompleted, ProductID: other.ID, VendorID: p.VendorID,
		ToLocationID: loc, Quantity: 5, UnitPrice: 20, TotalPrice: 100,
	})
	require.ErrorIs(t, err, shared.ErrReferenceNotFound)

	// The stored document and its stock effect are untouched.
	require.EqualValues(t, 5, store.products[prod.ID].TotalOnHand())
	require.Equal(t, prod.ID, store.purchases[p.ID].ProductID)
	require.Len(t, store.movements, 1)
}

func TestDeleteAfterDestinationPruned(t *testing.T) {
	svc, store := newTestService()
	locA := uuid.New()
	locB := uuid.New()
	prod := seedProduct(store, 10, nil)
	ctx := actorContext()

	p, err := svc.Create(ctx, vendorRequest(prod, locA, 5, 20, StatusCompleted))
	require.NoError(t, err)

	// A sale drained locA and a later receipt at locB pruned the zeroed
	// entry, so the reversal has nowhere to take the quantity from.
	stored := store.products[prod.ID]
	stored.Inventory = product.Inventory{locB: 3}
	store.products[prod.ID] = stored

	err = svc.Delete(ctx, p.ID)
	require.ErrorIs(t, err, product.ErrNegativeStock)
	require.Contains(t, store.purchases, p.ID)
	require.EqualValues(t, 3, store.products[prod.ID].TotalOnHand())
}
