package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memCatalog struct {
	locations  map[uuid.UUID]Location
	vendors    map[uuid.UUID]Vendor
	customers  map[uuid.UUID]Customer
	brands     map[uuid.UUID]Brand
	categories map[uuid.UUID]Category
	names      map[string]bool
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		locations:  map[uuid.UUID]Location{},
		vendors:    map[uuid.UUID]Vendor{},
		customers:  map[uuid.UUID]Customer{},
		brands:     map[uuid.UUID]Brand{},
		categories: map[uuid.UUID]Category{},
		names:      map[string]bool{},
	}
}

func (m *memCatalog) claimName(kind, name string) error {
	key := kind + "/" + name
	if m.names[key] {
		return shared.ErrDuplicateName
	}
	m.names[key] = true
	return nil
}

func (m *memCatalog) CreateLocation(_ context.Context, loc Location) (Location, error) {
	if err := m.claimName("location", loc.Name); err != nil {
		return Location{}, err
	}
	loc.CreatedAt = time.Now()
	m.locations[loc.ID] = loc
	return loc, nil
}

func (m *memCatalog) ListLocations(context.Context) ([]Location, error) {
	out := make([]Location, 0, len(m.locations))
	for _, loc := range m.locations {
		out = append(out, loc)
	}
	return out, nil
}

func (m *memCatalog) CreateVendor(_ context.Context, v Vendor) (Vendor, error) {
	if err := m.claimName("vendor", v.Name); err != nil {
		return Vendor{}, err
	}
	v.CreatedAt = time.Now()
	m.vendors[v.ID] = v
	return v, nil
}

func (m *memCatalog) ListVendors(context.Context) ([]Vendor, error) {
	out := make([]Vendor, 0, len(m.vendors))
	for _, v := range m.vendors {
		out = append(out, v)
	}
	return out, nil
}

func (m *memCatalog) CreateCustomer(_ context.Context, c Customer) (Customer, error) {
	if err := m.claimName("customer", c.Name); err != nil {
		return Customer{}, err
	}
	c.CreatedAt = time.Now()
	m.customers[c.ID] = c
	return c, nil
}

func (m *memCatalog) ListCustomers(context.Context) ([]Customer, error) {
	out := make([]Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCatalog) CreateBrand(_ context.Context, b Brand) (Brand, error) {
	if err := m.claimName("brand", b.Name); err != nil {
		return Brand{}, err
	}
	b.CreatedAt = time.Now()
	m.brands[b.ID] = b
	return b, nil
}

func (m *memCatalog) ListBrands(context.Context) ([]Brand, error) {
	out := make([]Brand, 0, len(m.brands))
	for _, b := range m.brands {
		out = append(out, b)
	}
	return out, nil
}

func (m *memCatalog) CreateCategory(_ context.Context, c Category) (Category, error) {
	if err := m.claimName("category", c.Name); err != nil {
		return Category{}, err
	}
	c.CreatedAt = time.Now()
	m.categories[c.ID] = c
	return c, nil
}

func (m *memCatalog) ListCategories(context.Context) ([]Category, error) {
	out := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCatalog) LocationExists(_ context.Context, id uuid.UUID) error {
	if _, ok := m.locations[id]; !ok {
		return fmt.Errorf("%w: location %s", shared.ErrReferenceNotFound, id)
	}
	return nil
}

func (m *memCatalog) VendorExists(_ context.Context, id uuid.UUID) error {
	if _, ok := m.vendors[id]; !ok {
		return fmt.Errorf("%w: vendor %s", shared.ErrReferenceNotFound, id)
	}
	return nil
}

func (m *memCatalog) CustomerExists(_ context.Context, id uuid.UUID) error {
	if _, ok := m.customers[id]; !ok {
		return fmt.Errorf("%w: customer %s", shared.ErrReferenceNotFound, id)
	}
	return nil
}

func (m *memCatalog) BrandExists(_ context.Context, id uuid.UUID) error {
	if _, ok := m.brands[id]; !ok {
		return fmt.Errorf("%w: brand %s", shared.ErrReferenceNotFound, id)
	}
	return nil
}

func (m *memCatalog) CategoryExists(_ context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return fmt.Errorf("%w: category %s", shared.ErrReferenceNotFound, id)
	}
	return nil
}

func TestCreateLocationTrimsAndValidates(t *testing.T) {
	svc := NewService(newMemCatalog())

	loc, err := svc.CreateLocation(context.Background(), "  Main Warehouse  ", " Dock 4 ")
	require.NoError(t, err)
	require.Equal(t, "Main Warehouse", loc.Name)
	require.Equal(t, "Dock 4", loc.Address)
	require.NotEqual(t, uuid.Nil, loc.ID)

	_, err = svc.CreateLocation(context.Background(), "   ", "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsDuplicateNames(t *testing.T) {
	svc := NewService(newMemCatalog())

	_, err := svc.CreateVendor(context.Background(), "Acme Supply", "acme@example.com")
	require.NoError(t, err)

	_, err = svc.CreateVendor(context.Background(), "Acme Supply", "other@example.com")
	require.ErrorIs(t, err, shared.ErrDuplicateName)
}

func TestExistenceChecks(t *testing.T) {
	repo := newMemCatalog()
	svc := NewService(repo)

	brand, err := svc.CreateBrand(context.Background(), "Northwind")
	require.NoError(t, err)
	cat, err := svc.CreateCategory(context.Background(), "Hardware", "tools and fixings")
	require.NoError(t, err)

	require.NoError(t, svc.BrandExists(context.Background(), brand.ID))
	require.NoError(t, svc.CategoryExists(context.Background(), cat.ID))

	err = svc.BrandExists(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrReferenceNotFound)
	err = svc.VendorExists(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrReferenceNotFound)
}

func TestListReturnsCreatedEntries(t *testing.T) {
	svc := NewService(newMemCatalog())

	_, err := svc.CreateCustomer(context.Background(), "Coastal Retail", "+1 555 0100")
	require.NoError(t, err)
	_, err = svc.CreateCustomer(context.Background(), "Harbor Goods", "")
	require.NoError(t, err)

	customers, err := svc.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 2)
}
