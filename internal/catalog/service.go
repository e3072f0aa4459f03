package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts the persistence layer for the service.
type RepositoryPort interface {
	CreateLocation(ctx context.Context, loc Location) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	CreateVendor(ctx context.Context, v Vendor) (Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
	CreateCustomer(ctx context.Context, c Customer) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	CreateBrand(ctx context.Context, b Brand) (Brand, error)
	ListBrands(ctx context.Context) ([]Brand, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)

	LocationExists(ctx context.Context, id uuid.UUID) error
	VendorExists(ctx context.Context, id uuid.UUID) error
	CustomerExists(ctx context.Context, id uuid.UUID) error
	BrandExists(ctx context.Context, id uuid.UUID) error
	CategoryExists(ctx context.Context, id uuid.UUID) error
}

// Service provides catalog reference data. Transaction engines consume it
// for foreign-key existence checks; it has no stock impact of its own.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	return name, nil
}

func (s *Service) CreateLocation(ctx context.Context, name, address string) (Location, error) {
	name, err := requireName(name)
	if err != nil {
		return Location{}, err
	}
	return s.repo.CreateLocation(ctx, Location{ID: uuid.New(), Name: name, Address: strings.TrimSpace(address)})
}

func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	return s.repo.ListLocations(ctx)
}

func (s *Service) CreateVendor(ctx context.Context, name, contact string) (Vendor, error) {
	name, err := requireName(name)
	if err != nil {
		return Vendor{}, err
	}
	return s.repo.CreateVendor(ctx, Vendor{ID: uuid.New(), Name: name, Contact: strings.TrimSpace(contact)})
}

func (s *Service) ListVendors(ctx context.Context) ([]Vendor, error) {
	return s.repo.ListVendors(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, name, phone string) (Customer, error) {
	name, err := requireName(name)
	if err != nil {
		return Customer{}, err
	}
	return s.repo.CreateCustomer(ctx, Customer{ID: uuid.New(), Name: name, Phone: strings.TrimSpace(phone)})
}

func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateBrand(ctx context.Context, name string) (Brand, error) {
	name, err := requireName(name)
	if err != nil {
		return Brand{}, err
	}
	return s.repo.CreateBrand(ctx, Brand{ID: uuid.New(), Name: name})
}

func (s *Service) ListBrands(ctx context.Context) ([]Brand, error) {
	return s.repo.ListBrands(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name, description string) (Category, error) {
	name, err := requireName(name)
	if err != nil {
		return Category{}, err
	}
	return s.repo.CreateCategory(ctx, Category{ID: uuid.New(), Name: name, Description: strings.TrimSpace(description)})
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// Existence checks consumed by the transaction engines.

func (s *Service) LocationExists(ctx context.Context, id uuid.UUID) error {
	return s.repo.LocationExists(ctx, id)
}

func (s *Service) VendorExists(ctx context.Context, id uuid.UUID) error {
	return s.repo.VendorExists(ctx, id)
}

func (s *Service) CustomerExists(ctx context.Context, id uuid.UUID) error {
	return s.repo.CustomerExists(ctx, id)
}

func (s *Service) BrandExists(ctx context.Context, id uuid.UUID) error {
	return s.repo.BrandExists(ctx, id)
}

func (s *Service) CategoryExists(ctx context.Context, id uuid.UUID) error {
	return s.repo.CategoryExists(ctx, id)
}
