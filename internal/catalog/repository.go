package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const uniqueViolation = "23505"

// Repository persists catalog reference data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapInsertErr(err error, entity string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s name", shared.ErrDuplicateName, entity)
	}
	return err
}

func (r *Repository) exists(ctx context.Context, table string, id uuid.UUID) error {
	var found bool
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT TRUE FROM %s WHERE id = $1`, table), id).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s %s", shared.ErrReferenceNotFound, table, id)
		}
		return err
	}
	return nil
}

// LocationExists reports whether the location id resolves.
func (r *Repository) LocationExists(ctx context.Context, id uuid.UUID) error {
	return r.exists(ctx, "locations", id)
}

// VendorExists reports whether the vendor id resolves.
func (r *Repository) VendorExists(ctx context.Context, id uuid.UUID) error {
	return r.exists(ctx, "vendors", id)
}

// CustomerExists reports whether the customer id resolves.
func (r *Repository) CustomerExists(ctx context.Context, id uuid.UUID) error {
	return r.exists(ctx, "customers", id)
}

// BrandExists reports whether the brand id resolves.
func (r *Repository) BrandExists(ctx context.Context, id uuid.UUID) error {
	return r.exists(ctx, "brands", id)
}

// CategoryExists reports whether the category id resolves.
func (r *Repository) CategoryExists(ctx context.Context, id uuid.UUID) error {
	return r.exists(ctx, "categories", id)
}

func (r *Repository) CreateLocation(ctx context.Context, loc Location) (Location, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO locations (id, name, address) VALUES ($1, $2, $3) RETURNING created_at`,
		loc.ID, loc.Name, loc.Address).Scan(&loc.CreatedAt)
	if err != nil {
		return Location{}, mapInsertErr(err, "location")
	}
	return loc, nil
}

func (r *Repository) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, address, created_at FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (r *Repository) CreateVendor(ctx context.Context, v Vendor) (Vendor, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO vendors (id, name, contact) VALUES ($1, $2, $3) RETURNING created_at`,
		v.ID, v.Name, v.Contact).Scan(&v.CreatedAt)
	if err != nil {
		return Vendor{}, mapInsertErr(err, "vendor")
	}
	return v, nil
}

func (r *Repository) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, contact, created_at FROM vendors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Contact, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (id, name, phone) VALUES ($1, $2, $3) RETURNING created_at`,
		c.ID, c.Name, c.Phone).Scan(&c.CreatedAt)
	if err != nil {
		return Customer{}, mapInsertErr(err, "customer")
	}
	return c, nil
}

func (r *Repository) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, phone, created_at FROM customers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CreateBrand(ctx context.Context, b Brand) (Brand, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO brands (id, name) VALUES ($1, $2) RETURNING created_at`,
		b.ID, b.Name).Scan(&b.CreatedAt)
	if err != nil {
		return Brand{}, mapInsertErr(err, "brand")
	}
	return b, nil
}

func (r *Repository) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM brands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Brand
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (id, name, description) VALUES ($1, $2, $3) RETURNING created_at`,
		c.ID, c.Name, c.Description).Scan(&c.CreatedAt)
	if err != nil {
		return Category{}, mapInsertErr(err, "category")
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
