package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/foodflow/pos-api/internal/money"
)

// Category is a product grouping owned by one local.
type Category struct {
	ID        uuid.UUID
	LocalID   uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Product is a sellable item with its current menu price.
type Product struct {
	ID         uuid.UUID
	LocalID    uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Price      money.Money
	Active     bool
	CreatedAt  time.Time
}

// CatalogRepo persists categories and products.
type CatalogRepo struct {
	DB Querier
}

// CreateCategory inserts a category for the context local.
func (r CatalogRepo) CreateCategory(ctx context.Context, name string, active bool) (Category, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return Category{}, err
	}
	c := Category{ID: uuid.New(), LocalID: fromPGUUID(lid), Name: name, Active: active}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO categories (id, local_id, name, active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		pgUUID(c.ID), lid, c.Name, c.Active)
	if err := row.Scan(&c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Category{}, ErrConflict
		}
		return Category{}, err
	}
	return c, nil
}

// UpdateCategory renames or toggles a category.
func (r CatalogRepo) UpdateCategory(ctx context.Context, id uuid.UUID, name string, active bool) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE categories SET name = $3, active = $4
		WHERE id = $1 AND local_id = $2`,
		pgUUID(id), lid, name, active)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategories returns the local's categories, name ascending.
func (r CatalogRepo) ListCategories(ctx context.Context) ([]Category, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, active, created_at
		FROM categories
		WHERE local_id = $1
		ORDER BY name`, lid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	localID := fromPGUUID(lid)
	var out []Category
	for rows.Next() {
		var (
			id pgtype.UUID
			c  Category
		)
		if err := rows.Scan(&id, &c.Name, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.ID = fromPGUUID(id)
		c.LocalID = localID
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory fetches one category by id.
func (r CatalogRepo) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return Category{}, err
	}
	c := Category{ID: id, LocalID: fromPGUUID(lid)}
	row := r.DB.QueryRow(ctx, `
		SELECT name, active, created_at
		FROM categories
		WHERE id = $1 AND local_id = $2`, pgUUID(id), lid)
	if err := row.Scan(&c.Name, &c.Active, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return Category{}, ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

// DeleteCategory removes an empty category. Postgres rejects the delete with
// a foreign key violation while products still reference it.
func (r CatalogRepo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		DELETE FROM categories WHERE id = $1 AND local_id = $2`, pgUUID(id), lid)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateProduct inserts a product for the context local.
func (r CatalogRepo) CreateProduct(ctx context.Context, categoryID uuid.UUID, name string, price money.Money, active bool) (Product, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return Product{}, err
	}
	p := Product{ID: uuid.New(), LocalID: fromPGUUID(lid), CategoryID: categoryID, Name: name, Price: price, Active: active}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products (id, local_id, category_id, name, price, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		pgUUID(p.ID), lid, pgUUID(categoryID), p.Name, moneyParam(price), p.Active)
	if err := row.Scan(&p.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrConflict
		}
		return Product{}, err
	}
	return p, nil
}

// UpdateProduct rewrites a product's mutable fields.
func (r CatalogRepo) UpdateProduct(ctx context.Context, id, categoryID uuid.UUID, name string, price money.Money, active bool) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE products SET category_id = $3, name = $4, price = $5, active = $6
		WHERE id = $1 AND local_id = $2`,
		pgUUID(id), lid, pgUUID(categoryID), name, moneyParam(price), active)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product. Order lines keep their own snapshot of
// the product, so history is unaffected.
func (r CatalogRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		DELETE FROM products WHERE id = $1 AND local_id = $2`, pgUUID(id), lid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProducts returns the local's products, optionally filtered by category.
func (r CatalogRepo) ListProducts(ctx context.Context, categoryID *uuid.UUID, activeOnly bool) ([]Product, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, category_id, name, price, active, created_at
		FROM products
		WHERE local_id = $1
		  AND ($2::uuid IS NULL OR category_id = $2)
		  AND (NOT $3::bool OR active)
		ORDER BY name`, lid, pgUUIDPtr(categoryID), activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows, fromPGUUID(lid))
}

// GetProduct fetches one product by id.
func (r CatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return Product{}, err
	}
	p := Product{ID: id, LocalID: fromPGUUID(lid)}
	var (
		categoryID pgtype.UUID
		price      pgtype.Numeric
	)
	row := r.DB.QueryRow(ctx, `
		SELECT category_id, name, price, active, created_at
		FROM products
		WHERE id = $1 AND local_id = $2`, pgUUID(id), lid)
	if err := row.Scan(&categoryID, &p.Name, &price, &p.Active, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	p.CategoryID = fromPGUUID(categoryID)
	if p.Price, err = numericToMoney(price); err != nil {
		return Product{}, err
	}
	return p, nil
}

func scanProducts(rows pgx.Rows, localID uuid.UUID) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var (
			id, categoryID pgtype.UUID
			price          pgtype.Numeric
			p              Product
		)
		if err := rows.Scan(&id, &categoryID, &p.Name, &price, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ID = fromPGUUID(id)
		p.LocalID = localID
		p.CategoryID = fromPGUUID(categoryID)
		var err error
		if p.Price, err = numericToMoney(price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
