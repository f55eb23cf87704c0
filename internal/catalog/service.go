// Package catalog manages the menu: categories and snapshot-priced products.
// Reads go through a short-TTL Redis cache keyed per local; every write
// invalidates the local's keys.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foodflow/pos-api/internal/common"
	"github.com/foodflow/pos-api/internal/local"
	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/repo"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateCategory(ctx context.Context, name string, active bool) (repo.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name string, active bool) error
	ListCategories(ctx context.Context) ([]repo.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (repo.Category, error)
	CreateProduct(ctx context.Context, categoryID uuid.UUID, name string, price money.Money, active bool) (repo.Product, error)
	UpdateProduct(ctx context.Context, id, categoryID uuid.UUID, name string, price money.Money, active bool) error
	ListProducts(ctx context.Context, categoryID *uuid.UUID, activeOnly bool) ([]repo.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (repo.Product, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates catalog writes and cached reads.
type Service struct {
	store    Store
	cache    *Cache
	validate *validator.Validate
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  Store
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		store:    cfg.Store,
		cache:    cfg.Cache,
		validate: validator.New(),
		logger:   cfg.Logger,
	}
}

// CategoryInput is the create/update payload for categories.
type CategoryInput struct {
	Name   string `json:"name" validate:"required,min=1,max=120"`
	Active *bool  `json:"active"`
}

// ProductInput is the create/update payload for products.
type ProductInput struct {
	CategoryID uuid.UUID `json:"category_id" validate:"required"`
	Name       string    `json:"name" validate:"required,min=1,max=200"`
	Price      string    `json:"price" validate:"required"`
	Active     *bool     `json:"active"`
}

// CategoryDTO is the public category payload.
type CategoryDTO struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// ProductDTO is the public product payload.
type ProductDTO struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	Active     bool      `json:"active"`
}

// CreateCategory validates and persists a new category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (CategoryDTO, error) {
	if err := s.validate.Struct(in); err != nil {
		return CategoryDTO{}, invalidInput(err)
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	c, err := s.store.CreateCategory(ctx, in.Name, active)
	if err != nil {
		return CategoryDTO{}, storeError(err, "category")
	}
	s.invalidate(ctx)
	return categoryDTO(c), nil
}

// UpdateCategory validates and rewrites a category.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (CategoryDTO, error) {
	if err := s.validate.Struct(in); err != nil {
		return CategoryDTO{}, invalidInput(err)
	}
	current, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return CategoryDTO{}, storeError(err, "category")
	}
	active := current.Active
	if in.Active != nil {
		active = *in.Active
	}
	if err := s.store.UpdateCategory(ctx, id, in.Name, active); err != nil {
		return CategoryDTO{}, storeError(err, "category")
	}
	s.invalidate(ctx)
	current.Name = in.Name
	current.Active = active
	return categoryDTO(current), nil
}

// ListCategories returns the local's categories, served from cache when warm.
func (s *Service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	key := s.cacheKey(ctx, "categories")
	var cached []CategoryDTO
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	rows, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, storeError(err, "category")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, c := range rows {
		out = append(out, categoryDTO(c))
	}
	if err := s.cache.SetJSON(ctx, key, out); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return out, nil
}

// DeleteCategory removes a category that no longer holds products.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return common.NewAppError("CONFLICT", "category still has products", http.StatusConflict, err)
		}
		return storeError(err, "category")
	}
	s.invalidate(ctx)
	return nil
}

// CreateProduct validates and persists a new product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (ProductDTO, error) {
	if err := s.validate.Struct(in); err != nil {
		return ProductDTO{}, invalidInput(err)
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return ProductDTO{}, err
	}
	if _, err := s.store.GetCategory(ctx, in.CategoryID); err != nil {
		return ProductDTO{}, storeError(err, "category")
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	p, err := s.store.CreateProduct(ctx, in.CategoryID, in.Name, price, active)
	if err != nil {
		return ProductDTO{}, storeError(err, "product")
	}
	s.invalidate(ctx)
	return productDTO(p), nil
}

// UpdateProduct validates and rewrites a product. Price changes only affect
// lines added afterwards; existing order lines keep their snapshot price.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (ProductDTO, error) {
	if err := s.validate.Struct(in); err != nil {
		return ProductDTO{}, invalidInput(err)
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return ProductDTO{}, err
	}
	if _, err := s.store.GetCategory(ctx, in.CategoryID); err != nil {
		return ProductDTO{}, storeError(err, "category")
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	if err := s.store.UpdateProduct(ctx, id, in.CategoryID, in.Name, price, active); err != nil {
		return ProductDTO{}, storeError(err, "product")
	}
	s.invalidate(ctx)
	return ProductDTO{ID: id, CategoryID: in.CategoryID, Name: in.Name, Price: price.String(), Active: active}, nil
}

// ListProducts returns products, optionally filtered by category or active
// state. The unfiltered active listing is the hot path and is cached.
func (s *Service) ListProducts(ctx context.Context, categoryID *uuid.UUID, activeOnly bool) ([]ProductDTO, error) {
	cacheable := categoryID == nil && activeOnly
	key := s.cacheKey(ctx, "products:active")
	if cacheable {
		var cached []ProductDTO
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		} else if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
	}
	rows, err := s.store.ListProducts(ctx, categoryID, activeOnly)
	if err != nil {
		return nil, storeError(err, "product")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, productDTO(p))
	}
	if cacheable {
		if err := s.cache.SetJSON(ctx, key, out); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
		}
	}
	return out, nil
}

// DeleteProduct removes a product from the menu. Existing order lines keep
// their snapshot and are untouched.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return storeError(err, "product")
	}
	s.invalidate(ctx)
	return nil
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (ProductDTO, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return ProductDTO{}, storeError(err, "product")
	}
	return productDTO(p), nil
}

func (s *Service) cacheKey(ctx context.Context, suffix string) string {
	id, ok := local.From(ctx)
	if !ok {
		return ""
	}
	return "catalog:" + id.String() + ":" + suffix
}

func (s *Service) invalidate(ctx context.Context) {
	keys := []string{s.cacheKey(ctx, "categories"), s.cacheKey(ctx, "products:active")}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func categoryDTO(c repo.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, Active: c.Active}
}

func productDTO(p repo.Product) ProductDTO {
	return ProductDTO{ID: p.ID, CategoryID: p.CategoryID, Name: p.Name, Price: p.Price.String(), Active: p.Active}
}

func parsePrice(raw string) (money.Money, error) {
	price, err := money.FromString(raw)
	if err != nil {
		return money.Money{}, common.NewAppError("VALIDATION", fmt.Sprintf("invalid price %q", raw), http.StatusBadRequest, err)
	}
	if price.IsNegative() {
		return money.Money{}, common.NewAppError("VALIDATION", "price cannot be negative", http.StatusBadRequest, nil)
	}
	return price, nil
}

func invalidInput(err error) error {
	return common.NewAppError("VALIDATION", "invalid payload", http.StatusBadRequest, err)
}

func storeError(err error, entity string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return common.NewAppError("NOT_FOUND", entity+" not found", http.StatusNotFound, err)
	case errors.Is(err, repo.ErrConflict):
		return common.NewAppError("CONFLICT", entity+" already exists", http.StatusConflict, err)
	case errors.Is(err, repo.ErrLocalMissing):
		return common.NewAppError("LOCAL_REQUIRED", "missing local scope", http.StatusBadRequest, err)
	default:
		return err
	}
}
