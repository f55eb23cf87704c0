// Package promotions manages the promotion catalog: create, edit, toggle,
// delete, and scope association. All rule invariants are enforced here at
// write time so the evaluation engine only ever loads well-formed rules.
package promotions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foodflow/pos-api/internal/common"
	"github.com/foodflow/pos-api/internal/local"
	"github.com/foodflow/pos-api/internal/promo"
	"github.com/foodflow/pos-api/internal/repo"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, p promo.Promotion) error
	Update(ctx context.Context, p promo.Promotion) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (promo.Promotion, error)
	List(ctx context.Context) ([]promo.Promotion, error)
}

// Service validates and persists promotion rules.
type Service struct {
	store    Store
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  Store
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: cfg.Store, validate: validator.New(), logger: cfg.Logger, now: now}
}

// Input is the create/update payload. Strategy and triggers arrive as
// kind-tagged envelopes and are decoded through their constructors.
type Input struct {
	Name        string            `json:"name" validate:"required,min=1,max=160"`
	Description string            `json:"description" validate:"max=500"`
	Priority    int               `json:"priority" validate:"required,gt=0"`
	Active      bool              `json:"active"`
	Strategy    json.RawMessage   `json:"strategy" validate:"required"`
	Triggers    json.RawMessage   `json:"triggers" validate:"required"`
	Scope       []promo.ScopeEntry `json:"scope"`
}

// DTO is the public promotion payload.
type DTO struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Priority    int                `json:"priority"`
	Active      bool               `json:"active"`
	Strategy    json.RawMessage    `json:"strategy"`
	Triggers    json.RawMessage    `json:"triggers"`
	Scope       []promo.ScopeEntry `json:"scope"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Create validates and persists a new promotion.
func (s *Service) Create(ctx context.Context, in Input) (DTO, error) {
	p, err := s.buildPromotion(ctx, in)
	if err != nil {
		return DTO{}, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return DTO{}, storeError(err)
	}
	s.logger.Info().Str("promotion_id", p.ID.String()).Str("name", p.Name).Msg("promotion created")
	return toDTO(p)
}

// Update replaces a promotion's definition, re-running every invariant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (DTO, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return DTO{}, storeError(err)
	}
	p, err := s.buildPromotion(ctx, in)
	if err != nil {
		return DTO{}, err
	}
	p.ID = current.ID
	p.CreatedAt = current.CreatedAt
	if err := s.store.Update(ctx, p); err != nil {
		return DTO{}, storeError(err)
	}
	return toDTO(p)
}

// SetScope replaces only the scope association of an existing promotion.
func (s *Service) SetScope(ctx context.Context, id uuid.UUID, entries []promo.ScopeEntry) (DTO, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return DTO{}, storeError(err)
	}
	if err := promo.ValidateScope(entries); err != nil {
		return DTO{}, ruleError(err)
	}
	p.Scope = entries
	if err := s.store.Update(ctx, p); err != nil {
		return DTO{}, storeError(err)
	}
	return toDTO(p)
}

// SetActive toggles a promotion.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return storeError(err)
	}
	return nil
}

// Delete removes a promotion. Frozen discounts on past orders keep their
// values; only the rule disappears.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}

// Get fetches one promotion.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (DTO, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return DTO{}, storeError(err)
	}
	return toDTO(p)
}

// List returns the local's promotions in evaluation order.
func (s *Service) List(ctx context.Context) ([]DTO, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]DTO, 0, len(rows))
	for _, p := range rows {
		dto, err := toDTO(p)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

func (s *Service) buildPromotion(ctx context.Context, in Input) (promo.Promotion, error) {
	if err := s.validate.Struct(in); err != nil {
		return promo.Promotion{}, common.NewAppError("VALIDATION", "invalid payload", http.StatusBadRequest, err)
	}
	strategy, err := promo.DecodeStrategy(in.Strategy)
	if err != nil {
		return promo.Promotion{}, ruleError(err)
	}
	triggers, err := promo.DecodeTriggers(in.Triggers)
	if err != nil {
		return promo.Promotion{}, ruleError(err)
	}
	localID, _ := local.From(ctx)
	p, err := promo.New(promo.Config{
		LocalID:     localID,
		Name:        in.Name,
		Description: in.Description,
		Priority:    in.Priority,
		Active:      in.Active,
		Strategy:    strategy,
		Triggers:    triggers,
		Scope:       in.Scope,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return promo.Promotion{}, ruleError(err)
	}
	// A combo without trigger-scope entries could never fire; reject it at
	// write time instead of letting it sit inert in the catalog.
	if strategy.Kind() == promo.StrategyConditionalCombo && !hasRole(p.Scope, promo.RoleTrigger) {
		return promo.Promotion{}, common.NewAppError("VALIDATION",
			"conditional combo requires at least one TRIGGER scope entry", http.StatusBadRequest, nil)
	}
	return p, nil
}

func hasRole(entries []promo.ScopeEntry, role promo.Role) bool {
	for _, e := range entries {
		if e.Role == role {
			return true
		}
	}
	return false
}

func toDTO(p promo.Promotion) (DTO, error) {
	strategy, err := promo.EncodeStrategy(p.Strategy)
	if err != nil {
		return DTO{}, err
	}
	triggers, err := promo.EncodeTriggers(p.Triggers)
	if err != nil {
		return DTO{}, err
	}
	return DTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Priority:    p.Priority,
		Active:      p.Active,
		Strategy:    strategy,
		Triggers:    triggers,
		Scope:       p.Scope,
		CreatedAt:   p.CreatedAt,
	}, nil
}

func ruleError(err error) error {
	return common.NewAppError("VALIDATION", err.Error(), http.StatusBadRequest, err)
}

func storeError(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return common.NewAppError("NOT_FOUND", "promotion not found", http.StatusNotFound, err)
	case errors.Is(err, repo.ErrConflict):
		return common.NewAppError("CONFLICT", "promotion name already in use", http.StatusConflict, err)
	case errors.Is(err, repo.ErrLocalMissing):
		return common.NewAppError("LOCAL_REQUIRED", "missing local scope", http.StatusBadRequest, err)
	default:
		return err
	}
}
