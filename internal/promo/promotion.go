package promo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoTriggers rejects promotions without at least one trigger.
	ErrNoTriggers = errors.New("promotion requires at least one trigger")
	// ErrInvalidPriority rejects non-positive priorities.
	ErrInvalidPriority = errors.New("promotion priority must be positive")
	// ErrEmptyName rejects blank promotion names.
	ErrEmptyName = errors.New("promotion name cannot be empty")
	// ErrNilStrategy rejects promotions without a benefit strategy.
	ErrNilStrategy = errors.New("promotion requires a strategy")
	// ErrDuplicateScopeRef rejects a reference appearing twice in one scope.
	ErrDuplicateScopeRef = errors.New("scope reference appears more than once")
)

// Promotion is a reusable, tenant-owned rule: a benefit strategy guarded by
// one or more AND-combined triggers, applied to a product/category scope.
// The pricing core treats promotions as read-only; all mutation happens in
// the catalog management layer.
type Promotion struct {
	ID          uuid.UUID    `json:"id"`
	LocalID     uuid.UUID    `json:"local_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Priority    int          `json:"priority"`
	Active      bool         `json:"active"`
	Strategy    Strategy     `json:"-"`
	Triggers    []Trigger    `json:"-"`
	Scope       []ScopeEntry `json:"scope"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Config collects constructor parameters for New.
type Config struct {
	LocalID     uuid.UUID
	Name        string
	Description string
	Priority    int
	Active      bool
	Strategy    Strategy
	Triggers    []Trigger
	Scope       []ScopeEntry
	CreatedAt   time.Time
}

// New validates and builds a Promotion. Zero triggers, non-positive
// priority, and duplicate scope references are configuration errors that
// must never reach the evaluation engine.
func New(cfg Config) (Promotion, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return Promotion{}, ErrEmptyName
	}
	if cfg.Priority <= 0 {
		return Promotion{}, fmt.Errorf("%w, got %d", ErrInvalidPriority, cfg.Priority)
	}
	if cfg.Strategy == nil {
		return Promotion{}, ErrNilStrategy
	}
	if len(cfg.Triggers) == 0 {
		return Promotion{}, ErrNoTriggers
	}
	if err := ValidateScope(cfg.Scope); err != nil {
		return Promotion{}, err
	}
	return Promotion{
		ID:          uuid.New(),
		LocalID:     cfg.LocalID,
		Name:        name,
		Description: strings.TrimSpace(cfg.Description),
		Priority:    cfg.Priority,
		Active:      cfg.Active,
		Strategy:    cfg.Strategy,
		Triggers:    cfg.Triggers,
		Scope:       cfg.Scope,
		CreatedAt:   cfg.CreatedAt,
	}, nil
}

// ValidateScope rejects duplicate reference ids within one promotion scope.
func ValidateScope(entries []ScopeEntry) error {
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.RefID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateScopeRef, e.RefID)
		}
		seen[e.RefID] = struct{}{}
	}
	return nil
}

// Eligible reports whether every trigger holds for the given context.
// Triggers combine with AND semantics: one failing condition vetoes the
// whole promotion.
func (p Promotion) Eligible(ctx EvalContext) bool {
	if !p.Active {
		return false
	}
	for _, t := range p.Triggers {
		if !t.Satisfied(ctx) {
			return false
		}
	}
	return true
}

// HasTargets reports whether the scope names at least one TARGET entry.
// A promotion without targets can never produce a benefit.
func (p Promotion) HasTargets() bool {
	for _, e := range p.Scope {
		if e.Role == RoleTarget {
			return true
		}
	}
	return false
}

// SortForEvaluation orders promotions by priority ascending with creation
// time as the tie-break, the canonical evaluation order.
func SortForEvaluation(promotions []Promotion) {
	sort.SliceStable(promotions, func(i, j int) bool {
		if promotions[i].Priority != promotions[j].Priority {
			return promotions[i].Priority < promotions[j].Priority
		}
		return promotions[i].CreatedAt.Before(promotions[j].CreatedAt)
	})
}
