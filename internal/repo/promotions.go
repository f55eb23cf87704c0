package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/foodflow/pos-api/internal/promo"
)

// PromotionsRepo persists promotion rules. Triggers and the strategy are
// stored as kind-tagged JSONB blobs and re-validated on every load.
type PromotionsRepo struct {
	DB Querier
}

// Create inserts a promotion for the context local.
func (r PromotionsRepo) Create(ctx context.Context, p promo.Promotion) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	strategy, err := promo.EncodeStrategy(p.Strategy)
	if err != nil {
		return err
	}
	triggers, err := promo.EncodeTriggers(p.Triggers)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO promotions (id, local_id, name, description, priority, active, strategy, triggers, scope, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgUUID(p.ID), lid, p.Name, p.Description, p.Priority, p.Active, strategy, triggers, p.Scope, p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// Update rewrites a promotion's rule definition in place.
func (r PromotionsRepo) Update(ctx context.Context, p promo.Promotion) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	strategy, err := promo.EncodeStrategy(p.Strategy)
	if err != nil {
		return err
	}
	triggers, err := promo.EncodeTriggers(p.Triggers)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE promotions
		SET name = $3, description = $4, priority = $5, active = $6, strategy = $7, triggers = $8, scope = $9
		WHERE id = $1 AND local_id = $2`,
		pgUUID(p.ID), lid, p.Name, p.Description, p.Priority, p.Active, strategy, triggers, p.Scope)
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

// SetActive toggles a promotion without touching its definition.
func (r PromotionsRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE promotions SET active = $3
		WHERE id = $1 AND local_id = $2`, pgUUID(id), lid, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a promotion permanently.
func (r PromotionsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		DELETE FROM promotions WHERE id = $1 AND local_id = $2`, pgUUID(id), lid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches one promotion by id.
func (r PromotionsRepo) Get(ctx context.Context, id uuid.UUID) (promo.Promotion, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return promo.Promotion{}, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, priority, active, strategy, triggers, scope, created_at
		FROM promotions
		WHERE id = $1 AND local_id = $2`, pgUUID(id), lid)
	if err != nil {
		return promo.Promotion{}, err
	}
	defer rows.Close()
	out, err := scanPromotions(rows, fromPGUUID(lid))
	if err != nil {
		return promo.Promotion{}, err
	}
	if len(out) == 0 {
		return promo.Promotion{}, ErrNotFound
	}
	return out[0], nil
}

// List returns every promotion owned by the context local, priority ascending.
func (r PromotionsRepo) List(ctx context.Context) ([]promo.Promotion, error) {
	return r.list(ctx, false)
}

// ListActive returns only active promotions, the engine's input set.
func (r PromotionsRepo) ListActive(ctx context.Context) ([]promo.Promotion, error) {
	return r.list(ctx, true)
}

func (r PromotionsRepo) list(ctx context.Context, activeOnly bool) ([]promo.Promotion, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, priority, active, strategy, triggers, scope, created_at
		FROM promotions
		WHERE local_id = $1 AND (NOT $2::bool OR active)
		ORDER BY priority, created_at`, lid, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPromotions(rows, fromPGUUID(lid))
}

func scanPromotions(rows pgx.Rows, localID uuid.UUID) ([]promo.Promotion, error) {
	var out []promo.Promotion
	for rows.Next() {
		var (
			id                 pgtype.UUID
			strategy, triggers []byte
			p                  promo.Promotion
		)
		if err := rows.Scan(&id, &p.Name, &p.Description, &p.Priority, &p.Active, &strategy, &triggers, &p.Scope, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ID = fromPGUUID(id)
		p.LocalID = localID
		var err error
		if p.Strategy, err = promo.DecodeStrategy(strategy); err != nil {
			return nil, err
		}
		if p.Triggers, err = promo.DecodeTriggers(triggers); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
