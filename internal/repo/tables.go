package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Table is a physical table (mesa) in the venue.
type Table struct {
	ID        uuid.UUID
	LocalID   uuid.UUID
	Label     string
	Active    bool
	CreatedAt time.Time

	// OpenOrderID is set when a session is currently open on this table.
	OpenOrderID *uuid.UUID
}

// TablesRepo persists venue tables.
type TablesRepo struct {
	DB Querier
}

// Create inserts a table for the context local.
func (r TablesRepo) Create(ctx context.Context, label string) (Table, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return Table{}, err
	}
	t := Table{ID: uuid.New(), LocalID: fromPGUUID(lid), Label: label, Active: true}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO venue_tables (id, local_id, label)
		VALUES ($1, $2, $3)
		RETURNING created_at`, pgUUID(t.ID), lid, label)
	if err := row.Scan(&t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Table{}, ErrConflict
		}
		return Table{}, err
	}
	return t, nil
}

// List returns the local's tables with their open session, if any.
func (r TablesRepo) List(ctx context.Context) ([]Table, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT t.id, t.label, t.active, t.created_at, o.id
		FROM venue_tables t
		LEFT JOIN orders o ON o.table_id = t.id AND o.status = 'OPEN'
		WHERE t.local_id = $1
		ORDER BY t.label`, lid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	localID := fromPGUUID(lid)
	var out []Table
	for rows.Next() {
		var (
			id, openOrder pgtype.UUID
			t             Table
		)
		if err := rows.Scan(&id, &t.Label, &t.Active, &t.CreatedAt, &openOrder); err != nil {
			return nil, err
		}
		t.ID = fromPGUUID(id)
		t.LocalID = localID
		t.OpenOrderID = fromPGUUIDPtr(openOrder)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get fetches one table by id.
func (r TablesRepo) Get(ctx context.Context, id uuid.UUID) (Table, error) {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return Table{}, err
	}
	t := Table{ID: id, LocalID: fromPGUUID(lid)}
	var openOrder pgtype.UUID
	row := r.DB.QueryRow(ctx, `
		SELECT t.label, t.active, t.created_at, o.id
		FROM venue_tables t
		LEFT JOIN orders o ON o.table_id = t.id AND o.status = 'OPEN'
		WHERE t.id = $1 AND t.local_id = $2`, pgUUID(id), lid)
	if err := row.Scan(&t.Label, &t.Active, &t.CreatedAt, &openOrder); err != nil {
		if err == pgx.ErrNoRows {
			return Table{}, ErrNotFound
		}
		return Table{}, err
	}
	t.OpenOrderID = fromPGUUIDPtr(openOrder)
	return t, nil
}

// SetActive retires or restores a table.
func (r TablesRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	lid, err := localUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE venue_tables SET active = $3
		WHERE id = $1 AND local_id = $2`, pgUUID(id), lid, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
