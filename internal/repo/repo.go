// Package repo holds the hand-written pgx repositories. Every query is
// scoped by local_id; the identifier is taken from the request context so a
// handler cannot accidentally read another venue's rows.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/foodflow/pos-api/internal/local"
	"github.com/foodflow/pos-api/internal/money"
)

var (
	// ErrLocalMissing indicates the local identifier was not found in context.
	ErrLocalMissing = errors.New("local missing from context")
	// ErrNotFound indicates the requested row does not exist for this local.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation (duplicate name or label).
	ErrConflict = errors.New("already exists")
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx, so the
// same repository methods run standalone or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func localUUIDFromContext(ctx context.Context) (pgtype.UUID, error) {
	id, ok := local.From(ctx)
	if !ok {
		return pgtype.UUID{}, ErrLocalMissing
	}
	return pgUUID(id), nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgUUID(*id)
}

func fromPGUUID(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}

func fromPGUUIDPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

// moneyParam passes an amount to postgres as text; pgx coerces it into the
// NUMERIC column without any float round trip.
func moneyParam(m money.Money) string {
	return m.String()
}

func numericToMoney(n pgtype.Numeric) (money.Money, error) {
	if !n.Valid {
		return money.Zero(), nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return money.Money{}, fmt.Errorf("non-finite numeric value")
	}
	return money.FromDecimal(decimal.NewFromBigInt(n.Int, n.Exp)), nil
}

func numericToMoneyPtr(n pgtype.Numeric) (*money.Money, error) {
	if !n.Valid {
		return nil, nil
	}
	m, err := numericToMoney(n)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// uniqueConstraint returns the name of the violated unique constraint, or ""
// when the error is not a unique violation.
func uniqueConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
