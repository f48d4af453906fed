package docnum

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx so allocation can
// join the caller's transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Allocator hands out the next number for a (document type, year) pair.
// The counter lives in document_counters and is advanced with a single
// atomic upsert, so sequences stay gapless and unique under concurrency.
type Allocator struct {
	pool *pgxpool.Pool
}

// NewAllocator constructs an Allocator.
func NewAllocator(pool *pgxpool.Pool) *Allocator {
	return &Allocator{pool: pool}
}

const nextSQL = `
INSERT INTO document_counters (doc_type, year, value)
VALUES ($1, $2, 1)
ON CONFLICT (doc_type, year)
DO UPDATE SET value = document_counters.value + 1
RETURNING value`

// Next allocates and formats the next number for doc dated at.
func (a *Allocator) Next(ctx context.Context, doc DocType, at time.Time) (string, error) {
	return nextIn(ctx, a.pool, doc, at)
}

// NextIn allocates within an existing transaction, so a rolled-back
// document does not consume a number.
func (a *Allocator) NextIn(ctx context.Context, tx pgx.Tx, doc DocType, at time.Time) (string, error) {
	return nextIn(ctx, tx, doc, at)
}

func nextIn(ctx context.Context, q Querier, doc DocType, at time.Time) (string, error) {
	var value int
	if err := q.QueryRow(ctx, nextSQL, string(doc), at.Year()).Scan(&value); err != nil {
		return "", fmt.Errorf("docnum: allocate %s/%d: %w", doc, at.Year(), err)
	}
	return Format(doc, value, at), nil
}

// Seed initialises the counter for a (type, year) pair from pre-existing
// document numbers, skipping any that do not match the scheme. A counter
// that already exists is left untouched.
func (a *Allocator) Seed(ctx context.Context, doc DocType, year int, existing []string) error {
	max := MaxSequence(existing, doc, year)
	_, err := a.pool.Exec(ctx,
		`INSERT INTO document_counters (doc_type, year, value) VALUES ($1, $2, $3) ON CONFLICT (doc_type, year) DO NOTHING`,
		string(doc), year, max)
	if err != nil {
		return fmt.Errorf("docnum: seed %s/%d: %w", doc, year, err)
	}
	return nil
}
