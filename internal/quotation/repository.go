package quotation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/shared"
)

// Repository provides PostgreSQL backed persistence for quotations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const quotationColumns = `id, rfq_id, requester_id, lines, subtotal, tax, grand_total, negotiation_round, status, created_by, created_at, updated_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	var lines []byte
	var status string
	err := row.Scan(&q.ID, &q.RFQID, &q.RequesterID, &lines, &q.Subtotal, &q.Tax, &q.GrandTotal,
		&q.NegotiationRound, &status, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	q.Status = Status(status)
	q.Lines, err = lineitem.Unmarshal(lines)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Create inserts a quotation and returns its id.
func (r *Repository) Create(ctx context.Context, record Quotation) (int64, error) {
	lines, err := lineitem.Marshal(record.Lines)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO quotations (rfq_id, requester_id, lines, subtotal, tax, grand_total, negotiation_round, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		record.RFQID, record.RequesterID, lines, record.Subtotal, record.Tax, record.GrandTotal,
		record.NegotiationRound, string(record.Status), record.CreatedBy,
	).Scan(&id)
	return id, err
}

// Get retrieves a quotation by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id)
	return scanQuotation(row)
}

// UpdateContent rewrites goods and monetary fields, optionally moving the
// status in the same statement (the implicit negotiation → renegotiation
// hop). The write is conditional on the current status so a concurrent
// freeze cannot be overwritten.
func (r *Repository) UpdateContent(ctx context.Context, record Quotation, from Status) error {
	lines, err := lineitem.Marshal(record.Lines)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotations
		SET lines = $2, subtotal = $3, tax = $4, grand_total = $5, status = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7`,
		record.ID, lines, record.Subtotal, record.Tax, record.GrandTotal, string(record.Status), string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidTransition
	}
	return nil
}

// UpdateStatus moves the quotation from → next, applying the round delta
// atomically with the same conditional-write guard.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, next Status, roundDelta int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotations
		SET status = $3, negotiation_round = negotiation_round + $4, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(next), roundDelta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidTransition
	}
	return nil
}

// List returns quotations matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations
		WHERE ($1::bigint IS NULL OR requester_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		req.RequesterID, (*string)(req.Status), limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Quotation
	for rows.Next() {
		record, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}
