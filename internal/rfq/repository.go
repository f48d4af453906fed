package rfq

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/shared"
)

// Repository provides PostgreSQL backed persistence for RFQs. Line items
// are stored as one serialized payload per record and parsed on read.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const rfqColumns = `id, requester_id, company_name, contact_name, contact_email, contact_phone, lines, status, attachment_url, created_at, updated_at`

func scanRFQ(row pgx.Row) (*RFQ, error) {
	var r RFQ
	var lines []byte
	var status string
	err := row.Scan(&r.ID, &r.RequesterID, &r.CompanyName, &r.ContactName, &r.ContactEmail, &r.ContactPhone,
		&lines, &status, &r.AttachmentURL, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	r.Status = Status(status)
	r.Lines, err = lineitem.Unmarshal(lines)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new RFQ and returns its id.
func (r *Repository) Create(ctx context.Context, record RFQ) (int64, error) {
	lines, err := lineitem.Marshal(record.Lines)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO rfqs (requester_id, company_name, contact_name, contact_email, contact_phone, lines, status, attachment_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		record.RequesterID, record.CompanyName, record.ContactName, record.ContactEmail, record.ContactPhone,
		lines, string(record.Status), record.AttachmentURL,
	).Scan(&id)
	return id, err
}

// Get retrieves an RFQ by id.
func (r *Repository) Get(ctx context.Context, id int64) (*RFQ, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rfqColumns+` FROM rfqs WHERE id = $1`, id)
	return scanRFQ(row)
}

// Update rewrites the mutable fields of an open RFQ.
func (r *Repository) Update(ctx context.Context, record RFQ) error {
	lines, err := lineitem.Marshal(record.Lines)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE rfqs
		SET company_name = $2, contact_name = $3, contact_email = $4, contact_phone = $5,
		    lines = $6, attachment_url = $7, updated_at = NOW()
		WHERE id = $1`,
		record.ID, record.CompanyName, record.ContactName, record.ContactEmail, record.ContactPhone,
		lines, record.AttachmentURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateStatus moves the RFQ into next only when it currently holds from.
// The conditional write keeps the open → process freeze race-free.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, next Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rfqs SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, string(from), string(next))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidTransition
	}
	return nil
}

// List returns RFQs matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListRFQsRequest) ([]RFQ, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+rfqColumns+`
		FROM rfqs
		WHERE ($1::bigint IS NULL OR requester_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		req.RequesterID, (*string)(req.Status), limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RFQ
	for rows.Next() {
		record, err := scanRFQ(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}
