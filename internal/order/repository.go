package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/shared"
)

// Repository provides PostgreSQL backed persistence for sales orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, order_number, quotation_id, client_id, company_name, billing_address, lines, subtotal, tax, grand_total, status, created_by, updated_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*SalesOrder, error) {
	var o SalesOrder
	var lines []byte
	var status string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.QuotationID, &o.ClientID, &o.CompanyName, &o.BillingAddress,
		&lines, &o.Subtotal, &o.Tax, &o.GrandTotal, &status, &o.CreatedBy, &o.UpdatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	o.Status = Status(status)
	o.Lines, err = lineitem.Unmarshal(lines)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts a sales order and returns its id.
func (r *Repository) Create(ctx context.Context, record SalesOrder) (int64, error) {
	lines, err := lineitem.Marshal(record.Lines)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO sales_orders (order_number, quotation_id, client_id, company_name, billing_address, lines, subtotal, tax, grand_total, status, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING id`,
		record.OrderNumber, record.QuotationID, record.ClientID, record.CompanyName, record.BillingAddress,
		lines, record.Subtotal, record.Tax, record.GrandTotal, string(record.Status), record.CreatedBy,
	).Scan(&id)
	return id, err
}

// Get retrieves a sales order by id.
func (r *Repository) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1`, id)
	return scanOrder(row)
}

// UpdateStatus moves the order into next only from one of the expected
// current states.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from []Status, next Status, actorID int64) error {
	states := make([]string, 0, len(from))
	for _, s := range from {
		states = append(states, string(s))
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE sales_orders
		SET status = $3, updated_by = $4, updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)`,
		id, states, string(next), actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidTransition
	}
	return nil
}

// List returns sales orders matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM sales_orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		(*string)(req.Status), limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SalesOrder
	for rows.Next() {
		record, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}
