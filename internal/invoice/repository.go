package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgi-trading/procure/internal/docnum"
	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/platform/db"
	"github.com/rgi-trading/procure/internal/shared"
)

// Repository provides PostgreSQL backed persistence for invoices. A unique
// constraint on sales_order_id enforces at most one invoice per order; the
// number allocation joins the insert transaction so a lost race never
// consumes a sequence value.
type Repository struct {
	pool      *pgxpool.Pool
	allocator *docnum.Allocator
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, allocator *docnum.Allocator) *Repository {
	return &Repository{pool: pool, allocator: allocator}
}

const invoiceColumns = `id, invoice_number, sales_order_id, client_id, company_name, billing_address, lines, subtotal, tax, grand_total, status, paid_date, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var lines []byte
	var status string
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.SalesOrderID, &inv.ClientID, &inv.CompanyName,
		&inv.BillingAddress, &lines, &inv.Subtotal, &inv.Tax, &inv.GrandTotal, &status,
		&inv.PaidDate, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	inv.Status = Status(status)
	inv.Lines, err = lineitem.Unmarshal(lines)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts the snapshot with a freshly allocated invoice number.
// When another request already invoiced the same sales order, the existing
// invoice is returned instead of an error.
func (r *Repository) Create(ctx context.Context, record Invoice) (*Invoice, error) {
	lines, err := lineitem.Marshal(record.Lines)
	if err != nil {
		return nil, err
	}
	var id int64
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		number, err := r.allocator.NextIn(ctx, tx, docnum.DocTypeInvoice, time.Now())
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO invoices (invoice_number, sales_order_id, client_id, company_name, billing_address, lines, subtotal, tax, grand_total, status, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
			number, record.SalesOrderID, record.ClientID, record.CompanyName, record.BillingAddress,
			lines, record.Subtotal, record.Tax, record.GrandTotal, string(StatusOverdue), record.CreatedBy,
		).Scan(&id)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_invoices_sales_order" {
			return r.GetBySalesOrder(ctx, record.SalesOrderID)
		}
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	return r.Get(ctx, id)
}

// Get retrieves an invoice by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

// GetBySalesOrder retrieves the invoice derived from a sales order.
func (r *Repository) GetBySalesOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE sales_order_id = $1`, orderID)
	return scanInvoice(row)
}

// List returns invoices matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	var status *string
	if req.Status != nil {
		s := string(*req.Status)
		status = &s
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE ($1::TEXT IS NULL OR status = $1)
		  AND ($2::BIGINT IS NULL OR sales_order_id = $2)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`,
		status, req.SalesOrderID, limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// CascadeResult reports which upstream records the payment closed.
type CascadeResult struct {
	SalesOrderID int64
	QuotationID  *int64
	RFQID        *int64
}

// PayCascade marks the invoice paid and closes its sales order, quotation
// and RFQ in a single transaction. The invoice and sales-order updates are
// guarded by their expected statuses; the quotation and RFQ flips tolerate
// records that were closed by other means.
func (r *Repository) PayCascade(ctx context.Context, id int64, paidDate time.Time, actorID int64) (*CascadeResult, error) {
	var res CascadeResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE invoices SET status = $2, paid_date = $3, updated_at = NOW()
			WHERE id = $1 AND status = $4
			RETURNING sales_order_id`,
			id, string(StatusPaid), paidDate, string(StatusOverdue),
		).Scan(&res.SalesOrderID)
		if errors.Is(err, pgx.ErrNoRows) {
			// Zero rows means either no such invoice or a status mismatch;
			// the caller needs to tell those apart.
			var current string
			err := tx.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1`, id).Scan(&current)
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
			}
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: invoice %d is %s, not awaiting payment", shared.ErrInvalidTransition, id, current)
		}
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE sales_orders SET status = 'done', updated_by = $2, updated_at = NOW()
			WHERE id = $1 AND status = 'waiting-payment'
			RETURNING quotation_id`,
			res.SalesOrderID, actorID,
		).Scan(&res.QuotationID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: sales order %d is not waiting payment", shared.ErrInvalidTransition, res.SalesOrderID)
		}
		if err != nil {
			return err
		}
		if res.QuotationID == nil {
			return nil
		}

		err = tx.QueryRow(ctx, `
			UPDATE quotations SET status = 'success', updated_at = NOW()
			WHERE id = $1 AND status = 'process'
			RETURNING rfq_id`,
			*res.QuotationID,
		).Scan(&res.RFQID)
		if errors.Is(err, pgx.ErrNoRows) {
			res.QuotationID = nil
			return nil
		}
		if err != nil {
			return err
		}
		if res.RFQID == nil {
			return nil
		}

		tag, err := tx.Exec(ctx, `
			UPDATE rfqs SET status = 'success', updated_at = NOW()
			WHERE id = $1 AND status = 'process'`,
			*res.RFQID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			res.RFQID = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
