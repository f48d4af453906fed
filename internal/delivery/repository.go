package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgi-trading/procure/internal/docnum"
	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/platform/db"
	"github.com/rgi-trading/procure/internal/shared"
)

// Repository provides PostgreSQL backed persistence for delivery orders.
// The delivery number is allocated inside the insert transaction so a
// failed insert never consumes a sequence value.
type Repository struct {
	pool      *pgxpool.Pool
	allocator *docnum.Allocator
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, allocator *docnum.Allocator) *Repository {
	return &Repository{pool: pool, allocator: allocator}
}

const deliveryColumns = `id, delivery_number, order_id, lines, delivery_date, vehicle_number, driver_name, note, created_by, created_at`

func scanDelivery(row pgx.Row) (*DeliveryOrder, error) {
	var d DeliveryOrder
	var lines []byte
	err := row.Scan(&d.ID, &d.DeliveryNumber, &d.OrderID, &lines, &d.DeliveryDate,
		&d.VehicleNumber, &d.DriverName, &d.Note, &d.CreatedBy, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	d.Lines, err = lineitem.Unmarshal(lines)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts the delivery with a freshly allocated number and returns
// its id.
func (r *Repository) Create(ctx context.Context, record DeliveryOrder) (int64, string, error) {
	lines, err := lineitem.Marshal(record.Lines)
	if err != nil {
		return 0, "", err
	}
	var id int64
	var number string
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		number, err = r.allocator.NextIn(ctx, tx, docnum.DocTypeDelivery, record.DeliveryDate)
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO delivery_orders (delivery_number, order_id, lines, delivery_date, vehicle_number, driver_name, note, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			number, record.OrderID, lines, record.DeliveryDate,
			record.VehicleNumber, record.DriverName, record.Note, record.CreatedBy,
		).Scan(&id)
	})
	if err != nil {
		return 0, "", fmt.Errorf("insert delivery order: %w", err)
	}
	return id, number, nil
}

// Get retrieves a delivery order by id.
func (r *Repository) Get(ctx context.Context, id int64) (*DeliveryOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM delivery_orders WHERE id = $1`, id)
	return scanDelivery(row)
}

// List returns delivery orders matching the filter, oldest first.
func (r *Repository) List(ctx context.Context, req ListDeliveriesRequest) ([]DeliveryOrder, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM delivery_orders
		WHERE ($1::BIGINT IS NULL OR order_id = $1)
		ORDER BY id
		LIMIT $2 OFFSET $3`,
		req.OrderID, limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryOrder
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ShippedLines returns the line set of each delivery posted against a
// sales order. Implements the fulfillment source of the order module.
func (r *Repository) ShippedLines(ctx context.Context, orderID int64) ([]lineitem.Items, error) {
	rows, err := r.pool.Query(ctx, `SELECT lines FROM delivery_orders WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lineitem.Items
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		items, err := lineitem.Unmarshal(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, items)
	}
	return out, rows.Err()
}
