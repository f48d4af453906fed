package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgi-trading/procure/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the registries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapWriteErr(entity string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s code already taken", shared.ErrAlreadyExists, entity)
	}
	return err
}

const clientColumns = `id, code, name, address, email, phone, document_url, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.Email, &c.Phone, &c.DocumentURL, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClient inserts a client and returns its id.
func (r *Repository) CreateClient(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (code, name, address, email, phone, document_url)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.Code, c.Name, c.Address, c.Email, c.Phone, c.DocumentURL).Scan(&id)
	return id, mapWriteErr("client", err)
}

// GetClient retrieves a client by id.
func (r *Repository) GetClient(ctx context.Context, id int64) (*Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

// UpdateClient rewrites a client.
func (r *Repository) UpdateClient(ctx context.Context, id int64, c Client) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clients SET code = $2, name = $3, address = $4, email = $5, phone = $6, document_url = $7, updated_at = NOW()
		WHERE id = $1`,
		id, c.Code, c.Name, c.Address, c.Email, c.Phone, c.DocumentURL)
	if err != nil {
		return mapWriteErr("client", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListClients returns clients matching the filter.
func (r *Repository) ListClients(ctx context.Context, f ListFilter) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE ($1 = '' OR code ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
		ORDER BY name LIMIT $2 OFFSET $3`,
		f.Search, defaultLimit(f.Limit), f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

const supplierColumns = clientColumns

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.Email, &s.Phone, &s.DocumentURL, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSupplier inserts a supplier and returns its id.
func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (code, name, address, email, phone, document_url)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		s.Code, s.Name, s.Address, s.Email, s.Phone, s.DocumentURL).Scan(&id)
	return id, mapWriteErr("supplier", err)
}

// GetSupplier retrieves a supplier by id.
func (r *Repository) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
}

// UpdateSupplier rewrites a supplier.
func (r *Repository) UpdateSupplier(ctx context.Context, id int64, s Supplier) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE suppliers SET code = $2, name = $3, address = $4, email = $5, phone = $6, document_url = $7, updated_at = NOW()
		WHERE id = $1`,
		id, s.Code, s.Name, s.Address, s.Email, s.Phone, s.DocumentURL)
	if err != nil {
		return mapWriteErr("supplier", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListSuppliers returns suppliers matching the filter.
func (r *Repository) ListSuppliers(ctx context.Context, f ListFilter) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+supplierColumns+` FROM suppliers
		WHERE ($1 = '' OR code ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
		ORDER BY name LIMIT $2 OFFSET $3`,
		f.Search, defaultLimit(f.Limit), f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

const goodColumns = `id, code, name, description, unit, price, created_at, updated_at`

func scanGood(row pgx.Row) (*Good, error) {
	var g Good
	err := row.Scan(&g.ID, &g.Code, &g.Name, &g.Description, &g.Unit, &g.Price, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGood inserts a catalogue entry and returns its id.
func (r *Repository) CreateGood(ctx context.Context, g Good) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO goods (code, name, description, unit, price)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		g.Code, g.Name, g.Description, g.Unit, g.Price).Scan(&id)
	return id, mapWriteErr("good", err)
}

// GetGood retrieves a catalogue entry by id.
func (r *Repository) GetGood(ctx context.Context, id int64) (*Good, error) {
	return scanGood(r.pool.QueryRow(ctx, `SELECT `+goodColumns+` FROM goods WHERE id = $1`, id))
}

// UpdateGood rewrites a catalogue entry.
func (r *Repository) UpdateGood(ctx context.Context, id int64, g Good) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE goods SET code = $2, name = $3, description = $4, unit = $5, price = $6, updated_at = NOW()
		WHERE id = $1`,
		id, g.Code, g.Name, g.Description, g.Unit, g.Price)
	if err != nil {
		return mapWriteErr("good", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListGoods returns catalogue entries matching the filter.
func (r *Repository) ListGoods(ctx context.Context, f ListFilter) ([]Good, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+goodColumns+` FROM goods
		WHERE ($1 = '' OR code ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
		ORDER BY name LIMIT $2 OFFSET $3`,
		f.Search, defaultLimit(f.Limit), f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Good
	for rows.Next() {
		g, err := scanGood(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
