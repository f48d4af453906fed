// Package notify resolves recipients for workflow events and hands the
// resulting emails to the background queue.
package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgi-trading/procure/internal/shared"
)

// UserDirectory answers recipient lookups from the users table.
type UserDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory constructs a directory.
func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

// RecipientOf returns the email address and role tier of one user.
func (d *UserDirectory) RecipientOf(ctx context.Context, userID int64) (Recipient, error) {
	var rec Recipient
	var role string
	err := d.pool.QueryRow(ctx, `SELECT email, role FROM users WHERE id = $1`, userID).Scan(&rec.Email, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, shared.ErrNotFound
	}
	rec.Role = shared.Role(role)
	return rec, err
}

// PrivilegedEmails returns the addresses of every manager-tier user.
func (d *UserDirectory) PrivilegedEmails(ctx context.Context) ([]string, error) {
	privileged := shared.PrivilegedRoles()
	roles := make([]string, 0, len(privileged))
	for _, r := range privileged {
		roles = append(roles, string(r))
	}
	rows, err := d.pool.Query(ctx, `SELECT email FROM users WHERE role = ANY($1) ORDER BY email`, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
