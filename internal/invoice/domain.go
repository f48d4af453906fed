package invoice

import (
	"time"

	"github.com/rgi-trading/procure/internal/lineitem"
)

// Status is the payment state of an invoice.
type Status string

const (
	// StatusOverdue means the invoice awaits payment.
	StatusOverdue Status = "overdue"
	// StatusPaid is terminal.
	StatusPaid Status = "paid"
)

// IsValid reports whether the status is a known state.
func (s Status) IsValid() bool {
	return s == StatusOverdue || s == StatusPaid
}

// Invoice is a frozen snapshot of a sales order at approval time. Lines,
// totals and billing details are copied so later edits to master data do
// not change what was billed.
type Invoice struct {
	ID             int64          `json:"id"`
	InvoiceNumber  string         `json:"invoice_number"`
	SalesOrderID   int64          `json:"sales_order_id"`
	ClientID       *int64         `json:"client_id,omitempty"`
	CompanyName    string         `json:"company_name"`
	BillingAddress string         `json:"billing_address,omitempty"`
	Lines          lineitem.Items `json:"lines"`
	Subtotal       float64        `json:"subtotal"`
	Tax            float64        `json:"tax"`
	GrandTotal     float64        `json:"grand_total"`
	Status         Status         `json:"status"`
	PaidDate       *time.Time     `json:"paid_date,omitempty"`
	CreatedBy      int64          `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ListInvoicesRequest filters the invoice listing.
type ListInvoicesRequest struct {
	Status       *Status `json:"status,omitempty"`
	SalesOrderID *int64  `json:"sales_order_id,omitempty"`
	Limit        int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset       int     `json:"offset" validate:"gte=0"`
}
