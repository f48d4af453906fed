package order

import (
	"time"

	"github.com/rgi-trading/procure/internal/lineitem"
)

// Status is the fulfillment state of a sales order.
type Status string

const (
	// StatusOngoing is the initial state, before any delivery.
	StatusOngoing Status = "ongoing"
	// StatusOnDelivery means at least one partial delivery was posted.
	StatusOnDelivery Status = "on-delivery"
	// StatusWaitingApproval means every line is fully shipped.
	StatusWaitingApproval Status = "waiting-approval"
	// StatusWaitingPayment means a manager approved the order; an invoice
	// exists against it.
	StatusWaitingPayment Status = "waiting-payment"
	// StatusDone is terminal, reached when the invoice is paid.
	StatusDone Status = "done"
)

// IsValid reports whether the status is a known state.
func (s Status) IsValid() bool {
	switch s {
	case StatusOngoing, StatusOnDelivery, StatusWaitingApproval, StatusWaitingPayment, StatusDone:
		return true
	default:
		return false
	}
}

// AcceptsDeliveries reports whether delivery orders may still be posted.
func (s Status) AcceptsDeliveries() bool {
	return s == StatusOngoing || s == StatusOnDelivery
}

// SalesOrder is a confirmed order, optionally derived from a quotation.
type SalesOrder struct {
	ID             int64          `json:"id"`
	OrderNumber    string         `json:"order_number"`
	QuotationID    *int64         `json:"quotation_id,omitempty"`
	ClientID       *int64         `json:"client_id,omitempty"`
	CompanyName    string         `json:"company_name"`
	BillingAddress string         `json:"billing_address,omitempty"`
	Lines          lineitem.Items `json:"lines"`
	Subtotal       float64        `json:"subtotal"`
	Tax            float64        `json:"tax"`
	GrandTotal     float64        `json:"grand_total"`
	Status         Status         `json:"status"`
	CreatedBy      int64          `json:"created_by"`
	UpdatedBy      int64          `json:"updated_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CreateOrderRequest is the payload for opening a sales order directly.
type CreateOrderRequest struct {
	QuotationID    *int64               `json:"quotation_id,omitempty" validate:"omitempty,gt=0"`
	ClientID       *int64               `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	CompanyName    string               `json:"company_name" validate:"required_without=QuotationID,omitempty,max=200"`
	BillingAddress string               `json:"billing_address,omitempty"`
	TaxPercent     float64              `json:"tax_percent" validate:"gte=0,lte=100"`
	Lines          []CreateOrderLineReq `json:"lines" validate:"required_without=QuotationID,omitempty,min=1,dive"`
}

// CreateOrderLineReq is a priced order line.
type CreateOrderLineReq struct {
	GoodID      *int64  `json:"good_id,omitempty" validate:"omitempty,gt=0"`
	Name        string  `json:"name" validate:"required_without=GoodID,max=200"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// ListOrdersRequest filters the sales-order listing.
type ListOrdersRequest struct {
	Status *Status `json:"status,omitempty"`
	Limit  int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset int     `json:"offset" validate:"gte=0"`
}
