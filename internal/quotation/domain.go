package quotation

import (
	"time"

	"github.com/rgi-trading/procure/internal/lineitem"
)

// Status is the negotiation state of a quotation.
type Status string

const (
	// StatusWaiting is the initial state after creation.
	StatusWaiting Status = "waiting"
	// StatusNegotiation means management has countered and awaits the requester.
	StatusNegotiation Status = "negotiation"
	// StatusRenegotiation means the requester countered and awaits review.
	StatusRenegotiation Status = "renegotiation"
	// StatusRejected is a terminal dead end.
	StatusRejected Status = "rejected"
	// StatusProcess accepts the quotation and freezes it; a sales order is
	// created against it downstream.
	StatusProcess Status = "process"
	// StatusSuccess is terminal, set when the derived invoice is paid.
	StatusSuccess Status = "success"
)

// IsValid reports whether the status is a known state.
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusNegotiation, StatusRenegotiation, StatusRejected, StatusProcess, StatusSuccess:
		return true
	default:
		return false
	}
}

// Frozen reports whether goods and monetary fields are immutable.
func (s Status) Frozen() bool {
	return s == StatusProcess || s == StatusRejected || s == StatusSuccess
}

// Quotation is a priced proposal, optionally answering an RFQ.
type Quotation struct {
	ID               int64          `json:"id"`
	RFQID            *int64         `json:"rfq_id,omitempty"`
	RequesterID      int64          `json:"requester_id"`
	Lines            lineitem.Items `json:"lines"`
	Subtotal         float64        `json:"subtotal"`
	Tax              float64        `json:"tax"`
	GrandTotal       float64        `json:"grand_total"`
	NegotiationRound int            `json:"negotiation_round"`
	Status           Status         `json:"status"`
	CreatedBy        int64          `json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// CreateQuotationRequest is the payload for issuing a quotation.
type CreateQuotationRequest struct {
	RFQID      *int64                   `json:"rfq_id,omitempty" validate:"omitempty,gt=0"`
	TaxPercent float64                  `json:"tax_percent" validate:"gte=0,lte=100"`
	Lines      []CreateQuotationLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateQuotationLineReq is a priced line.
type CreateQuotationLineReq struct {
	GoodID      *int64  `json:"good_id,omitempty" validate:"omitempty,gt=0"`
	Name        string  `json:"name" validate:"required_without=GoodID,max=200"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// UpdateQuotationRequest carries a content edit (goods, prices, tax). An
// explicit status change travels through SetStatusRequest instead.
type UpdateQuotationRequest struct {
	TaxPercent *float64                  `json:"tax_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	Lines      *[]CreateQuotationLineReq `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

// SetStatusRequest is a privileged explicit status update.
type SetStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// ListQuotationsRequest filters the quotation listing.
type ListQuotationsRequest struct {
	RequesterID *int64  `json:"requester_id,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Limit       int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset      int     `json:"offset" validate:"gte=0"`
}
