package rfq

import (
	"time"

	"github.com/rgi-trading/procure/internal/lineitem"
)

// Status is the RFQ lifecycle state.
type Status string

const (
	// StatusOpen permits edits by the requester or privileged roles.
	StatusOpen Status = "open"
	// StatusProcess freezes the RFQ once a quotation references it.
	StatusProcess Status = "process"
	// StatusSuccess is terminal, set when the derived invoice is paid.
	StatusSuccess Status = "success"
)

// IsValid reports whether the status is a known state.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusProcess, StatusSuccess:
		return true
	default:
		return false
	}
}

// Editable reports whether line items and the attachment may still change.
func (s Status) Editable() bool {
	return s == StatusOpen
}

// RFQ is a request for quotation raised by a requester.
type RFQ struct {
	ID            int64          `json:"id"`
	RequesterID   int64          `json:"requester_id"`
	CompanyName   string         `json:"company_name"`
	ContactName   string         `json:"contact_name"`
	ContactEmail  string         `json:"contact_email"`
	ContactPhone  string         `json:"contact_phone,omitempty"`
	Lines         lineitem.Items `json:"lines"`
	Status        Status         `json:"status"`
	AttachmentURL *string        `json:"attachment_url,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CreateRFQRequest is the payload for opening an RFQ.
type CreateRFQRequest struct {
	CompanyName   string             `json:"company_name" validate:"required,max=200"`
	ContactName   string             `json:"contact_name" validate:"required,max=200"`
	ContactEmail  string             `json:"contact_email" validate:"required,email"`
	ContactPhone  string             `json:"contact_phone,omitempty" validate:"omitempty,max=50"`
	AttachmentURL *string            `json:"attachment_url,omitempty" validate:"omitempty,url"`
	Lines         []CreateRFQLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateRFQLineReq is a single requested line: either a registered good or
// a free-text name.
type CreateRFQLineReq struct {
	GoodID      *int64  `json:"good_id,omitempty" validate:"omitempty,gt=0"`
	Name        string  `json:"name" validate:"required_without=GoodID,max=200"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
}

// UpdateRFQRequest carries partial edits while the RFQ is open.
type UpdateRFQRequest struct {
	CompanyName   *string             `json:"company_name,omitempty" validate:"omitempty,max=200"`
	ContactName   *string             `json:"contact_name,omitempty" validate:"omitempty,max=200"`
	ContactEmail  *string             `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone  *string             `json:"contact_phone,omitempty" validate:"omitempty,max=50"`
	AttachmentURL *string             `json:"attachment_url,omitempty" validate:"omitempty,url"`
	Lines         *[]CreateRFQLineReq `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

// ListRFQsRequest filters the RFQ listing.
type ListRFQsRequest struct {
	RequesterID *int64  `json:"requester_id,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Limit       int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset      int     `json:"offset" validate:"gte=0"`
}
