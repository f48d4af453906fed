// Package masterdata holds the registries the workflow documents refer to:
// clients being billed, suppliers being quoted, and the goods catalogue.
package masterdata

import "time"

// Client is a billed counterparty. DocumentURL points at externally stored
// paperwork and is treated as an opaque string.
type Client struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	DocumentURL string    `json:"document_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Supplier is a quoting counterparty.
type Supplier struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	DocumentURL string    `json:"document_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Good is a catalogue entry line items may reference by id.
type Good struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpsertClientRequest creates or rewrites a client.
type UpsertClientRequest struct {
	Code        string `json:"code" validate:"required,max=20"`
	Name        string `json:"name" validate:"required,max=200"`
	Address     string `json:"address,omitempty" validate:"max=500"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty" validate:"max=30"`
	DocumentURL string `json:"document_url,omitempty" validate:"max=500"`
}

// UpsertSupplierRequest creates or rewrites a supplier.
type UpsertSupplierRequest struct {
	Code        string `json:"code" validate:"required,max=20"`
	Name        string `json:"name" validate:"required,max=200"`
	Address     string `json:"address,omitempty" validate:"max=500"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty" validate:"max=30"`
	DocumentURL string `json:"document_url,omitempty" validate:"max=500"`
}

// UpsertGoodRequest creates or rewrites a catalogue entry.
type UpsertGoodRequest struct {
	Code        string  `json:"code" validate:"required,max=20"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description,omitempty" validate:"max=500"`
	Unit        string  `json:"unit,omitempty" validate:"max=20"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// ListFilter narrows registry listings by a case-insensitive search over
// code and name.
type ListFilter struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset int    `json:"offset" validate:"gte=0"`
}
