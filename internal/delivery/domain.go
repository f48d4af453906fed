package delivery

import (
	"time"

	"github.com/rgi-trading/procure/internal/lineitem"
)

// DeliveryOrder is an immutable shipment record against a sales order.
// Corrections are made by posting a further delivery, never by editing.
type DeliveryOrder struct {
	ID             int64          `json:"id"`
	DeliveryNumber string         `json:"delivery_number"`
	OrderID        int64          `json:"order_id"`
	Lines          lineitem.Items `json:"lines"`
	DeliveryDate   time.Time      `json:"delivery_date"`
	VehicleNumber  string         `json:"vehicle_number,omitempty"`
	DriverName     string         `json:"driver_name,omitempty"`
	Note           string         `json:"note,omitempty"`
	CreatedBy      int64          `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
}

// CreateDeliveryRequest is the payload for posting a shipment.
type CreateDeliveryRequest struct {
	OrderID       int64                   `json:"order_id" validate:"required,gt=0"`
	DeliveryDate  *time.Time              `json:"delivery_date,omitempty"`
	VehicleNumber string                  `json:"vehicle_number,omitempty" validate:"max=20"`
	DriverName    string                  `json:"driver_name,omitempty" validate:"max=100"`
	Note          string                  `json:"note,omitempty" validate:"max=500"`
	Lines         []CreateDeliveryLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateDeliveryLineReq is one shipped quantity. It must reference a line
// already present on the sales order.
type CreateDeliveryLineReq struct {
	GoodID   *int64  `json:"good_id,omitempty" validate:"omitempty,gt=0"`
	Name     string  `json:"name" validate:"required_without=GoodID,max=200"`
	Unit     string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

// ListDeliveriesRequest filters the delivery listing.
type ListDeliveriesRequest struct {
	OrderID *int64 `json:"order_id,omitempty"`
	Limit   int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset  int    `json:"offset" validate:"gte=0"`
}
