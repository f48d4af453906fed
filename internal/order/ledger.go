package order

import (
	"github.com/rgi-trading/procure/internal/lineitem"
)

// LineFulfillment reports ordered vs. cumulatively shipped quantity for one
// sales-order line, keyed by good reference or free-text name.
type LineFulfillment struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Ordered   float64 `json:"ordered"`
	Shipped   float64 `json:"shipped"`
	Satisfied bool    `json:"satisfied"`
}

// Fulfillment is the goods-ledger view of a sales order.
type Fulfillment struct {
	Lines        []LineFulfillment `json:"lines"`
	FullyShipped bool              `json:"fully_shipped"`
}

// ComputeFulfillment aggregates shipped quantities across all delivery
// orders for a sales order. A line is satisfied when its ordered quantity
// is non-positive (vacuously) or cumulative shipped meets it. An order
// without line items is never fully shipped, so an empty order can not
// drift into approval.
func ComputeFulfillment(orderLines lineitem.Items, deliveries []lineitem.Items) Fulfillment {
	shipped := make(map[string]float64)
	for _, delivery := range deliveries {
		for _, item := range delivery {
			shipped[item.Key()] += item.Quantity
		}
	}

	result := Fulfillment{FullyShipped: len(orderLines) > 0}
	for _, line := range orderLines {
		key := line.Key()
		lf := LineFulfillment{
			Key:     key,
			Name:    line.Name,
			Ordered: line.Quantity,
			Shipped: shipped[key],
		}
		lf.Satisfied = lf.Ordered <= 0 || lf.Shipped >= lf.Ordered
		if !lf.Satisfied {
			result.FullyShipped = false
		}
		result.Lines = append(result.Lines, lf)
	}
	return result
}

// Remaining returns the undelivered quantity per line key. Delivery posting
// validates its requested quantities against this before persisting.
func Remaining(orderLines lineitem.Items, deliveries []lineitem.Items) map[string]float64 {
	remaining := make(map[string]float64, len(orderLines))
	for _, line := range orderLines {
		remaining[line.Key()] += line.Quantity
	}
	for _, delivery := range deliveries {
		for _, item := range delivery {
			remaining[item.Key()] -= item.Quantity
		}
	}
	return remaining
}
