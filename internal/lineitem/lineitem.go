// Package lineitem holds the goods line-item representation shared by every
// workflow document. Each document persists its lines as one serialized
// ordered sequence; storage treats the payload as opaque, so the round trip
// deserialize → mutate → serialize must preserve order and every field.
package lineitem

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Item is a single goods line. GoodID references a registered good when
// present; free-text lines carry only a name.
type Item struct {
	GoodID      *int64  `json:"good_id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
}

// Key identifies the line for ledger aggregation: the good reference when
// present, otherwise the free-text name.
func (it Item) Key() string {
	if it.GoodID != nil {
		return "good:" + strconv.FormatInt(*it.GoodID, 10)
	}
	return "name:" + it.Name
}

// Subtotal returns quantity × price.
func (it Item) Subtotal() float64 {
	return it.Quantity * it.Price
}

// Items is the ordered sequence of lines on a document.
type Items []Item

// Total sums the line subtotals.
func (items Items) Total() float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// Marshal serializes the sequence for storage.
func Marshal(items Items) ([]byte, error) {
	if items == nil {
		items = Items{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("lineitem: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal parses a stored sequence. An empty payload yields an empty
// sequence rather than an error.
func Unmarshal(data []byte) (Items, error) {
	if len(data) == 0 {
		return Items{}, nil
	}
	var items Items
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("lineitem: unmarshal: %w", err)
	}
	if items == nil {
		items = Items{}
	}
	return items, nil
}
