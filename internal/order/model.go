package order

import (
	"encoding/json"
	"math"
	"time"
)

type Status string

const (
	StatusPaid    Status = "PAID"
	StatusPending Status = "PENDING"
	StatusReady   Status = "READY"
)

const (
	MinTableNumber = 1
	MaxTableNumber = 50
	MinQuantity    = 1
	MaxQuantity    = math.MaxInt32
)

// Order is a table's order. TotalPrice is derived from Items and is only
// ever written by the totals package.
type Order struct {
	ID          int64
	Status      Status
	TableNumber int
	TotalPrice  int
	CreatedAt   time.Time
	Items       []LineItem
}

// LineItem is one order_items row joined with its item.
type LineItem struct {
	ItemID   int64
	Name     string
	Price    int
	Quantity int
}

// LineItemInput is a validated {id, quantity} pair.
type LineItemInput struct {
	ItemID   int64
	Quantity int
}

// WriteOrderInput is the body of create and full-replacement requests.
// Items is kept raw so each entry's shape can be checked.
type WriteOrderInput struct {
	TableNumber *int            `json:"table_number"`
	Status      *string         `json:"status"`
	Items       json.RawMessage `json:"items"`
}

type Filter struct {
	Status *Status
}

// LineTotal is Σ quantity × price over the order's loaded line items.
func (o *Order) LineTotal() int {
	total := 0
	for _, li := range o.Items {
		total += li.Quantity * li.Price
	}
	return total
}
