package item

import "math"

// Price and amount are stored as INT columns.
const (
	MaxNameLen        = 30
	MaxDescriptionLen = 200
	MinPrice          = 1
	MaxPrice          = math.MaxInt32
	MaxAmount         = math.MaxInt32
)

// Item is a menu entry. A nil Amount means unlimited stock.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Amount      *int   `json:"amount"`
}

// ItemInput is the write shape for creating or fully replacing an item.
type ItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Amount      *int   `json:"amount"`
}
