package order

import "time"

// ReadOrder is the full read view of an order, including its line items.
type ReadOrder struct {
	ID          int64          `json:"id"`
	Status      Status         `json:"status"`
	TableNumber int            `json:"table_number"`
	TotalPrice  int            `json:"total_price"`
	CreatedAt   time.Time      `json:"created_at"`
	Items       []ReadLineItem `json:"items"`
}

type ReadLineItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Quantity int    `json:"quantity"`
}

// ShortOrder is the list view without line items.
type ShortOrder struct {
	ID          int64  `json:"id"`
	TableNumber int    `json:"table_number"`
	TotalPrice  int    `json:"total_price"`
	Status      Status `json:"status"`
}

func ToReadOrder(o *Order) *ReadOrder {
	if o == nil {
		return nil
	}

	items := make([]ReadLineItem, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, ReadLineItem{
			ID:       li.ItemID,
			Name:     li.Name,
			Price:    li.Price,
			Quantity: li.Quantity,
		})
	}

	return &ReadOrder{
		ID:          o.ID,
		Status:      o.Status,
		TableNumber: o.TableNumber,
		TotalPrice:  o.TotalPrice,
		CreatedAt:   o.CreatedAt,
		Items:       items,
	}
}

func ToShortOrder(o *Order) *ShortOrder {
	if o == nil {
		return nil
	}
	return &ShortOrder{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		TotalPrice:  o.TotalPrice,
		Status:      o.Status,
	}
}
