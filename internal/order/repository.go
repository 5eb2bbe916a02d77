package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"orderdesk-be/internal/db"
	"orderdesk-be/internal/logger"
	"orderdesk-be/internal/metrics"
	"orderdesk-be/internal/totals"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	ItemLookup

	ListOrders(ctx context.Context, filter Filter) ([]*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	CreateOrder(ctx context.Context, o *Order, lines []LineItemInput) (*Order, error)
	ReplaceOrder(ctx context.Context, o *Order, lines []LineItemInput) (*Order, error)
	DeleteOrder(ctx context.Context, id int64) error

	AddLineItem(ctx context.Context, orderID int64, line LineItemInput) (*Order, error)
	UpdateLineItemQuantity(ctx context.Context, orderID int64, line LineItemInput) (*Order, error)
	RemoveLineItem(ctx context.Context, orderID, itemID int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ExistingItemIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM items WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}

func (r *repository) ListOrders(ctx context.Context, filter Filter) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListOrders"),
	)

	query := `
		SELECT id, status, table_number, total_price, created_at
		FROM orders
	`
	args := []any{}
	if filter.Status != nil {
		query += " WHERE status = $1"
		args = append(args, *filter.Status)
	}
	query += " ORDER BY created_at, id"

	orders := []*Order{}
	err := db.WithTxOptions(ctx, r.db, db.ReadSnapshot, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var o Order
			if err := rows.Scan(&o.ID, &o.Status, &o.TableNumber, &o.TotalPrice, &o.CreatedAt); err != nil {
				return err
			}
			orders = append(orders, &o)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(orders) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(orders))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		itemsByOrder, err := fetchLineItems(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, o := range orders {
			o.Items = itemsByOrder[o.ID]
		}
		return nil
	})
	if err != nil {
		log.Error("failed to list orders", zap.Error(err))
		return nil, err
	}

	log.Debug("list orders success", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var o *Order
	err := db.WithTxOptions(ctx, r.db, db.ReadSnapshot, func(tx *sql.Tx) error {
		var err error
		o, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOrder inserts the order row, then all its line items as one batch,
// then recomputes the total. Nothing is visible unless every step succeeds.
func (r *repository) CreateOrder(ctx context.Context, o *Order, lines []LineItemInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.Int("table_number", o.TableNumber),
		zap.Int("item_count", len(lines)),
	)

	var created *Order
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (status, table_number, total_price)
			VALUES ($1, $2, 0)
			RETURNING id
		`, o.Status, o.TableNumber).Scan(&id)
		if err != nil {
			return err
		}

		if err := checkStock(ctx, tx, lines); err != nil {
			return err
		}
		if err := insertLineItems(ctx, tx, id, lines); err != nil {
			return err
		}
		if _, err := totals.Recompute(ctx, tx, id); err != nil {
			return err
		}

		created, err = getOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		logWriteError(log, "create order", err)
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	metrics.LineItemsWritten.Add(uint64(len(lines)))
	metrics.Recomputations.Inc()
	log.Info("order created",
		zap.Int64("order_id", created.ID),
		zap.Int("total_price", created.TotalPrice),
	)
	return created, nil
}

// ReplaceOrder overwrites the order's fields and its entire set of line items.
func (r *repository) ReplaceOrder(ctx context.Context, o *Order, lines []LineItemInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ReplaceOrder"),
		zap.Int64("order_id", o.ID),
		zap.Int("item_count", len(lines)),
	)

	var updated *Order
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockOrder(ctx, tx, o.ID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $1, table_number = $2
			WHERE id = $3
		`, o.Status, o.TableNumber, o.ID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
			return err
		}
		if err := checkStock(ctx, tx, lines); err != nil {
			return err
		}
		if err := insertLineItems(ctx, tx, o.ID, lines); err != nil {
			return err
		}
		if _, err := totals.Recompute(ctx, tx, o.ID); err != nil {
			return err
		}

		updated, err = getOrder(ctx, tx, o.ID)
		return err
	})
	if err != nil {
		logWriteError(log, "replace order", err)
		return nil, err
	}

	metrics.LineItemsWritten.Add(uint64(len(lines)))
	metrics.Recomputations.Inc()
	log.Info("order replaced", zap.Int("total_price", updated.TotalPrice))
	return updated, nil
}

// DeleteOrder removes the order's line items and then the order itself.
func (r *repository) DeleteOrder(ctx context.Context, id int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DeleteOrder"),
		zap.Int64("order_id", id),
	)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockOrder(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
		return err
	})
	if err != nil {
		logWriteError(log, "delete order", err)
		return err
	}

	metrics.OrdersDeleted.Inc()
	log.Info("order deleted")
	return nil
}

func (r *repository) AddLineItem(ctx context.Context, orderID int64, line LineItemInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "AddLineItem"),
		zap.Int64("order_id", orderID),
		zap.Int64("item_id", line.ItemID),
	)

	var updated *Order
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}

		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM order_items WHERE order_id = $1 AND item_id = $2)
		`, orderID, line.ItemID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: item %d is already in order %d", ErrItemAlreadyInOrder, line.ItemID, orderID)
		}

		if err := checkStock(ctx, tx, []LineItemInput{line}); err != nil {
			return err
		}
		if err := insertLineItems(ctx, tx, orderID, []LineItemInput{line}); err != nil {
			return err
		}
		if _, err := totals.Recompute(ctx, tx, orderID); err != nil {
			return err
		}

		updated, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		logWriteError(log, "add line item", err)
		return nil, err
	}

	metrics.LineItemsWritten.Inc()
	metrics.Recomputations.Inc()
	log.Info("line item added", zap.Int("total_price", updated.TotalPrice))
	return updated, nil
}

func (r *repository) UpdateLineItemQuantity(ctx context.Context, orderID int64, line LineItemInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateLineItemQuantity"),
		zap.Int64("order_id", orderID),
		zap.Int64("item_id", line.ItemID),
		zap.Int("quantity", line.Quantity),
	)

	var updated *Order
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE order_items
			SET quantity = $1
			WHERE order_id = $2 AND item_id = $3
		`, line.Quantity, orderID, line.ItemID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: item %d is not in order %d", ErrLineItemNotFound, line.ItemID, orderID)
		}

		if err := checkStock(ctx, tx, []LineItemInput{line}); err != nil {
			return err
		}
		if _, err := totals.Recompute(ctx, tx, orderID); err != nil {
			return err
		}

		updated, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		logWriteError(log, "update line item", err)
		return nil, err
	}

	metrics.LineItemsWritten.Inc()
	metrics.Recomputations.Inc()
	log.Info("line item quantity updated", zap.Int("total_price", updated.TotalPrice))
	return updated, nil
}

func (r *repository) RemoveLineItem(ctx context.Context, orderID, itemID int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "RemoveLineItem"),
		zap.Int64("order_id", orderID),
		zap.Int64("item_id", itemID),
	)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM order_items
			WHERE order_id = $1 AND item_id = $2
		`, orderID, itemID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: item %d is not in order %d", ErrLineItemNotFound, itemID, orderID)
		}

		_, err = totals.Recompute(ctx, tx, orderID)
		return err
	})
	if err != nil {
		logWriteError(log, "remove line item", err)
		return err
	}

	metrics.Recomputations.Inc()
	log.Info("line item removed")
	return nil
}

// lockOrder takes the row lock that serialises writers of one order.
func lockOrder(ctx context.Context, tx *sql.Tx, id int64) error {
	var locked int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	return err
}

// checkStock enforces the stock ceiling for lines about to be written.
func checkStock(ctx context.Context, tx *sql.Tx, lines []LineItemInput) error {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, amount
		FROM items
		WHERE id = ANY($1)
		FOR SHARE
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	type stock struct {
		name   string
		amount *int
	}
	byID := make(map[int64]stock, len(ids))
	for rows.Next() {
		var id int64
		var s stock
		if err := rows.Scan(&id, &s.name, &s.amount); err != nil {
			return err
		}
		byID[id] = s
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range lines {
		s, ok := byID[l.ItemID]
		if !ok {
			return fmt.Errorf("%w: item %d does not exist", ErrItemNotFound, l.ItemID)
		}
		if s.amount != nil && l.Quantity > *s.amount {
			return fmt.Errorf("%w: quantity %d exceeds available amount %d for item %q",
				ErrQuantityExceedsStock, l.Quantity, *s.amount, s.name)
		}
	}
	return nil
}

// insertLineItems writes all lines for one order in a single statement.
func insertLineItems(ctx context.Context, tx *sql.Tx, orderID int64, lines []LineItemInput) error {
	if len(lines) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO order_items (order_id, item_id, quantity) VALUES ")

	args := make([]any, 0, 1+2*len(lines))
	args = append(args, orderID)
	for i, l := range lines {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($1, $%d, $%d)", len(args)+1, len(args)+2)
		args = append(args, l.ItemID, l.Quantity)
	}

	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

func getOrder(ctx context.Context, q db.DBTX, id int64) (*Order, error) {
	var o Order
	err := q.QueryRowContext(ctx, `
		SELECT id, status, table_number, total_price, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.Status, &o.TableNumber, &o.TotalPrice, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	itemsByOrder, err := fetchLineItems(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	o.Items = itemsByOrder[id]
	return &o, nil
}

func fetchLineItems(ctx context.Context, q db.DBTX, orderIDs []int64) (map[int64][]LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT oi.order_id, i.id, i.name, i.price, oi.quantity
		FROM order_items oi
		JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]LineItem, len(orderIDs))
	for rows.Next() {
		var orderID int64
		var li LineItem
		if err := rows.Scan(&orderID, &li.ItemID, &li.Name, &li.Price, &li.Quantity); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], li)
	}
	return out, rows.Err()
}

func logWriteError(log *zap.Logger, action string, err error) {
	if IsValidation(err) || errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrLineItemNotFound) {
		log.Warn(action+" rejected", zap.Error(err))
		return
	}
	log.Error("failed to "+action, zap.Error(err))
}
