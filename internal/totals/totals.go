// Package totals keeps orders.total_price consistent with order_items.
//
// Recompute must be called inside the same transaction as every write to
// order_items. It re-aggregates every association of the order and
// overwrites the stored total unconditionally.
package totals

import (
	"context"
	"fmt"

	"orderdesk-be/internal/db"
	"orderdesk-be/internal/logger"

	"go.uber.org/zap"
)

const sumQuery = `
	SELECT COALESCE(SUM(oi.quantity::bigint * i.price), 0)::bigint
	FROM order_items oi
	JOIN items i ON i.id = oi.item_id
	WHERE oi.order_id = $1
`

const writeQuery = `UPDATE orders SET total_price = $1 WHERE id = $2`

// Recompute sets the order's total_price to Σ quantity × item.price over
// its persisted line items and returns the new total. Callers count the
// recomputation once their transaction has committed.
func Recompute(ctx context.Context, q db.DBTX, orderID int64) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "totals"),
		zap.Int64("order_id", orderID),
	)

	var total int
	if err := q.QueryRowContext(ctx, sumQuery, orderID).Scan(&total); err != nil {
		log.Error("failed to aggregate line items", zap.Error(err))
		return 0, fmt.Errorf("aggregate order %d: %w", orderID, err)
	}

	if _, err := q.ExecContext(ctx, writeQuery, total, orderID); err != nil {
		log.Error("failed to write total price", zap.Error(err))
		return 0, fmt.Errorf("write total for order %d: %w", orderID, err)
	}

	log.Debug("total price recomputed", zap.Int("total_price", total))
	return total, nil
}

// RecomputeAll runs Recompute for each order id in turn, stopping at the
// first failure.
func RecomputeAll(ctx context.Context, q db.DBTX, orderIDs []int64) error {
	for _, id := range orderIDs {
		if _, err := Recompute(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}
