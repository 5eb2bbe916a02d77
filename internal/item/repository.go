package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"orderdesk-be/internal/db"
	"orderdesk-be/internal/logger"
	"orderdesk-be/internal/metrics"
	"orderdesk-be/internal/totals"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	ListItems(ctx context.Context) ([]*Item, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	CreateItem(ctx context.Context, in ItemInput) (*Item, error)
	UpdateItem(ctx context.Context, id int64, in ItemInput) (*Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListItems(ctx context.Context) ([]*Item, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListItems"),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, amount
		FROM items
		ORDER BY name
	`)
	if err != nil {
		log.Error("failed to query items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Amount); err != nil {
			log.Error("failed to scan item row", zap.Error(err))
			return nil, err
		}
		items = append(items, &it)
	}

	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}

	return items, nil
}

func (r *repository) GetItem(ctx context.Context, id int64) (*Item, error) {
	var it Item
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, amount
		FROM items
		WHERE id = $1
	`, id).Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Amount)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repository) CreateItem(ctx context.Context, in ItemInput) (*Item, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateItem"),
		zap.String("name", in.Name),
	)

	it := Item{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Amount:      in.Amount,
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO items (name, description, price, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, in.Name, in.Description, in.Price, in.Amount).Scan(&it.ID)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("item name already taken")
			return nil, fmt.Errorf("%w: %q", ErrNameTaken, in.Name)
		}
		log.Error("failed to insert item", zap.Error(err))
		return nil, err
	}

	log.Info("item created", zap.Int64("item_id", it.ID))
	return &it, nil
}

// UpdateItem fully replaces an item. A price change re-totals every order
// that references the item in the same transaction.
//
// The item row is locked first so that order writers still holding it
// FOR SHARE commit before the ordered quantities are read.
func (r *repository) UpdateItem(ctx context.Context, id int64, in ItemInput) (*Item, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateItem"),
		zap.Int64("item_id", id),
	)

	it := Item{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Amount:      in.Amount,
	}

	var affected []int64
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockItem(ctx, tx, id); err != nil {
			return err
		}
		orderIDs, err := lockReferencingOrders(ctx, tx, id)
		if err != nil {
			return err
		}
		affected = orderIDs

		if in.Amount != nil {
			var maxQty int
			err := tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(quantity), 0)
				FROM order_items
				WHERE item_id = $1
			`, id).Scan(&maxQty)
			if err != nil {
				return err
			}
			if maxQty > *in.Amount {
				return fmt.Errorf("%w: amount %d is below quantity %d already ordered", ErrInvalidAmount, *in.Amount, maxQty)
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE items
			SET name = $1, description = $2, price = $3, amount = $4
			WHERE id = $5
		`, in.Name, in.Description, in.Price, in.Amount, id)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %q", ErrNameTaken, in.Name)
			}
			return err
		}

		return totals.RecomputeAll(ctx, tx, orderIDs)
	})
	if err != nil {
		if IsValidation(err) || errors.Is(err, ErrItemNotFound) {
			log.Warn("item update rejected", zap.Error(err))
		} else {
			log.Error("failed to update item", zap.Error(err))
		}
		return nil, err
	}

	metrics.Recomputations.Add(uint64(len(affected)))
	log.Info("item updated", zap.Int("orders_retotalled", len(affected)))
	return &it, nil
}

// DeleteItem removes the item together with every line item that references
// it, then re-totals the affected orders.
func (r *repository) DeleteItem(ctx context.Context, id int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DeleteItem"),
		zap.Int64("item_id", id),
	)

	var affected []int64
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockItem(ctx, tx, id); err != nil {
			return err
		}
		orderIDs, err := lockReferencingOrders(ctx, tx, id)
		if err != nil {
			return err
		}
		affected = orderIDs

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE item_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
			return err
		}

		return totals.RecomputeAll(ctx, tx, orderIDs)
	})
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			log.Warn("item not found")
		} else {
			log.Error("failed to delete item", zap.Error(err))
		}
		return err
	}

	metrics.Recomputations.Add(uint64(len(affected)))
	log.Info("item deleted", zap.Int("orders_retotalled", len(affected)))
	return nil
}

func lockItem(ctx context.Context, tx *sql.Tx, id int64) error {
	var locked int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM items WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrItemNotFound
	}
	return err
}

// lockReferencingOrders locks, in id order, every order holding a line item
// for itemID.
func lockReferencingOrders(ctx context.Context, tx *sql.Tx, itemID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT o.id
		FROM orders o
		WHERE o.id IN (SELECT order_id FROM order_items WHERE item_id = $1)
		ORDER BY o.id
		FOR UPDATE
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation
}
