package item

import (
	"context"
	"errors"
	"testing"

	"orderdesk-be/internal/metrics"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemColumns = []string{"id", "name", "description", "price", "amount"}

const lockItemSQL = `SELECT id FROM items WHERE id = \$1 FOR UPDATE`

func expectItemLock(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery(lockItemSQL).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

func TestRepository_ListItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(itemColumns).
			AddRow(2, "Blini", "pancakes", 120, nil).
			AddRow(1, "Borscht", "soup", 350, 10)

		mock.ExpectQuery(`SELECT id, name, description, price, amount FROM items ORDER BY name`).
			WillReturnRows(rows)

		items, err := repo.ListItems(context.Background())

		assert.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Blini", items[0].Name)
		assert.Nil(t, items[0].Amount)
		require.NotNil(t, items[1].Amount)
		assert.Equal(t, 10, *items[1].Amount)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM items`).WillReturnError(errors.New("db error"))

		_, err := repo.ListItems(context.Background())
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM items WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(5, "Kompot", "drink", 80, 10))

		it, err := repo.GetItem(context.Background(), 5)

		assert.NoError(t, err)
		assert.Equal(t, "Kompot", it.Name)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM items WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(itemColumns))

		_, err := repo.GetItem(context.Background(), 99)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	in := ItemInput{Name: "Olivier", Description: "salad", Price: 200}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO items \(name, description, price, amount\)`).
			WithArgs("Olivier", "salad", 200, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

		it, err := repo.CreateItem(context.Background(), in)

		assert.NoError(t, err)
		assert.Equal(t, int64(12), it.ID)
		assert.Equal(t, 200, it.Price)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO items`).
			WillReturnError(&pq.Error{Code: pq.ErrorCode(PgUniqueViolation)})

		_, err := repo.CreateItem(context.Background(), in)

		assert.ErrorIs(t, err, ErrNameTaken)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("PriceChangeRetotalsReferencingOrders", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db)
		in := ItemInput{Name: "Borscht", Description: "soup", Price: 400}
		before := metrics.Recomputations.Load()

		mock.ExpectBegin()
		expectItemLock(mock, 1)
		mock.ExpectQuery(`SELECT o.id FROM orders o WHERE o.id IN .* FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
		mock.ExpectExec(`UPDATE items SET name = \$1, description = \$2, price = \$3, amount = \$4 WHERE id = \$5`).
			WithArgs("Borscht", "soup", 400, nil, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		for _, orderID := range []int64{10, 11} {
			mock.ExpectQuery(`SELECT COALESCE\(SUM`).
				WithArgs(orderID).
				WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(800))
			mock.ExpectExec(`UPDATE orders SET total_price`).
				WithArgs(800, orderID).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		it, err := repo.UpdateItem(ctx, 1, in)

		assert.NoError(t, err)
		assert.Equal(t, 400, it.Price)
		assert.Equal(t, before+2, metrics.Recomputations.Load())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AmountBelowOrderedQuantity", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db)
		amount := 3
		in := ItemInput{Name: "Kompot", Price: 80, Amount: &amount}

		mock.ExpectBegin()
		expectItemLock(mock, 5)
		mock.ExpectQuery(`SELECT o.id FROM orders o`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectQuery(`SELECT COALESCE\(MAX\(quantity\), 0\) FROM order_items WHERE item_id = \$1`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(4))
		mock.ExpectRollback()

		_, err = repo.UpdateItem(ctx, 5, in)

		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockItemSQL).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err = repo.UpdateItem(ctx, 42, ItemInput{Name: "Ghost", Price: 1})

		assert.ErrorIs(t, err, ErrItemNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateName", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db)

		mock.ExpectBegin()
		expectItemLock(mock, 2)
		mock.ExpectQuery(`SELECT o.id FROM orders o`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`UPDATE items`).
			WillReturnError(&pq.Error{Code: pq.ErrorCode(PgUniqueViolation)})
		mock.ExpectRollback()

		_, err = repo.UpdateItem(ctx, 2, ItemInput{Name: "Borscht", Price: 1})

		assert.ErrorIs(t, err, ErrNameTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_DeleteItem(t *testing.T) {
	ctx := context.Background()

	t.Run("CascadesAndRetotals", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db)

		mock.ExpectBegin()
		expectItemLock(mock, 3)
		mock.ExpectQuery(`SELECT o.id FROM orders o`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectExec(`DELETE FROM order_items WHERE item_id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM items WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// the order keeps its other line items and a smaller total
		mock.ExpectQuery(`SELECT COALESCE\(SUM`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(50))
		mock.ExpectExec(`UPDATE orders SET total_price`).
			WithArgs(50, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.DeleteItem(ctx, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFoundRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockItemSQL).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.DeleteItem(ctx, 3), ErrItemNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// An order writer that inserted a line for the item has committed by the time
// the item lock is granted, so its quantity is seen by the amount guard.
func TestRepository_UpdateItem_LocksItemBeforeReadingQuantities(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	amount := 5
	before := metrics.Recomputations.Load()

	mock.ExpectBegin()
	expectItemLock(mock, 5)
	mock.ExpectQuery(`SELECT o.id FROM orders o`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(quantity\), 0\)`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(10))
	mock.ExpectRollback()

	_, err = repo.UpdateItem(context.Background(), 5, ItemInput{Name: "Kompot", Price: 50, Amount: &amount})

	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, before, metrics.Recomputations.Load())
	assert.NoError(t, mock.ExpectationsWereMet())
}
