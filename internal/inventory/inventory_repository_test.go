package inventory_test

import (
	"context"
	"errors"
	"testing"

	"aanganwadi/internal/inventory"
	"aanganwadi/internal/repository"
	"aanganwadi/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLRepository(t *testing.T) (inventory.Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return inventory.NewRepository(repository.NewRepository(db)), mock
}

var candidateColumns = []string{
	"id", "item_code", "item_type", "total_amount", "allocated_amount",
	"total_quantity", "allocated_quantity", "minimum_stock",
}

func TestAllocateFirstFitMoneyQuery(t *testing.T) {
	repo, mock := newSQLRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "inventory" WHERE .*"item_type" = 'money'.*total_amount - allocated_amount >= '500'.*ORDER BY "id" ASC LIMIT 1 FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows(candidateColumns).
			AddRow(3, "INV000003", "money", "1000", "400", 0, 0, 5))
	mock.ExpectExec(`UPDATE "inventory" SET .*"allocated_amount"='900'.*"available_amount"='100'.*WHERE \("id" = 3\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fit, err := repo.AllocateFirstFit(context.Background(), models.ItemMoney, decimal.NewFromInt(500), nil)
	require.NoError(t, err)
	require.NotNil(t, fit)

	assert.True(t, fit.Before.AllocatedAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, fit.After.AllocatedAmount.Equal(decimal.NewFromInt(900)))
	assert.True(t, fit.After.AvailableAmount.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateFirstFitGoodsQuery(t *testing.T) {
	repo, mock := newSQLRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "inventory" WHERE .*"item_type" = 'books'.*total_quantity - allocated_quantity >= 10.*FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows(candidateColumns).
			AddRow(7, "INV000007", "books", "0", "0", 30, 5, 5))
	mock.ExpectExec(`UPDATE "inventory" SET .*"allocated_quantity"=15.*"available_quantity"=15.*WHERE \("id" = 7\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fit, err := repo.AllocateFirstFit(context.Background(), models.ItemBooks, decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	require.NotNil(t, fit)

	assert.Equal(t, 15, fit.After.AllocatedQuantity)
	assert.Equal(t, models.StockAvailable, fit.After.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateFirstFitWithoutCandidateWritesNothing(t *testing.T) {
	repo, mock := newSQLRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows(candidateColumns))
	mock.ExpectCommit()

	fit, err := repo.AllocateFirstFit(context.Background(), models.ItemMoney, decimal.NewFromInt(500), nil)
	require.NoError(t, err)
	assert.Nil(t, fit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateFirstFitRollsBackFailedWrite(t *testing.T) {
	repo, mock := newSQLRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows(candidateColumns).
			AddRow(3, "INV000003", "money", "1000", "0", 0, 0, 5))
	mock.ExpectExec(`UPDATE "inventory"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	fit, err := repo.AllocateFirstFit(context.Background(), models.ItemMoney, decimal.NewFromInt(500), nil)
	require.Error(t, err)
	assert.Nil(t, fit)
	assert.NoError(t, mock.ExpectationsWereMet())
}
