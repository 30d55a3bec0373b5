package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
)

func TestTxRunner_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO history").
		WithArgs(sqlmock.AnyArg(), entity.HistoryOpRegister, "CABO", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	var id int64
	err = sqlite.NewTxRunner(db).Run(context.Background(), func(_ repository.MovementRepository, _ repository.ProductRepository, h repository.HistoryRepository) error {
		e := &entity.HistoryEntry{Operation: entity.HistoryOpRegister, ProductName: "CABO", Quantity: 3, CreatedAt: time.Now()}
		if err := h.Insert(context.Background(), e); err != nil {
			return err
		}
		id = e.ID
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("saldo insuficiente")
	err = sqlite.NewTxRunner(db).RunInventory(context.Background(), func(repository.MovementRepository, repository.ProductRepository, repository.HistoryRepository, repository.InventoryRepository) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err = sqlite.NewTxRunner(db).Run(context.Background(), func(repository.MovementRepository, repository.ProductRepository, repository.HistoryRepository) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_BeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("disk I/O error"))

	called := false
	err = sqlite.NewTxRunner(db).Run(context.Background(), func(repository.MovementRepository, repository.ProductRepository, repository.HistoryRepository) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
