package services

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photopro/models"
)

func TestRecordAndApplyPairsBalanceAndTransaction(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users").
		WithArgs(-1, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(2))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(int64(7), -1, models.TxPhotoGeneration, "Photo generation - corporate style").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	balance, err := RecordAndApply(mockDB, 7, -1, models.TxPhotoGeneration, "Photo generation - corporate style")
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAndApplyRejectsOverdraft(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users").
		WithArgs(-5, int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT 1 FROM users").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err = RecordAndApply(mockDB, 7, -5, models.TxPhotoGeneration, "overdraft attempt")
	assert.ErrorIs(t, err, models.ErrInsufficientCredits)
	// No credit_transactions insert may happen on rejection.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAndApplyUnknownUser(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users").
		WithArgs(10, int64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT 1 FROM users").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err = RecordAndApply(mockDB, 99, 10, models.TxAdminAdjustment, "missing user")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAndApplyRollsBackWhenInsertFails(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users").
		WithArgs(3, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(6))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err = RecordAndApply(mockDB, 7, 3, models.TxPurchase, "purchase")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
