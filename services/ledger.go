package services

import (
	"database/sql"
	"fmt"

	"photopro/models"
)

// RecordAndApplyTx applies a signed credit amount to a user's balance and writes
// the matching credit_transactions row inside the caller's transaction. Both
// writes commit or roll back together; a transaction row is never recorded
// without the balance change.
//
// The UPDATE carries the non-negative guard so the check-and-apply is a single
// row-locked statement. Two concurrent spends on the same account serialize on
// the row lock and the loser gets ErrInsufficientCredits.
func RecordAndApplyTx(tx *sql.Tx, userID int64, amount int, txType, description string) (int, error) {
	var balance int
	err := tx.QueryRow(`
		UPDATE users
		SET credits = credits + $1, updated_at = NOW()
		WHERE id = $2 AND credits + $1 >= 0
		RETURNING credits
	`, amount, userID).Scan(&balance)

	if err == sql.ErrNoRows {
		// Either the user is missing or the change would drive the balance
		// negative. Distinguish so callers can 404 vs 400.
		var one int
		if lookupErr := tx.QueryRow(`SELECT 1 FROM users WHERE id = $1`, userID).Scan(&one); lookupErr == sql.ErrNoRows {
			return 0, models.ErrNotFound
		}
		return 0, models.ErrInsufficientCredits
	}
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		INSERT INTO credit_transactions (user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4)
	`, userID, amount, txType, description)
	if err != nil {
		return 0, fmt.Errorf("record transaction: %w", err)
	}

	return balance, nil
}

// RecordAndApply is the standalone form: one balance change and its ledger row
// as a single database transaction. Returns the new balance.
func RecordAndApply(dbConn *sql.DB, userID int64, amount int, txType, description string) (int, error) {
	tx, err := dbConn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := RecordAndApplyTx(tx, userID, amount, txType, description)
	if err != nil {
		return 0, err
	}

	return balance, tx.Commit()
}
