package handlers

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"photopro/db"
	"photopro/models"
	"photopro/services"
)

// PurchaseCredits upgrades the account's plan and tops the balance up to the
// plan's credit grant. The plan change and the purchase ledger entry commit
// together.
func PurchaseCredits(c *gin.Context) {
	userID := c.GetInt64("userID")

	var req struct {
		Plan string `json:"plan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if !services.IsValidPlan(req.Plan) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan"})
		return
	}

	var credits int
	err := db.GetDB().QueryRow(`SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	creditsToAdd := services.PlanCredits(req.Plan) - credits
	if creditsToAdd <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan provides same or fewer credits than current"})
		return
	}

	tx, err := db.GetDB().Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE users SET plan = $1 WHERE id = $2`, req.Plan, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	balance, err := services.RecordAndApplyTx(tx, userID, creditsToAdd, models.TxPurchase,
		fmt.Sprintf("Upgraded to %s plan", req.Plan))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	services.NotifyCreditsUpdated(userID, balance, models.TxPurchase)

	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("Successfully upgraded to %s plan", req.Plan),
		"credits_added": creditsToAdd,
		"total_credits": balance,
	})
}

// CreditHistory returns every transaction for the account, newest first.
func CreditHistory(c *gin.Context) {
	userID := c.GetInt64("userID")

	rows, err := db.GetDB().Query(`
		SELECT id, user_id, amount, transaction_type, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	transactions := []models.CreditTransaction{}
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.TransactionType, &t.Description, &t.CreatedAt); err != nil {
			continue
		}
		transactions = append(transactions, t)
	}

	c.JSON(http.StatusOK, transactions)
}
