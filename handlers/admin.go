package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"photopro/db"
	"photopro/models"
	"photopro/services"
)

// requireAdmin resolves the authenticated user and aborts with 403 unless it
// is the admin account. Returns the admin's user id.
func requireAdmin(c *gin.Context) (int64, bool) {
	userID := c.GetInt64("userID")

	var username, email string
	err := db.GetDB().QueryRow(`SELECT username, email FROM users WHERE id = $1`, userID).
		Scan(&username, &email)
	if err != nil || (username != "admin" && email != "admin@photopro.ai") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return 0, false
	}
	return userID, true
}

// AdminStats is the dashboard overview: user/photo counts, credit totals and
// 7-day activity.
func AdminStats(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	dbConn := db.GetDB()

	var stats struct {
		TotalUsers      int
		ActiveUsers     int
		RecentUsers     int
		TotalPhotos     int
		CompletedPhotos int
		RecentPhotos    int
		CreditsUsed     int
		CreditsBought   int
	}

	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM users WHERE is_active = TRUE`).Scan(&stats.ActiveUsers)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM users WHERE created_at >= NOW() - INTERVAL '7 days'`).Scan(&stats.RecentUsers)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM photos`).Scan(&stats.TotalPhotos)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM photos WHERE status = 'completed'`).Scan(&stats.CompletedPhotos)
	_ = dbConn.QueryRow(`SELECT COUNT(*) FROM photos WHERE created_at >= NOW() - INTERVAL '7 days'`).Scan(&stats.RecentPhotos)
	_ = dbConn.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE amount < 0`).Scan(&stats.CreditsUsed)
	_ = dbConn.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE amount > 0`).Scan(&stats.CreditsBought)

	successRate := 0.0
	if stats.TotalPhotos > 0 {
		successRate = float64(stats.CompletedPhotos) / float64(stats.TotalPhotos) * 100
	}

	type styleCount struct {
		Style string `json:"style"`
		Count int    `json:"count"`
	}
	styles := []styleCount{}
	rows, err := dbConn.Query(`
		SELECT style, COUNT(*) FROM photos WHERE status = 'completed' GROUP BY style
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var sc styleCount
			if err := rows.Scan(&sc.Style, &sc.Count); err == nil {
				styles = append(styles, sc)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"users": gin.H{
			"total":          stats.TotalUsers,
			"active":         stats.ActiveUsers,
			"recent_signups": stats.RecentUsers,
		},
		"photos": gin.H{
			"total":              stats.TotalPhotos,
			"completed":          stats.CompletedPhotos,
			"recent_generations": stats.RecentPhotos,
			"success_rate":       fmt.Sprintf("%.2f", successRate),
		},
		"credits": gin.H{
			"total_used":      -stats.CreditsUsed,
			"total_purchased": stats.CreditsBought,
			"net_credits":     stats.CreditsBought + stats.CreditsUsed,
		},
		"styles": styles,
	})
}

// AdminListUsers supports pagination and substring search.
func AdminListUsers(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	search := c.Query("search")

	var rows *sql.Rows
	var err error
	if search != "" {
		rows, err = db.GetDB().Query(`
			SELECT id, email, username, full_name, plan, credits, is_active, is_verified, created_at
			FROM users
			WHERE username ILIKE '%' || $1 || '%'
			   OR email ILIKE '%' || $1 || '%'
			   OR full_name ILIKE '%' || $1 || '%'
			ORDER BY created_at DESC
			OFFSET $2 LIMIT $3
		`, search, skip, limit)
	} else {
		rows, err = db.GetDB().Query(`
			SELECT id, email, username, full_name, plan, credits, is_active, is_verified, created_at
			FROM users
			ORDER BY created_at DESC
			OFFSET $1 LIMIT $2
		`, skip, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.Plan,
			&u.Credits, &u.IsActive, &u.IsVerified, &u.CreatedAt); err != nil {
			continue
		}
		users = append(users, u)
	}

	c.JSON(http.StatusOK, users)
}

func AdminGetUser(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var u models.User
	err = db.GetDB().QueryRow(`
		SELECT id, email, username, full_name, plan, credits, is_active, is_verified, created_at
		FROM users WHERE id = $1
	`, targetID).Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.Plan,
		&u.Credits, &u.IsActive, &u.IsVerified, &u.CreatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func AdminUserPhotos(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	rows, err := db.GetDB().Query(`
		SELECT id, user_id, style, original_url, processed_url, thumbnail_url,
		       credits_used, status, batch_id, created_at
		FROM photos
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	c.JSON(http.StatusOK, scanPhotos(rows))
}

func AdminUserTransactions(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	rows, err := db.GetDB().Query(`
		SELECT id, user_id, amount, transaction_type, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, targetID)
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

// AdminToggleActive flips a user's active flag. Admins cannot deactivate
// themselves.
func AdminToggleActive(c *gin.Context) {
	adminID, ok := requireAdmin(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if targetID == adminID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate yourself"})
		return
	}

	var isActive bool
	err = db.GetDB().QueryRow(`
		UPDATE users SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING is_active
	`, targetID).Scan(&isActive)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	status := "deactivated"
	if isActive {
		status = "activated"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("User %s successfully", status),
		"user_id":   targetID,
		"is_active": isActive,
	})
}

// AdminAddCredits is the administrative credit addition: always a positive
// amount, recorded through the ledger like every other balance change.
func AdminAddCredits(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req struct {
		Amount      int    `json:"amount"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	}
	if req.Description == "" {
		req.Description = "Admin credit adjustment"
	}

	balance, err := services.RecordAndApply(db.GetDB(), targetID, req.Amount,
		models.TxAdminAdjustment, req.Description)
	if err == models.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	services.NotifyCreditsUpdated(targetID, balance, models.TxAdminAdjustment)

	c.JSON(http.StatusOK, gin.H{
		"message":     fmt.Sprintf("Added %d credits to user", req.Amount),
		"user_id":     targetID,
		"new_balance": balance,
	})
}

// AdminListPhotos lists photos across all users with optional status/style
// filters.
func AdminListPhotos(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := db.GetDB().Query(`
		SELECT id, user_id, style, original_url, processed_url, thumbnail_url,
		       credits_used, status, batch_id, created_at
		FROM photos
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR style = $2)
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4
	`, c.Query("status"), c.Query("style"), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	c.JSON(http.StatusOK, scanPhotos(rows))
}

// AdminDailyAnalytics aggregates signups, generations and credit consumption
// per day over the requested window.
func AdminDailyAnalytics(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 || days > 365 {
		days = 30
	}

	type dailyCount struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	}

	queryDaily := func(query string) []dailyCount {
		out := []dailyCount{}
		rows, err := db.GetDB().Query(query, days)
		if err != nil {
			return out
		}
		defer rows.Close()
		for rows.Next() {
			var d dailyCount
			if err := rows.Scan(&d.Date, &d.Count); err == nil {
				out = append(out, d)
			}
		}
		return out
	}

	c.JSON(http.StatusOK, gin.H{
		"period": gin.H{"days": days},
		"daily_users": queryDaily(`
			SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*)
			FROM users
			WHERE created_at >= NOW() - ($1 || ' days')::interval
			GROUP BY created_at::date ORDER BY created_at::date
		`),
		"daily_photos": queryDaily(`
			SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*)
			FROM photos
			WHERE created_at >= NOW() - ($1 || ' days')::interval
			GROUP BY created_at::date ORDER BY created_at::date
		`),
		"daily_credits": queryDaily(`
			SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COALESCE(-SUM(amount), 0)
			FROM credit_transactions
			WHERE created_at >= NOW() - ($1 || ' days')::interval AND amount < 0
			GROUP BY created_at::date ORDER BY created_at::date
		`),
	})
}
