package handlers

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"photopro/db"
	"photopro/models"
	"photopro/services"
)

var jwtSecret = []byte(os.Getenv("JWT_SECRET"))

type SignupInput struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,alphanum"`
	FullName string `json:"full_name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Signup registers a new account with the 3-credit welcome bonus. The user row
// and its welcome_bonus transaction are written in one database transaction so
// the ledger starts reconciled.
func Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	tx, err := db.GetDB().Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	var user models.User
	err = tx.QueryRow(`
		INSERT INTO users (email, username, full_name, password_hash, plan)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, input.Email, input.Username, input.FullName, string(hash), models.PlanFree).
		Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrDuplicateIdentity.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	balance, err := services.RecordAndApplyTx(tx, user.ID, models.WelcomeCredits,
		models.TxWelcomeBonus, "Welcome bonus - 3 free credits")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant welcome credits"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	go services.SendWelcomeEmail(input.Email, input.Username)

	user.Email = input.Email
	user.Username = input.Username
	user.FullName = input.FullName
	user.Plan = models.PlanFree
	user.Credits = balance
	user.IsActive = true
	c.JSON(http.StatusOK, user)
}

// Login accepts form fields username (which may also be the email) and
// password, and returns a bearer token.
func Login(c *gin.Context) {
	identifier := c.PostForm("username")
	password := c.PostForm("password")
	if identifier == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	var user models.User
	err := db.GetDB().QueryRow(`
		SELECT id, email, username, password_hash, is_active
		FROM users
		WHERE username = $1 OR email = $1
	`, identifier).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.IsActive)

	if err != nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrInvalidCredential.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrInvalidCredential.Error()})
		return
	}

	token, err := generateToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func Me(c *gin.Context) {
	userID := c.GetInt64("userID")

	var user models.User
	err := db.GetDB().QueryRow(`
		SELECT id, email, username, full_name, plan, credits, is_active, is_verified, created_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.Username, &user.FullName, &user.Plan,
		&user.Credits, &user.IsActive, &user.IsVerified, &user.CreatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func MyCredits(c *gin.Context) {
	userID := c.GetInt64("userID")

	var credits int
	if err := db.GetDB().QueryRow(`SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": credits})
}

func generateToken(id int64, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": id,
		"email":   email,
		"exp":     time.Now().Add(time.Hour * 24 * 7).Unix(),
	})
	return token.SignedString(jwtSecret)
}

func setAuthCookie(c *gin.Context, token string) {
	c.SetCookie("photopro_jwt", token, 3600*24*7, "/", "", false, true)
}
