package models

import (
	"time"
)

// Plan tiers and the credit balance each grants.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"

	CreditsFree       = 3
	CreditsPro        = 50
	CreditsEnterprise = 999

	// Every new account starts with the free-plan welcome bonus.
	WelcomeCredits = 3
)

// Photo lifecycle. Terminal states are completed and failed.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Credit transaction kinds.
const (
	TxWelcomeBonus    = "welcome_bonus"
	TxPurchase        = "purchase"
	TxPhotoGeneration = "photo_generation"
	TxAdminAdjustment = "admin_adjustment"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Plan         string    `json:"plan"`
	Credits      int       `json:"credits"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

type Photo struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Style        string    `json:"style"`
	OriginalURL  string    `json:"original_url"`
	ProcessedURL *string   `json:"processed_url,omitempty"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	CreditsUsed  int       `json:"credits_used"`
	Status       string    `json:"status"`
	BatchID      *string   `json:"batch_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreditTransaction struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Amount          int       `json:"amount"`
	TransactionType string    `json:"transaction_type"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at"`
}
