package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"photopro/config"
	"photopro/db"
	"photopro/handlers"
	"photopro/middleware"
	"photopro/services"
)

func runMigrations() {
	sqlBytes, err := os.ReadFile("schema.sql")
	if err != nil {
		log.Fatal("Failed to read schema.sql:", err)
	}

	if _, err := db.GetDB().Exec(string(sqlBytes)); err != nil {
		log.Fatal("Failed to apply schema:", err)
	}
	log.Println("Database schema verified")
}

func main() {
	if err := db.InitDB(); err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	runMigrations()

	features := config.LoadFeatures()
	log.Printf(
		"Features: batch=%v admin=%v email=%v",
		features.BatchEnabled,
		features.AdminEnabled,
		features.EmailEnabled,
	)

	// Background batch worker: drains queued photos from the database so
	// batches survive process restarts.
	if features.BatchEnabled {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Printf("Batch worker panic: %v\n", r)
				}
			}()
			services.RunBatchWorker(context.Background())
		}()
	}

	r := gin.Default()
	r.Use(middleware.CORS())

	// Anonymous traffic is keyed by IP; the authed group carries its own
	// limiter after AuthRequired so requests there are keyed per user.
	ipLimiter := middleware.NewRateLimiter(10, 100)
	userLimiter := middleware.NewRateLimiter(10, 100)
	r.Use(ipLimiter.Handler())

	// Generated and uploaded media (LocalStorage backend).
	if local, ok := services.Media.(*services.LocalStorage); ok {
		r.Static(local.BaseURL, local.Dir)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "PhotoPro API",
			"version": "1.0.0",
			"status":  "active",
		})
	})
	r.GET("/health", handlers.Health)
	r.GET("/health/detailed", handlers.DetailedHealth)
	r.GET("/monitoring/system", handlers.SystemMetrics)
	r.GET("/monitoring/application", handlers.ApplicationMetrics)

	r.POST("/auth/signup", handlers.Signup)
	r.POST("/auth/login", handlers.Login)

	r.GET("/ws/:user_id", handlers.WebSocket)

	authed := r.Group("/", middleware.AuthRequired(), userLimiter.Handler())
	{
		authed.GET("/users/me", handlers.Me)
		authed.GET("/users/me/credits", handlers.MyCredits)

		authed.POST("/photos/upload", handlers.UploadPhoto)
		authed.POST("/photos/generate", handlers.GeneratePhoto)
		authed.GET("/photos/history", handlers.PhotoHistory)
		authed.GET("/photos/:id", handlers.GetPhoto)

		if features.BatchEnabled {
			authed.POST("/photos/generate-batch", handlers.GenerateBatch)
			authed.GET("/photos/batch/:batch_id", handlers.BatchStatus)
		}

		authed.POST("/credits/purchase", handlers.PurchaseCredits)
		authed.GET("/credits/history", handlers.CreditHistory)

		if features.AdminEnabled {
			admin := authed.Group("/admin")
			admin.GET("/stats", handlers.AdminStats)
			admin.GET("/users", handlers.AdminListUsers)
			admin.GET("/users/:id", handlers.AdminGetUser)
			admin.GET("/users/:id/photos", handlers.AdminUserPhotos)
			admin.GET("/users/:id/transactions", handlers.AdminUserTransactions)
			admin.POST("/users/:id/toggle-active", handlers.AdminToggleActive)
			admin.POST("/users/:id/add-credits", handlers.AdminAddCredits)
			admin.GET("/photos", handlers.AdminListPhotos)
			admin.GET("/analytics/daily", handlers.AdminDailyAnalytics)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Println("Server starting on port " + port)
	r.Run(":" + port)
}
