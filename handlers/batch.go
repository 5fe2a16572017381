package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"photopro/db"
	"photopro/models"
	"photopro/services"
)

type BatchInput struct {
	Photos []services.BatchItem `json:"photos" binding:"required,min=1,dive"`
}

// GenerateBatch enqueues a batch of generation requests. Items are processed
// by the background worker; per-item progress arrives over the WebSocket and
// via GET /photos/batch/:batch_id.
func GenerateBatch(c *gin.Context) {
	userID := c.GetInt64("userID")

	var input BatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	batchID, err := services.CreateBatch(userID, input.Photos)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidStyle):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid style. Must be one of: corporate, creative, formal, casual"})
		case errors.Is(err, models.ErrInsufficientCredits):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Insufficient credits. Need %d", len(input.Photos))})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch processing failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id":     batchID,
		"total_photos": len(input.Photos),
		"status":       "processing",
		"message":      fmt.Sprintf("Batch processing started for %d photos", len(input.Photos)),
	})
}

// BatchStatus reports per-item states and an overall batch status.
func BatchStatus(c *gin.Context) {
	userID := c.GetInt64("userID")

	// batch_id is a UUID column; anything else cannot name a batch.
	batchID := c.Param("batch_id")
	if _, err := uuid.Parse(batchID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}

	rows, err := db.GetDB().Query(`
		SELECT id, user_id, style, original_url, processed_url, thumbnail_url,
		       credits_used, status, batch_id, created_at
		FROM photos
		WHERE batch_id = $1 AND user_id = $2
		ORDER BY created_at
	`, batchID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	photos := scanPhotos(rows)
	if len(photos) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}

	counts := map[string]int{}
	for _, p := range photos {
		counts[p.Status]++
	}

	total := len(photos)
	completed := counts[models.StatusCompleted]
	failed := counts[models.StatusFailed]
	pending := counts[models.StatusProcessing] + counts[models.StatusQueued]

	var overall string
	switch {
	case completed == total:
		overall = "completed"
	case failed > 0 && completed+failed == total:
		overall = "completed_with_errors"
	case pending > 0:
		overall = "processing"
	default:
		overall = "failed"
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id":       batchID,
		"total_photos":   total,
		"completed":      completed,
		"failed":         failed,
		"processing":     pending,
		"overall_status": overall,
		"photos":         photos,
	})
}
