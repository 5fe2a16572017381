package handlers

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"photopro/db"
	"photopro/models"
	"photopro/services"
)

const (
	maxUploadBytes = 10 * 1024 * 1024
	minDimension   = 512
	maxDimension   = 4096
)

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

// UploadPhoto validates and stores a source image, returning its URL.
func UploadPhoto(c *gin.Context) {
	userID := c.GetInt64("userID")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if !strings.HasPrefix(fileHeader.Header.Get("Content-Type"), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be an image"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size must be less than 10MB"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be JPG, PNG, or WEBP format"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	if len(content) > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size must be less than 10MB"})
		return
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image file"})
		return
	}
	if cfg.Width < minDimension || cfg.Height < minDimension {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image must be at least 512x512 pixels"})
		return
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image dimensions too large (max 4096x4096)"})
		return
	}

	key := fmt.Sprintf("uploads/%d/%s%s", userID, uuid.NewString(), ext)
	url, err := services.Media.Save(key, fileHeader.Header.Get("Content-Type"), content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded successfully",
		"url":      url,
		"filename": fileHeader.Filename,
		"size":     len(content),
		"dimensions": gin.H{
			"width":  cfg.Width,
			"height": cfg.Height,
		},
	})
}

// GeneratePhoto runs the single-item generation workflow inline.
func GeneratePhoto(c *gin.Context) {
	userID := c.GetInt64("userID")
	originalURL := c.PostForm("original_url")
	style := c.PostForm("style")

	if originalURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "original_url is required"})
		return
	}

	photo, err := services.GeneratePhoto(c.Request.Context(), userID, originalURL, style)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidStyle):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid style. Must be one of: corporate, creative, formal, casual"})
		case errors.Is(err, models.ErrInsufficientCredits):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient credits"})
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Photo generation failed: %v", err)})
		}
		return
	}

	c.JSON(http.StatusOK, photo)
}

// PhotoHistory returns the 20 most recent photos, newest first.
func PhotoHistory(c *gin.Context) {
	userID := c.GetInt64("userID")

	rows, err := db.GetDB().Query(`
		SELECT id, user_id, style, original_url, processed_url, thumbnail_url,
		       credits_used, status, batch_id, created_at
		FROM photos
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 20
	`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	photos := scanPhotos(rows)
	c.JSON(http.StatusOK, photos)
}

// GetPhoto returns one photo, scoped to its owner.
func GetPhoto(c *gin.Context) {
	userID := c.GetInt64("userID")

	photoID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}

	var p models.Photo
	err = db.GetDB().QueryRow(`
		SELECT id, user_id, style, original_url, processed_url, thumbnail_url,
		       credits_used, status, batch_id, created_at
		FROM photos
		WHERE id = $1 AND user_id = $2
	`, photoID, userID).Scan(&p.ID, &p.UserID, &p.Style, &p.OriginalURL, &p.ProcessedURL,
		&p.ThumbnailURL, &p.CreditsUsed, &p.Status, &p.BatchID, &p.CreatedAt)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, p)
}

func scanPhotos(rows *sql.Rows) []models.Photo {
	photos := []models.Photo{}
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.UserID, &p.Style, &p.OriginalURL, &p.ProcessedURL,
			&p.ThumbnailURL, &p.CreditsUsed, &p.Status, &p.BatchID, &p.CreatedAt); err != nil {
			continue
		}
		photos = append(photos, p)
	}
	return photos
}
