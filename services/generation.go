package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"photopro/db"
	"photopro/models"
)

const thumbnailMax = 300

// GeneratePhoto runs the single-item workflow: entry guard, photo record in
// processing, external generator call, completion persisted together with the
// credit charge, notifications at every transition.
//
// The guard rejects before any row exists, so a rejected request leaves no
// partial state. The completion update and the -1 ledger write share one
// database transaction; if a concurrent spend drained the balance while the
// generator ran, the whole unit rolls back and the photo is marked failed.
func GeneratePhoto(ctx context.Context, userID int64, originalURL, style string) (*models.Photo, error) {
	if !IsValidStyle(style) {
		return nil, models.ErrInvalidStyle
	}
	if originalURL == "" {
		return nil, fmt.Errorf("%w: original_url is required", models.ErrInvalidStyle)
	}

	dbConn := db.GetDB()

	var credits int
	err := dbConn.QueryRow(`SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if credits < 1 {
		return nil, models.ErrInsufficientCredits
	}

	photo := &models.Photo{
		UserID:      userID,
		Style:       style,
		OriginalURL: originalURL,
		Status:      models.StatusProcessing,
	}
	err = dbConn.QueryRow(`
		INSERT INTO photos (user_id, style, original_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, userID, style, originalURL, models.StatusProcessing).Scan(&photo.ID, &photo.CreatedAt)
	if err != nil {
		return nil, err
	}

	NotifyPhotoStatus(userID, photo.ID, models.StatusProcessing, "Photo generation started")

	processedURL, err := DefaultGenerator.Generate(ctx, originalURL, style)
	if err != nil || processedURL == "" {
		markPhotoFailed(dbConn, photo.ID)
		NotifyPhotoFailed(userID, photo.ID, errMessage(err))
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}

	balance, err := completePhoto(dbConn, photo, processedURL)
	if err != nil {
		markPhotoFailed(dbConn, photo.ID)
		NotifyPhotoFailed(userID, photo.ID, err.Error())
		return nil, err
	}

	NotifyPhotoCompleted(userID, photo.ID, *photo.ProcessedURL, *photo.ThumbnailURL)
	NotifyCreditsUpdated(userID, balance, models.TxPhotoGeneration)

	return photo, nil
}

// completePhoto persists the result and charges one credit as a single unit.
// Fills the photo's result fields on success and returns the new balance.
func completePhoto(dbConn *sql.DB, photo *models.Photo, processedURL string) (int, error) {
	thumbnailURL := makeThumbnail(processedURL)

	tx, err := dbConn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE photos
		SET processed_url = $1, thumbnail_url = $2, status = $3, credits_used = 1
		WHERE id = $4
	`, processedURL, thumbnailURL, models.StatusCompleted, photo.ID)
	if err != nil {
		return 0, err
	}

	balance, err := RecordAndApplyTx(tx, photo.UserID, -1, models.TxPhotoGeneration,
		fmt.Sprintf("Photo generation - %s style", photo.Style))
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	photo.ProcessedURL = &processedURL
	photo.ThumbnailURL = &thumbnailURL
	photo.Status = models.StatusCompleted
	photo.CreditsUsed = 1
	return balance, nil
}

func markPhotoFailed(dbConn *sql.DB, photoID int64) {
	if _, err := dbConn.Exec(`UPDATE photos SET status = $1 WHERE id = $2`, models.StatusFailed, photoID); err != nil {
		fmt.Printf("Error marking photo %d failed: %v\n", photoID, err)
	}
}

func errMessage(err error) string {
	if err == nil {
		return models.ErrUpstreamFailure.Error()
	}
	return err.Error()
}

// makeThumbnail fetches the processed image, scales it to fit 300x300 and
// stores it as JPEG. Any failure degrades to the raw processed URL rather
// than failing the request.
func makeThumbnail(processedURL string) string {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(processedURL)
	if err != nil {
		fmt.Printf("Thumbnail download failed: %v\n", err)
		return processedURL
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return processedURL
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Thumbnail decode failed: %v\n", err)
		return processedURL
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > thumbnailMax || h > thumbnailMax {
		scale := float64(thumbnailMax) / float64(w)
		if h > w {
			scale = float64(thumbnailMax) / float64(h)
		}
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return processedURL
	}

	url, err := Media.Save("thumbnails/"+uuid.NewString()+".jpg", "image/jpeg", buf.Bytes())
	if err != nil {
		fmt.Printf("Thumbnail upload failed: %v\n", err)
		return processedURL
	}
	return url
}
