package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"photopro/db"
	"photopro/models"
)

// Delay between generator calls so batches respect the upstream rate limit.
const batchItemDelay = 2 * time.Second

type BatchItem struct {
	OriginalURL string `json:"original_url" binding:"required"`
	Style       string `json:"style" binding:"required"`
}

// CreateBatch validates the whole request up front and enqueues one photo row
// per item under a shared batch id. The queue is the photos table itself:
// rows in status queued are pending work, so a restart loses nothing.
//
// Credits are charged per item when that item completes, exactly like the
// single-item path; there is no up-front deduction and nothing to refund.
func CreateBatch(userID int64, items []BatchItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("%w: empty batch", models.ErrInvalidStyle)
	}
	for _, item := range items {
		if !IsValidStyle(item.Style) {
			return "", models.ErrInvalidStyle
		}
	}

	dbConn := db.GetDB()

	var credits int
	err := dbConn.QueryRow(`SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err == sql.ErrNoRows {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if credits < len(items) {
		return "", models.ErrInsufficientCredits
	}

	batchID := uuid.NewString()

	tx, err := dbConn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	for _, item := range items {
		_, err := tx.Exec(`
			INSERT INTO photos (user_id, style, original_url, status, batch_id)
			VALUES ($1, $2, $3, $4, $5)
		`, userID, item.Style, item.OriginalURL, models.StatusQueued, batchID)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return batchID, nil
}

// RunBatchWorker drains queued photos until the context is cancelled. Claims
// are single UPDATE statements with SKIP LOCKED, so multiple workers (or a
// restarted process) never double-claim a row, and a row claimed by a process
// that died stays visible as processing for operators.
func RunBatchWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		photo, err := claimQueuedPhoto()
		if err != nil {
			fmt.Printf("Batch worker claim error: %v\n", err)
		}
		if photo == nil {
			// Queue empty, back off before polling again.
			select {
			case <-ctx.Done():
				return
			case <-time.After(batchItemDelay):
			}
			continue
		}

		processQueuedPhoto(ctx, photo)

		select {
		case <-ctx.Done():
			return
		case <-time.After(batchItemDelay):
		}
	}
}

func claimQueuedPhoto() (*models.Photo, error) {
	var photo models.Photo
	err := db.GetDB().QueryRow(`
		UPDATE photos SET status = $1
		WHERE id = (
			SELECT id FROM photos
			WHERE status = $2
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, user_id, style, original_url, created_at
	`, models.StatusProcessing, models.StatusQueued).Scan(
		&photo.ID, &photo.UserID, &photo.Style, &photo.OriginalURL, &photo.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	photo.Status = models.StatusProcessing
	return &photo, nil
}

// processQueuedPhoto runs one claimed item through the same completion path as
// the inline workflow. A failure marks only this item failed; the rest of the
// batch is untouched.
func processQueuedPhoto(ctx context.Context, photo *models.Photo) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Batch worker panic on photo %d: %v\n", photo.ID, r)
			markPhotoFailed(db.GetDB(), photo.ID)
		}
	}()

	NotifyPhotoStatus(photo.UserID, photo.ID, models.StatusProcessing, "Batch item started")

	processedURL, err := DefaultGenerator.Generate(ctx, photo.OriginalURL, photo.Style)
	if err != nil || processedURL == "" {
		fmt.Printf("Failed to process photo %d: %v\n", photo.ID, err)
		markPhotoFailed(db.GetDB(), photo.ID)
		NotifyPhotoFailed(photo.UserID, photo.ID, errMessage(err))
		return
	}

	balance, err := completePhoto(db.GetDB(), photo, processedURL)
	if err != nil {
		fmt.Printf("Failed to complete photo %d: %v\n", photo.ID, err)
		markPhotoFailed(db.GetDB(), photo.ID)
		NotifyPhotoFailed(photo.UserID, photo.ID, err.Error())
		return
	}

	NotifyPhotoCompleted(photo.UserID, photo.ID, *photo.ProcessedURL, *photo.ThumbnailURL)
	NotifyCreditsUpdated(photo.UserID, balance, models.TxPhotoGeneration)
}
