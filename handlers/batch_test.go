package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"photopro/models"
)

func batchRouter(userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
	})
	r.POST("/photos/generate-batch", GenerateBatch)
	r.GET("/photos/batch/:batch_id", BatchStatus)
	return r
}

func TestGenerateBatchEnqueues(t *testing.T) {
	mock := setupHandlerDB(t)

	mock.ExpectQuery("SELECT credits FROM users").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(5))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO photos").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO photos").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	body := `{"photos":[
		{"original_url":"http://media.test/a.jpg","style":"corporate"},
		{"original_url":"http://media.test/b.jpg","style":"casual"}
	]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/photos/generate-batch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	batchRouter(7).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_photos":2`)
	assert.Contains(t, w.Body.String(), `"status":"processing"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateBatchInsufficientCredits(t *testing.T) {
	mock := setupHandlerDB(t)

	mock.ExpectQuery("SELECT credits FROM users").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(1))

	body := `{"photos":[
		{"original_url":"http://media.test/a.jpg","style":"corporate"},
		{"original_url":"http://media.test/b.jpg","style":"casual"}
	]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/photos/generate-batch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	batchRouter(7).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient credits. Need 2")
}

func TestGenerateBatchEmptyList(t *testing.T) {
	setupHandlerDB(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/photos/generate-batch", bytes.NewBufferString(`{"photos":[]}`))
	req.Header.Set("Content-Type", "application/json")
	batchRouter(7).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchStatusAggregates(t *testing.T) {
	mock := setupHandlerDB(t)

	now := time.Now()
	batchID := "8f14e45f-ea3c-4c2d-9f3a-111111111111"
	processed := "http://media.test/p1.jpg"
	rows := sqlmock.NewRows([]string{"id", "user_id", "style", "original_url", "processed_url",
		"thumbnail_url", "credits_used", "status", "batch_id", "created_at"}).
		AddRow(int64(1), int64(7), "corporate", "http://media.test/a.jpg", processed, nil, 1, models.StatusCompleted, batchID, now).
		AddRow(int64(2), int64(7), "casual", "http://media.test/b.jpg", nil, nil, 0, models.StatusFailed, batchID, now)
	mock.ExpectQuery("SELECT id, user_id, style").
		WithArgs(batchID, int64(7)).
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/photos/batch/"+batchID, nil)
	batchRouter(7).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":1`)
	assert.Contains(t, w.Body.String(), `"failed":1`)
	assert.Contains(t, w.Body.String(), `"overall_status":"completed_with_errors"`)
}

func TestBatchStatusUnknownBatch(t *testing.T) {
	mock := setupHandlerDB(t)

	unknownID := "8f14e45f-ea3c-4c2d-9f3a-222222222222"
	mock.ExpectQuery("SELECT id, user_id, style").
		WithArgs(unknownID, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "style", "original_url", "processed_url",
			"thumbnail_url", "credits_used", "status", "batch_id", "created_at"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/photos/batch/"+unknownID, nil)
	batchRouter(7).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Batch not found")
}

func TestBatchStatusNonUUIDBatchID(t *testing.T) {
	// The id cannot address a batch, so it never reaches the database.
	setupHandlerDB(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/photos/batch/nope", nil)
	batchRouter(7).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Batch not found")
}
