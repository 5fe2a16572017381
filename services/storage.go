package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage persists uploaded and generated files and returns a URL clients can
// fetch them from. The cloud provider behind it is deliberately swappable.
type Storage interface {
	Save(key, contentType string, data []byte) (string, error)
}

// LocalStorage writes files under Dir and serves them from BaseURL (wired to
// gin's static route in main).
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage() *LocalStorage {
	dir := os.Getenv("MEDIA_DIR")
	if dir == "" {
		dir = "./media"
	}
	baseURL := os.Getenv("MEDIA_BASE_URL")
	if baseURL == "" {
		baseURL = "/media"
	}
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalStorage) Save(key, contentType string, data []byte) (string, error) {
	path := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return s.BaseURL + "/" + key, nil
}

// Media is the storage used by upload and thumbnail persistence. Tests swap it
// for a temp-dir store.
var Media Storage = NewLocalStorage()
