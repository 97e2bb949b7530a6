package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the topic list as a pretty-printed JSON array of strings.
type FileStore struct {
	filePath string
}

// NewFileStore creates a store backed by filePath. The file is created on the
// first Save.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

func (fs *FileStore) Path() string {
	return fs.filePath
}

// Load reads the topic list. A missing or empty file is an empty history.
func (fs *FileStore) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(fs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read topics file: %w", err)
	}

	if len(data) == 0 {
		return nil, nil // Empty file
	}

	var topics []string
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topics: %w", err)
	}
	return topics, nil
}

// Save rewrites the whole file.
func (fs *FileStore) Save(_ context.Context, topics []string) error {
	if topics == nil {
		topics = []string{}
	}
	data, err := json.MarshalIndent(topics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal topics: %w", err)
	}

	if dir := filepath.Dir(fs.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create topics dir: %w", err)
		}
	}
	if err := os.WriteFile(fs.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write topics file: %w", err)
	}
	return nil
}
