package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/productreg/internal/stagestore"
)

// Store keeps staged files on local disk, one directory per session prefix.
type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("stage path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stage directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Save(ctx context.Context, prefix, mediaType string, r io.Reader) (string, error) {
	storageKey := filepath.ToSlash(filepath.Join(safeSegment(prefix), uuid.NewString()+stagestore.ExtForMediaType(mediaType)))
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close staged file after write error", "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove staged file after write error", "error", rerr)
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove staged file after close error", "error", rerr)
		}
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return storageKey, nil
}

func (s *Store) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", stagestore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, stagestore.MediaTypeForKey(storageKey), nil
}

// Delete removes a staged file and, once empty, its session directory.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return stagestore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	dir := filepath.Dir(filePath)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 && dir != filepath.Clean(s.basePath) {
		_ = os.Remove(dir)
	}
	return nil
}

// safeJoin resolves storageKey relative to basePath and rejects directory traversal.
func (s *Store) safeJoin(storageKey string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(storageKey)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

// safeSegment reduces a prefix to a single path segment.
func safeSegment(prefix string) string {
	prefix = strings.TrimSpace(filepath.Base(filepath.Clean("/" + prefix)))
	if prefix == "" || prefix == "/" || prefix == "." {
		return "staged"
	}
	return prefix
}
