// Package stagestore holds the binaries of files staged in intake sessions
// until the session submits or is evicted.
package stagestore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when a storage key does not resolve to a blob.
var ErrNotFound = errors.New("staged file not found")

type Store interface {
	// Save stores r under a new key grouped by prefix (the session id).
	Save(ctx context.Context, prefix, mediaType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

// ExtForMediaType returns the file extension used for a staged media type.
func ExtForMediaType(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

// MediaTypeForKey infers the media type from a storage key's extension.
func MediaTypeForKey(storageKey string) string {
	switch strings.ToLower(path.Ext(storageKey)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
