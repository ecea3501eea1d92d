package intake

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vbonduro/productreg/internal/domain"
)

// Candidate is one incoming file from a drop or picker event.
type Candidate struct {
	Name      string
	MediaType string
	Size      int64
	Content   io.Reader
}

// Limits caps the staged collection. Zero values disable a cap.
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
}

// blobStore is the subset of stagestore.Store the controller requires.
type blobStore interface {
	Save(ctx context.Context, prefix, mediaType string, r io.Reader) (string, error)
	Delete(ctx context.Context, storageKey string) error
}

// NormalizeMediaType lowercases a declared type and strips its parameters.
func NormalizeMediaType(declared string) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return mt
}

// checkBatch returns the message explaining why batch must be rejected, or ""
// if every candidate is admissible.
func (l Limits) checkBatch(staged int, batch []Candidate) string {
	for _, c := range batch {
		if !domain.AllowedMediaTypes[NormalizeMediaType(c.MediaType)] {
			return msgFileTypes
		}
	}
	if l.MaxFileBytes > 0 {
		for _, c := range batch {
			if c.Size > l.MaxFileBytes {
				return fmt.Sprintf("Each file must be at most %s", humanize.IBytes(uint64(l.MaxFileBytes)))
			}
		}
	}
	if l.MaxFiles > 0 && staged+len(batch) > l.MaxFiles {
		return fmt.Sprintf("At most %d files can be attached", l.MaxFiles)
	}
	return ""
}

// StageFiles admits batch as a whole or not at all. Drops and picker
// selections both go through here. A rejected batch leaves the staged
// collection unchanged and sets the files error; it returns ErrInvalid.
func (c *Controller) StageFiles(ctx context.Context, batch []Candidate) error {
	if len(batch) == 0 {
		return nil
	}

	c.mu.Lock()
	msg := c.limits.checkBatch(len(c.files), batch)
	if msg != "" {
		c.errs[domain.FieldFiles] = msg
		c.mu.Unlock()
		c.logger.Info("file batch rejected", "files", len(batch), "reason", msg)
		return ErrInvalid
	}
	c.mu.Unlock()

	staged := make([]domain.StagedFile, 0, len(batch))
	for _, cand := range batch {
		mediaType := NormalizeMediaType(cand.MediaType)
		key, err := c.blobs.Save(ctx, c.prefix, mediaType, cand.Content)
		if err != nil {
			c.discard(ctx, staged)
			c.mu.Lock()
			c.errs[domain.FieldFiles] = msgFileStorage
			c.mu.Unlock()
			return fmt.Errorf("failed to stage %q: %w", cand.Name, err)
		}
		staged = append(staged, domain.StagedFile{
			Name:       cand.Name,
			MediaType:  mediaType,
			Size:       cand.Size,
			StorageKey: key,
			StagedAt:   time.Now(),
		})
	}

	c.mu.Lock()
	// Another batch may have been admitted while this one was being stored.
	if msg := c.limits.checkBatch(len(c.files), batch); msg != "" {
		c.errs[domain.FieldFiles] = msg
		c.mu.Unlock()
		c.discard(ctx, staged)
		return ErrInvalid
	}
	c.files = append(c.files, staged...)
	delete(c.errs, domain.FieldFiles)
	total := len(c.files)
	c.mu.Unlock()

	c.logger.Debug("file batch staged", "files", len(staged), "total", total)
	return nil
}

// discard deletes the blobs behind files, logging failures.
func (c *Controller) discard(ctx context.Context, files []domain.StagedFile) {
	for _, f := range files {
		if err := c.blobs.Delete(ctx, f.StorageKey); err != nil {
			c.logger.Error("failed to delete staged file", "storage_key", f.StorageKey, "error", err)
		}
	}
}
