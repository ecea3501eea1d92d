package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/productreg/internal/stagestore"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "staged/abc/f.png", ObjectKey("abc", "f.png"))
	assert.Equal(t, "staged/etc/f.png", ObjectKey("../../etc", "f.png"))
	assert.Equal(t, "staged/anonymous/f.png", ObjectKey("", "f.png"))
}

func TestNewDoesNotDial(t *testing.T) {
	store, err := New(Options{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "staged",
	})
	require.NoError(t, err)
	assert.Equal(t, "staged", store.bucket)
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New(Options{Endpoint: "http://localhost:9000/path", Bucket: "b"})
	assert.Error(t, err)
}

// TestStoreLive runs against a real MinIO server when MINIO_TEST_ENDPOINT is
// set, e.g. "localhost:9000".
func TestStoreLive(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set")
	}
	accessKey := os.Getenv("MINIO_TEST_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "minioadmin"
	}
	secretKey := os.Getenv("MINIO_TEST_SECRET_KEY")
	if secretKey == "" {
		secretKey = "minioadmin"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bucket := "productreg-test-" + uuid.NewString()[:8]
	store, err := New(Options{Endpoint: endpoint, AccessKey: accessKey, SecretKey: secretKey, Bucket: bucket})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))
	require.NoError(t, store.EnsureBucket(ctx))
	t.Cleanup(func() { _ = store.client.RemoveBucket(context.Background(), bucket) })

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	key, err := store.Save(ctx, "session-1", "image/png", bytes.NewReader(png))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "staged/session-1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	rc, mediaType, err := store.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, png, got)

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, stagestore.ErrNotFound)
}
