// Package s3 stages intake files in an S3-compatible bucket via MinIO.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vbonduro/productreg/internal/stagestore"
)

// Options configures the MinIO client.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Store wraps a single bucket holding staged files.
type Store struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client for opts. It does not contact the server.
func New(opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Store{client: client, bucket: opts.Bucket, region: opts.Region}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Save buffers r so the upload is a single PUT of known size. Staged files
// are capped well below the multipart threshold.
func (s *Store) Save(ctx context.Context, prefix, mediaType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read staged file: %w", err)
	}
	key := ObjectKey(prefix, uuid.NewString()+stagestore.ExtForMediaType(mediaType))
	opts := minio.PutObjectOptions{ContentType: mediaType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("upload staged object: %w", err)
	}
	return key, nil
}

func (s *Store) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get staged object: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", stagestore.ErrNotFound
		}
		return nil, "", fmt.Errorf("stat staged object: %w", err)
	}
	mediaType := info.ContentType
	if mediaType == "" {
		mediaType = stagestore.MediaTypeForKey(storageKey)
	}
	return obj, mediaType, nil
}

func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove staged object: %w", err)
	}
	return nil
}

// ObjectKey builds "staged/<prefix>/<name>", flattening any path in prefix.
func ObjectKey(prefix, name string) string {
	p := path.Base(path.Clean("/" + prefix))
	if p == "/" || p == "." {
		p = "anonymous"
	}
	return path.Join("staged", p, name)
}
