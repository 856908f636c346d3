package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/forthrightphysio-crypto/pushrelay/internal/models"
)

// Config carries the S3-compatible endpoint settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore resolves logical names to object metadata and fetches byte
// windows from the bucket.
type MinioStore struct {
	cl     *minio.Client
	bucket string
}

func NewMinioStore(cfg Config) (*MinioStore, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{cl: cl, bucket: cfg.Bucket}, nil
}

// Stat resolves a logical name to its size and content type. A missing object
// maps to ErrNotFound; a failed provider call maps to ErrUpstreamUnavailable
// so the caller can answer 5xx instead of 404.
func (s *MinioStore) Stat(ctx context.Context, name string) (models.MediaObject, error) {
	info, err := s.cl.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		return models.MediaObject{}, classify(name, err)
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = TypeByName(name)
	}
	return models.MediaObject{
		Name:        name,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

// Fetch opens the complete object stream.
func (s *MinioStore) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.cl.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(name, err)
	}
	return obj, nil
}

// FetchRange opens a stream for the inclusive byte window [start, end].
func (s *MinioStore) FetchRange(ctx context.Context, name string, start, end int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, fmt.Errorf("set range %d-%d: %w", start, end, err)
	}
	obj, err := s.cl.GetObject(ctx, s.bucket, name, opts)
	if err != nil {
		return nil, classify(name, err)
	}
	return obj, nil
}

func classify(name string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("object %q: %w", name, models.ErrNotFound)
		}
	}
	return fmt.Errorf("object %q: %w: %v", name, models.ErrUpstreamUnavailable, err)
}

// TypeByName maps a file-name extension to a MIME type, defaulting to a raw
// byte stream when the extension is unknown.
func TypeByName(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
