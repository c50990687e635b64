package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

// Storage keeps documents in one bucket, one prefix per category.
type Storage struct {
	client *storage.Client
	bucket string
}

func New(ctx context.Context, bucket string) (*Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs storage: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &Storage{client: client, bucket: bucket}, nil
}

func (s *Storage) Save(ctx context.Context, key string, data io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", mapError("write object", err)
	}
	if err := w.Close(); err != nil {
		return "", mapError("finalize object", err)
	}
	return ObjectURI(s.bucket, key), nil
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, mapError("open object", err)
	}
	return r, nil
}

func (s *Storage) Locate(key string) (string, error) {
	if key == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "locate object", fmt.Errorf("empty key"))
	}
	return ObjectURI(s.bucket, key), nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func ObjectURI(bucket, key string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, key)
}

func mapError(op string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return domain.WrapError(domain.ErrNotFound, op, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return domain.WrapError(domain.ErrTemporary, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// OpenObject reads an object from any bucket the client can access.
// The intake function uses it for inbox objects outside the document bucket.
func (s *Storage) OpenObject(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, mapError("open inbox object", err)
	}
	return r, nil
}

// Bucket returns the document bucket name.
func (s *Storage) Bucket() string {
	return s.bucket
}
