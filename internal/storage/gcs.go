package storage

import (
	"context"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSStore keeps CV files private; readers get short-lived signed URLs.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: c, bucket: bucket}, nil
}

func (s *GCSStore) Close() error { return s.client.Close() }

// Upload returns the object key, not a URL.
func (s *GCSStore) Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return objectName, nil
}

func (s *GCSStore) SignedGetURL(_ context.Context, objectName string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return s.client.Bucket(s.bucket).SignedURL(objectName, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
}
