// Package blob reads and deletes synthesis output objects by URI. URIs are
// bucket-addressed ("gs://bucket/object" or "s3://bucket/object"); the
// scheme is ignored, only bucket and object key matter.
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds object storage configuration.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type Store struct {
	client *minio.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	return &Store{
		client: client,
		logger: logger.With("component", "blob_store"),
	}, nil
}

// Read opens the object for streaming. The caller closes the reader.
func (s *Store) Read(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", uri, err)
	}

	// GetObject is lazy; stat to surface missing-object errors now.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat object %s: %w", uri, err)
	}

	return obj, nil
}

func (s *Store) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	reader, err := s.Read(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", uri, err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, uri string) error {
	bucket, object, err := parseURI(uri)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %s: %w", uri, err)
	}

	s.logger.Debug("deleted object", "uri", uri)
	return nil
}

func parseURI(uri string) (bucket, object string, err error) {
	trimmed := uri
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}

	bucket, object, found := strings.Cut(trimmed, "/")
	if !found || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed blob uri: %s", uri)
	}
	return bucket, object, nil
}
