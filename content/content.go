// Package content serves long-form blog markdown from a directory or an
// S3-compatible bucket.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned when no markdown exists for a slug.
var ErrNotFound = errors.New("content not found")

// Store returns the markdown body for a blog post slug.
type Store interface {
	Get(ctx context.Context, slug string) (string, error)
}

func validSlug(slug string) bool {
	return slug != "" && !strings.ContainsAny(slug, `/\`) && !strings.Contains(slug, "..")
}

// DirStore reads <dir>/<slug>.md.
type DirStore struct {
	Dir string
}

func (s DirStore) Get(ctx context.Context, slug string) (string, error) {
	if !validSlug(slug) {
		return "", ErrNotFound
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, slug+".md"))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", slug, err)
	}
	return string(b), nil
}

// NoopStore has no content.
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) (string, error) { return "", ErrNotFound }

// MinioConfig locates the bucket holding blog/<slug>.md objects.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore reads blog/<slug>.md from a bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the bucket and verifies it exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to minio: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// ObjectKey is the bucket key for a slug.
func ObjectKey(slug string) string {
	return "blog/" + slug + ".md"
}

func (s *MinioStore) Get(ctx context.Context, slug string) (string, error) {
	if !validSlug(slug) {
		return "", ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, ObjectKey(slug), minio.GetObjectOptions{})
	if err != nil {
		return "", classify(slug, err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		return "", classify(slug, err)
	}
	return string(b), nil
}

func classify(slug string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return fmt.Errorf("get %s: %w", ObjectKey(slug), err)
}
