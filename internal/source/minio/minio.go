// Package minio reads images from an S3-compatible bucket.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hejijunhao/tagger/internal/model"
	"github.com/hejijunhao/tagger/internal/source"
)

func init() {
	source.Register("minio", func(cfg source.Config) (source.Source, error) {
		return New(cfg)
	})
}

// objectStore is the slice of the minio client this package calls.
type objectStore interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// Source lists objects under a bucket prefix.
type Source struct {
	store  objectStore
	bucket string
	prefix string
}

// New creates a minio client from cfg.
func New(cfg source.Config) (*Source, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, model.WrapError(model.ErrConfiguration, "minio.new",
			errors.New("endpoint and bucket are required"))
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, model.WrapError(model.ErrConfiguration, "minio.new", err)
	}
	return newSource(client, cfg.Bucket, cfg.Prefix), nil
}

func newSource(store objectStore, bucket, prefix string) *Source {
	return &Source{store: store, bucket: bucket, prefix: prefix}
}

// List returns image object keys under the prefix, sorted.
func (s *Source) List(ctx context.Context) ([]string, error) {
	var keys []string
	objects := s.store.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %s/%s: %w", s.bucket, s.prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") || !source.IsImage(obj.Key) {
			continue
		}
		keys = append(keys, obj.Key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// Open streams the object. GetObject is lazy, so Stat is called up front to
// surface a missing key here rather than on first read.
func (s *Source) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.store.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio: get %s: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, model.WrapError(model.ErrInput, "minio.open", err)
		}
		return nil, fmt.Errorf("minio: stat %s: %w", key, err)
	}
	return obj, nil
}
