// Package blob provides the MinIO-backed object store the pipeline reads
// raw data from and writes every tier's outputs to.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/citylake/traffic-weather-etl/internal/domain"
)

// Options configures the MinIO client.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Store implements domain.ObjectStore over a MinIO (or S3-compatible)
// endpoint.
type Store struct {
	client *minio.Client
	logger *slog.Logger
}

func NewStore(opts Options, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return &Store{client: client, logger: logger}, nil
}

func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	infos, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, connectivityErr("listing buckets", err)
	}
	names := make([]string, 0, len(infos))
	for _, b := range infos {
		names = append(names, b.Name)
	}
	return names, nil
}

func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, connectivityErr(fmt.Sprintf("checking bucket %q", bucket), err)
	}
	return ok, nil
}

// EnsureBucket creates the bucket when absent. Creation races with other
// writers are tolerated.
func (s *Store) EnsureBucket(ctx context.Context, bucket string) error {
	ok, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		exists, checkErr := s.client.BucketExists(ctx, bucket)
		if checkErr == nil && exists {
			return nil
		}
		return connectivityErr(fmt.Sprintf("creating bucket %q", bucket), err)
	}
	s.logger.Info("bucket created", "bucket", bucket)
	return nil
}

func (s *Store) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, connectivityErr(fmt.Sprintf("getting %s/%s", bucket, key), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (s *Store) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return connectivityErr(fmt.Sprintf("putting %s/%s", bucket, key), err)
	}
	s.logger.Debug("object written", "bucket", bucket, "key", key, "bytes", len(data))
	return nil
}

func (s *Store) ListObjects(ctx context.Context, bucket string) ([]string, error) {
	var keys []string
	for info := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return nil, connectivityErr(fmt.Sprintf("listing bucket %q", bucket), info.Err)
		}
		keys = append(keys, info.Key)
	}
	return keys, nil
}

func connectivityErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

var _ domain.ObjectStore = (*Store)(nil)
