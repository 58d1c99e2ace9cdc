package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioClient defines the MinIO operations used by MinioGateway.
// This interface allows for mocking in tests.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(
		ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
}

// objectOpener returns a stream over a stored object. The caller closes it.
type objectOpener func(ctx context.Context, bucket, key string) (io.ReadCloser, error)

// MinioGateway implements Gateway with the MinIO client.
type MinioGateway struct {
	client minioClient
	open   objectOpener
	region string
}

// NewMinioGateway creates a MinIO-backed Gateway for cfg.Endpoint.
func NewMinioGateway(cfg Config) (*MinioGateway, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, minioOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("initialize minio client: %w", err)
	}
	return &MinioGateway{client: client, open: minioOpener(client), region: cfg.Region}, nil
}

// minioOptions maps cfg onto client options. UsePathStyle forces path-style
// bucket addressing; otherwise the client picks per endpoint.
func minioOptions(cfg Config) *minio.Options {
	opts := &minio.Options{
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	}
	if cfg.UsePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	return opts
}

// minioOpener fetches the object and stats it, since a missing key is only
// reported by the first request on the stream.
func minioOpener(c *minio.Client) objectOpener {
	return func(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
		obj, err := c.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		if _, err := obj.Stat(); err != nil {
			_ = obj.Close()
			return nil, err
		}
		return obj, nil
	}
}

func (g *MinioGateway) EnsureContainer(ctx context.Context, name string) (bool, error) {
	exists, err := g.client.BucketExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: bucket exists %s: %v", ErrStoreUnavailable, name, err)
	}
	if exists {
		return false, nil
	}

	if err := g.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: g.region}); err != nil {
		// Lost a race with another creator; the bucket is there either way.
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return false, nil
		}
		return false, fmt.Errorf("%w: make bucket %s: %v", ErrStoreUnavailable, name, err)
	}
	return true, nil
}

func (g *MinioGateway) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	_, err := g.client.PutObject(ctx, container, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("%w: minio put %s/%s: %v", ErrStore, container, key, err)
	}
	return nil
}

func (g *MinioGateway) Get(ctx context.Context, container, key string) ([]byte, error) {
	body, err := g.open(ctx, container, key)
	if err != nil {
		if isMinioNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, key)
		}
		return nil, fmt.Errorf("%w: minio get %s/%s: %v", ErrStore, container, key, err)
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: minio read body: %v", ErrStore, err)
	}
	return data, nil
}

func (g *MinioGateway) Close() error {
	return nil
}

// isMinioNotFound returns true if the error means the key or bucket is missing.
func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return resp.StatusCode == http.StatusNotFound
}

var _ Gateway = (*MinioGateway)(nil)
