package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// s3Client defines the S3 operations used by S3Gateway.
// This interface allows for mocking in tests.
type s3Client interface {
	HeadBucket(
		ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options),
	) (*s3.HeadBucketOutput, error)
	CreateBucket(
		ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options),
	) (*s3.CreateBucketOutput, error)
	PutObject(
		ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
	GetObject(
		ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options),
	) (*s3.GetObjectOutput, error)
}

// S3Gateway implements Gateway using Amazon S3 or compatible services.
type S3Gateway struct {
	client s3Client
	region string
}

// NewS3Gateway creates a new S3-backed Gateway.
func NewS3Gateway(ctx context.Context, cfg Config) (*S3Gateway, error) {
	if cfg.Region == "" {
		return nil, errors.New("region is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	// Add explicit credentials if provided
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.Contains(endpoint, "://") {
			scheme := "http://"
			if cfg.UseSSL {
				scheme = "https://"
			}
			endpoint = scheme + endpoint
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &S3Gateway{client: client, region: cfg.Region}, nil
}

func (g *S3Gateway) EnsureContainer(ctx context.Context, name string) (bool, error) {
	_, err := g.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err == nil {
		return false, nil
	}
	if !isS3NotFound(err) {
		return false, fmt.Errorf("%w: s3 head bucket %s: %v", ErrStoreUnavailable, name, err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// us-east-1 rejects an explicit location constraint.
	if g.region != "" && g.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(g.region),
		}
	}
	if _, err := g.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return false, nil
		}
		return false, fmt.Errorf("%w: s3 create bucket %s: %v", ErrStoreUnavailable, name, err)
	}
	return true, nil
}

func (g *S3Gateway) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(container),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("%w: s3 put %s/%s: %v", ErrStore, container, key, err)
	}
	return nil
}

func (g *S3Gateway) Get(ctx context.Context, container, key string) ([]byte, error) {
	output, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, key)
		}
		return nil, fmt.Errorf("%w: s3 get %s/%s: %v", ErrStore, container, key, err)
	}
	defer func() { _ = output.Body.Close() }()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 read body: %v", ErrStore, err)
	}
	return data, nil
}

func (g *S3Gateway) Close() error {
	return nil
}

// isS3NotFound returns true if the error indicates the object or bucket does not exist.
func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	// S3-compatible services may answer with an untyped API error.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}

var _ Gateway = (*S3Gateway)(nil)
