package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client implements s3Client with overridable function fields.
type mockS3Client struct {
	buckets map[string]bool
	objects map[string][]byte

	headBucketFunc func(ctx context.Context, params *s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	createFunc     func(ctx context.Context, params *s3.CreateBucketInput) (*s3.CreateBucketOutput, error)
	putFunc        func(ctx context.Context, params *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	getFunc        func(ctx context.Context, params *s3.GetObjectInput) (*s3.GetObjectOutput, error)
}

func newMockS3Client() *mockS3Client {
	m := &mockS3Client{
		buckets: make(map[string]bool),
		objects: make(map[string][]byte),
	}
	m.headBucketFunc = func(_ context.Context, params *s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
		if !m.buckets[*params.Bucket] {
			return nil, &types.NotFound{}
		}
		return &s3.HeadBucketOutput{}, nil
	}
	m.createFunc = func(_ context.Context, params *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
		m.buckets[*params.Bucket] = true
		return &s3.CreateBucketOutput{}, nil
	}
	m.putFunc = func(_ context.Context, params *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		data, err := io.ReadAll(params.Body)
		if err != nil {
			return nil, err
		}
		m.objects[*params.Bucket+"/"+*params.Key] = data
		return &s3.PutObjectOutput{}, nil
	}
	m.getFunc = func(_ context.Context, params *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		data, ok := m.objects[*params.Bucket+"/"+*params.Key]
		if !ok {
			return nil, &types.NoSuchKey{}
		}
		return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
	}
	return m
}

func (m *mockS3Client) HeadBucket(
	ctx context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options),
) (*s3.HeadBucketOutput, error) {
	return m.headBucketFunc(ctx, params)
}

func (m *mockS3Client) CreateBucket(
	ctx context.Context, params *s3.CreateBucketInput, _ ...func(*s3.Options),
) (*s3.CreateBucketOutput, error) {
	return m.createFunc(ctx, params)
}

func (m *mockS3Client) PutObject(
	ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	return m.putFunc(ctx, params)
}

func (m *mockS3Client) GetObject(
	ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	return m.getFunc(ctx, params)
}

func newTestS3Gateway(region string) (*S3Gateway, *mockS3Client) {
	mock := newMockS3Client()
	return &S3Gateway{client: mock, region: region}, mock
}

func TestS3Gateway_EnsureContainer(t *testing.T) {
	ctx := context.Background()
	g, mock := newTestS3Gateway("us-east-1")

	var gotInput *s3.CreateBucketInput
	create := mock.createFunc
	mock.createFunc = func(ctx context.Context, params *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
		gotInput = params
		return create(ctx, params)
	}

	created, err := g.EnsureContainer(ctx, "datalake")
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, gotInput)
	assert.Nil(t, gotInput.CreateBucketConfiguration)

	created, err = g.EnsureContainer(ctx, "datalake")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestS3Gateway_EnsureContainerLocationConstraint(t *testing.T) {
	g, mock := newTestS3Gateway("eu-west-1")

	var gotInput *s3.CreateBucketInput
	mock.createFunc = func(_ context.Context, params *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
		gotInput = params
		return &s3.CreateBucketOutput{}, nil
	}

	_, err := g.EnsureContainer(context.Background(), "datalake")
	require.NoError(t, err)
	require.NotNil(t, gotInput.CreateBucketConfiguration)
	assert.Equal(t, types.BucketLocationConstraint("eu-west-1"),
		gotInput.CreateBucketConfiguration.LocationConstraint)
}

func TestS3Gateway_EnsureContainerAlreadyOwned(t *testing.T) {
	g, mock := newTestS3Gateway("us-east-1")
	mock.createFunc = func(context.Context, *s3.CreateBucketInput) (*s3.CreateBucketOutput, error) {
		return nil, &types.BucketAlreadyOwnedByYou{}
	}

	created, err := g.EnsureContainer(context.Background(), "datalake")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestS3Gateway_EnsureContainerUnavailable(t *testing.T) {
	g, mock := newTestS3Gateway("us-east-1")
	mock.headBucketFunc = func(context.Context, *s3.HeadBucketInput) (*s3.HeadBucketOutput, error) {
		return nil, errors.New("dial tcp 127.0.0.1:9000: connection refused")
	}

	_, err := g.EnsureContainer(context.Background(), "datalake")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestS3Gateway_PutGet(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestS3Gateway("us-east-1")

	require.NoError(t, g.Put(ctx, "datalake", "sample_data.csv", []byte("a\n1\n"), "text/csv"))
	require.NoError(t, g.Put(ctx, "datalake", "sample_data.csv", []byte("a\n2\n"), "text/csv"))

	data, err := g.Get(ctx, "datalake", "sample_data.csv")
	require.NoError(t, err)
	assert.Equal(t, "a\n2\n", string(data))
}

func TestS3Gateway_PutContentType(t *testing.T) {
	g, mock := newTestS3Gateway("us-east-1")
	var contentType string
	mock.putFunc = func(_ context.Context, params *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		contentType = *params.ContentType
		return &s3.PutObjectOutput{}, nil
	}

	require.NoError(t, g.Put(context.Background(), "b", "k", []byte("x"), "text/csv"))
	assert.Equal(t, "text/csv", contentType)
}

func TestS3Gateway_PutError(t *testing.T) {
	g, mock := newTestS3Gateway("us-east-1")
	mock.putFunc = func(context.Context, *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("access denied")
	}

	err := g.Put(context.Background(), "b", "k", []byte("x"), "text/csv")
	assert.ErrorIs(t, err, ErrStore)
}

func TestS3Gateway_GetNotFound(t *testing.T) {
	g, _ := newTestS3Gateway("us-east-1")

	_, err := g.Get(context.Background(), "datalake", "missing.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestS3Gateway_GetError(t *testing.T) {
	g, mock := newTestS3Gateway("us-east-1")
	mock.getFunc = func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return nil, errors.New("timeout")
	}

	_, err := g.Get(context.Background(), "datalake", "k")
	assert.ErrorIs(t, err, ErrStore)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestS3Gateway_GetClosesBodyOnReadFailure(t *testing.T) {
	g, mock := newTestS3Gateway("us-east-1")
	body := &trackingBody{Reader: failingReader{}}
	mock.getFunc = func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return &s3.GetObjectOutput{Body: body}, nil
	}

	_, err := g.Get(context.Background(), "datalake", "k")
	assert.ErrorIs(t, err, ErrStore)
	assert.True(t, body.closed)
}

func TestNewS3Gateway_RequiresRegion(t *testing.T) {
	_, err := NewS3Gateway(context.Background(), Config{Backend: BackendS3})
	assert.Error(t, err)
}

func TestNewS3Gateway(t *testing.T) {
	g, err := NewS3Gateway(context.Background(), Config{
		Backend:      BackendS3,
		Endpoint:     "localhost:9000",
		Region:       "us-east-1",
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, g.client)
	assert.NoError(t, g.Close())
}

func TestIsS3NotFound(t *testing.T) {
	assert.True(t, isS3NotFound(&types.NoSuchKey{}))
	assert.True(t, isS3NotFound(&types.NoSuchBucket{}))
	assert.True(t, isS3NotFound(&types.NotFound{}))
	assert.True(t, isS3NotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.True(t, isS3NotFound(fmt.Errorf("operation error S3: GetObject: %w", &smithy.GenericAPIError{Code: "NotFound"})))
	assert.False(t, isS3NotFound(&smithy.GenericAPIError{Code: "AccessDenied", Message: "key NotFound in policy"}))
	assert.False(t, isS3NotFound(errors.New("api error NoSuchKey: gone")))
	assert.False(t, isS3NotFound(errors.New("UserNotFound: no such user")))
	assert.False(t, isS3NotFound(errors.New("access denied")))
}
