package s3store

import (
	"context"
	"errors"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *S3Store {
	t.Helper()
	s, err := New(context.Background(), Config{
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		Bucket:       "sharethings",
		AccessKey:    "minio",
		SecretKey:    "minio123",
	})
	require.NoError(t, err)
	return s
}

func TestPresignedPutURL(t *testing.T) {
	orig := presignPutObject
	defer func() { presignPutObject = orig }()

	var gotBucket, gotKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket = *in.Bucket
		gotKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "https://signed.example/put"}, nil
	}

	s := newTestStore(t)
	url, err := s.PresignedPutURL(context.Background(), "content-1")
	require.NoError(t, err)

	assert.Equal(t, "https://signed.example/put", url)
	assert.Equal(t, "sharethings", gotBucket)
	assert.Equal(t, "content-1", gotKey)
}

func TestPresignedGetURL_Error(t *testing.T) {
	orig := presignGetObject
	defer func() { presignGetObject = orig }()

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("signer unavailable")
	}

	s := newTestStore(t)
	_, err := s.PresignedGetURL(context.Background(), "content-1")
	assert.Error(t, err)
}
