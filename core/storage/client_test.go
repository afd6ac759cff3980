package storage_test

import (
	"errors"
	"fmt"
	"testing"

	"repo-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    false,
			Bucket:    "test-bucket",
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTP", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "http://localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestParseObjectURI(t *testing.T) {
	bucket, object, err := storage.ParseObjectURI("s3://repositories/manifests/batman-repo.yml")
	require.NoError(t, err)
	assert.Equal(t, "repositories", bucket)
	assert.Equal(t, "manifests/batman-repo.yml", object)

	for _, bad := range []string{
		"https://repositories/manifests/a.yml",
		"s3://repositories",
		"s3:///a.yml",
		"::not a uri",
	} {
		_, _, err := storage.ParseObjectURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, storage.IsNotFound(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}))
	assert.True(t, storage.IsNotFound(fmt.Errorf("wrapped: %w", minio.ErrorResponse{Code: "NoSuchBucket"})))
	assert.False(t, storage.IsNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}))
	assert.False(t, storage.IsNotFound(errors.New("connection reset")))
	assert.False(t, storage.IsNotFound(nil))
}
