package checks

import (
	"context"
	"errors"
	"testing"

	"repo-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func emptyListing() <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	close(ch)
	return ch
}

func TestCheckStructure(t *testing.T) {
	t.Run("Bucket Missing", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "repositories").Return(false, nil)

		_, err := CheckStructure(context.Background(), mockClient, "repositories")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("Bucket Error", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "repositories").Return(false, errors.New("connection refused"))

		_, err := CheckStructure(context.Background(), mockClient, "repositories")
		assert.ErrorContains(t, err, "failed to check bucket existence")
	})

	t.Run("All Missing", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "repositories").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "repositories", mock.Anything).Return(emptyListing())

		missing, err := CheckStructure(context.Background(), mockClient, "repositories")
		assert.NoError(t, err)
		assert.Equal(t, RequiredFolders, missing)
	})

	t.Run("All Present", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "repositories").Return(true, nil)

		for _, folder := range RequiredFolders {
			ch := make(chan minio.ObjectInfo, 1)
			ch <- minio.ObjectInfo{Key: folder + "/"}
			close(ch)
			prefix := folder + "/"
			mockClient.On("ListObjects", mock.Anything, "repositories", mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
				return opts.Prefix == prefix
			})).Return((<-chan minio.ObjectInfo)(ch))
		}

		missing, err := CheckStructure(context.Background(), mockClient, "repositories")
		assert.NoError(t, err)
		assert.Empty(t, missing)
	})
}

func TestFixStructure(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("PutObject", mock.Anything, "repositories", "manifests/", mock.Anything, int64(0), mock.Anything).
		Return(minio.UploadInfo{}, nil)

	err := FixStructure(context.Background(), mockClient, "repositories", zap.NewNop(), []string{"manifests"})
	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestFixStructure_Error(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("PutObject", mock.Anything, "repositories", "manifests/", mock.Anything, int64(0), mock.Anything).
		Return(minio.UploadInfo{}, errors.New("access denied"))

	err := FixStructure(context.Background(), mockClient, "repositories", zap.NewNop(), []string{"manifests"})
	assert.EqualError(t, err, "access denied")
}
