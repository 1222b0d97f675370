package s3backend

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	backendtesting "github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/testing"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	b := &s3Backend{prefix: "skydream"}
	key, err := b.objectKey("/root/owners/A/profile")
	require.NoError(t, err)
	assert.Equal(t, "skydream/root/owners/A/profile", key)

	b = &s3Backend{}
	key, err = b.objectKey("root/index")
	require.NoError(t, err)
	assert.Equal(t, "root/index", key)

	_, err = b.objectKey("root/../secret")
	assert.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}))
	assert.False(t, isNotFound(errors.New("connection refused")))
}

// TestS3Backend runs the conformance suite against a real object store, e.g.
// SKYDREAM_TEST_S3_ENDPOINT=localhost:9000 with a local MinIO.
func TestS3Backend(t *testing.T) {
	endpoint := os.Getenv("SKYDREAM_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("SKYDREAM_TEST_S3_ENDPOINT not set")
	}
	backendtesting.RunBackendTests(t, "S3Backend", func(t *testing.T) backend.IBackend {
		b, err := NewS3Backend(context.Background(), Options{
			Endpoint:  endpoint,
			AccessKey: os.Getenv("SKYDREAM_TEST_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("SKYDREAM_TEST_S3_SECRET_KEY"),
			Bucket:    "skydream-test",
			Prefix:    uuid.NewString(),
		})
		require.NoError(t, err)
		return b
	})
}
