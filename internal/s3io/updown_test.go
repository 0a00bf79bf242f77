package s3io_test

import (
	"bytes"
	"context"
	"crypto/md5"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/require"
	"testing"

	"github.com/studio1767/s3site/internal/s3io"
)

// TestUploadHeadDelete runs against a real bucket when S3SITE_TEST_BUCKET is
// set, using the optional S3SITE_TEST_PROFILE for credentials.
func TestUploadHeadDelete(t *testing.T) {
	bucket := os.Getenv("S3SITE_TEST_BUCKET")
	if bucket == "" {
		t.Skip("S3SITE_TEST_BUCKET not set")
	}
	profile := os.Getenv("S3SITE_TEST_PROFILE")

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx, config.WithSharedConfigProfile(profile))
	require.NoError(t, err)

	client := s3io.NewClient(cfg)
	region, err := client.BucketRegion(ctx, bucket)
	require.NoError(t, err)
	client = client.ForRegion(region)

	// generate a key to test with
	now := time.Now()
	key := fmt.Sprintf("test-%s/page.html", now.Format("20060102150405"))

	object, err := client.Head(ctx, bucket, key)
	require.NoError(t, err)
	require.Nil(t, object)

	data := make([]byte, 64*1024)
	_, err = crand.Read(data)
	require.NoError(t, err)
	sum := md5.Sum(data)
	fingerprint := hex.EncodeToString(sum[:])

	size, err := client.Upload(ctx, bucket, key, bytes.NewReader(data), s3io.UploadOptions{
		ContentType: "text/html",
		Fingerprint: fingerprint,
		Size:        int64(len(data)),
	})
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), size)

	object, err = client.Head(ctx, bucket, key)
	require.NoError(t, err)
	require.NotNil(t, object)
	require.Equal(t, fingerprint, object.Fingerprint)
	require.Equal(t, "text/html", object.ContentType)

	require.NoError(t, client.Delete(ctx, bucket, key))
}
