package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
)

// ScreenshotClient stores submission evidence captures in MinIO/S3
type ScreenshotClient struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewScreenshotClient creates a new object storage client
func NewScreenshotClient(cfg config.StorageConfig) (*ScreenshotClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &ScreenshotClient{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.ScreenshotPath,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (c *ScreenshotClient) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket existence: %w", err)
	}

	if !exists {
		err = c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
	}

	return nil
}

// SaveScreenshot uploads a capture for a submission stage and returns the
// S3-style URI. The timestamp in the key keeps repeat captures of the same
// stage from overwriting each other.
func (c *ScreenshotClient) SaveScreenshot(ctx context.Context, submissionID uuid.UUID, stage string, png []byte) (string, error) {
	key := path.Join(
		c.prefix,
		"submissions",
		submissionID.String(),
		fmt.Sprintf("%s_%d.png", stage, time.Now().UTC().UnixMilli()),
	)

	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(png), int64(len(png)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("uploading screenshot: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}

// Download downloads an object from storage
func (c *ScreenshotClient) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

// Delete deletes an object from storage
func (c *ScreenshotClient) Delete(ctx context.Context, key string) error {
	return c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}

// GetPresignedURL returns a presigned URL for downloading a capture
func (c *ScreenshotClient) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := c.client.PresignedGetObject(ctx, c.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("generating presigned URL: %w", err)
	}
	return url.String(), nil
}

// ListScreenshots lists all capture keys for a submission
func (c *ScreenshotClient) ListScreenshots(ctx context.Context, submissionID uuid.UUID) ([]string, error) {
	var keys []string

	prefix := path.Join(c.prefix, "submissions", submissionID.String()) + "/"
	objectCh := c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		keys = append(keys, object.Key)
	}

	return keys, nil
}
