package delivery

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Uploader pushes files into an S3/MinIO bucket and hands out presigned GET
// links. It is the remote-upload strategy for operators who run their own
// object store instead of relying on a public anonymous endpoint.
type S3Uploader struct {
	client        *minio.Client
	bucket        string
	region        string
	expiry        time.Duration
	uploadTimeout time.Duration
}

// S3Config carries the object-store connection settings.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// LinkExpiry bounds the presigned URL lifetime; zero means seven days,
	// the S3 maximum.
	LinkExpiry time.Duration
	// UploadTimeout bounds one upload call end to end; zero means five
	// minutes. A stalled endpoint must never hold a worker hostage.
	UploadTimeout time.Duration
}

// NewS3Uploader creates a MinIO-backed uploader.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	expiry := cfg.LinkExpiry
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = 5 * time.Minute
	}
	return &S3Uploader{
		client:        client,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		expiry:        expiry,
		uploadTimeout: uploadTimeout,
	}, nil
}

// EnsureBucket makes sure the delivery bucket exists before first use.
func (s *S3Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload implements Uploader: stream the file in, presign a GET out.
func (s *S3Uploader) Upload(ctx context.Context, path string, _ int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	name := filepath.Base(path)
	objectKey := uuid.NewString() + "/" + name
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.FPutObject(ctx, s.bucket, objectKey, path, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("upload object %s: %w", objectKey, err)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", objectKey, err)
	}
	return u.String(), nil
}
