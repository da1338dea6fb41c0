package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"prepple/interview-api/internal/apperr"
)

type s3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store keeps résumés in an S3-compatible bucket (AWS, MinIO,
// Supabase storage's S3 endpoint) and presigns them on demand.
func NewS3Store(endpoint, accessKey, secretKey, region, bucket string, useSSL bool) (ResumeStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create s3 client: %w", apperr.ErrConfiguration, err)
	}

	return &s3Store{client: client, bucket: bucket}, nil
}

// Stat implements ObjectSigner.
func (s *s3Store) Stat(ctx context.Context, objectPath string) error {
	_, err := s.client.StatObject(ctx, s.bucket, objectPath, minio.StatObjectOptions{})
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey", resp.Code == "NoSuchBucket", resp.Code == "AccessDenied",
		resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s/%s: %s", apperr.ErrAccessDenied, s.bucket, objectPath, resp.Code)
	default:
		return fmt.Errorf("%w: storage backend unreachable: %w", apperr.ErrConfiguration, err)
	}
}

// Sign implements ObjectSigner. The expiry is counted by the storage
// backend from the moment of presigning.
func (s *s3Store) Sign(ctx context.Context, objectPath string, _ time.Time, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectPath, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: failed to presign object: %w", apperr.ErrConfiguration, err)
	}
	return u.String(), nil
}

// MaxTTL implements ObjectSigner. SigV4 presigned URLs cap at seven days.
func (s *s3Store) MaxTTL() time.Duration {
	return 7 * 24 * time.Hour
}

// SaveResume implements ResumeStore.
func (s *s3Store) SaveResume(ctx context.Context, file *multipart.FileHeader) (string, error) {
	objectPath, err := resumeObjectName(file.Filename)
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := s.client.PutObject(ctx, s.bucket, objectPath, src, file.Size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("%w: failed to upload resume: %w", apperr.ErrPersistence, err)
	}

	return path.Join(s.bucket, objectPath), nil
}

// DeleteObject implements ResumeStore.
func (s *s3Store) DeleteObject(ctx context.Context, objectPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
