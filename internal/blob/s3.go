package blob

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// S3Store implements Store on top of an S3 bucket holding publicly readable
// objects.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
}

// NewS3Store creates a store writing to the given bucket. An empty bucket
// name is allowed at construction so the server can start without storage
// configured; writes then fail with ErrNotConfigured.
func NewS3Store(client *s3.Client, bucket, region string) *S3Store {
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		region:  region,
	}
}

// objectKey builds a collision-free key: a date-based path, a UUID and the
// sanitized original file name, e.g. 2026/09/01/<uuid>-lecture.pdf.
func objectKey(fileName string) string {
	now := time.Now().UTC()
	datePath := fmt.Sprintf("%d/%02d/%02d", now.Year(), now.Month(), now.Day())
	safeName := unsafeKeyChars.ReplaceAllString(fileName, "_")
	return fmt.Sprintf("%s/%s-%s", datePath, uuid.New().String(), safeName)
}

func (s *S3Store) publicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// keyFromURL recovers the object key from a public URL returned by this
// store. Returns an error for URLs that do not belong to the bucket.
func (s *S3Store) keyFromURL(publicURL string) (string, error) {
	prefix := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
	if !strings.HasPrefix(publicURL, prefix) {
		return "", fmt.Errorf("url %q does not reference bucket %s", publicURL, s.bucket)
	}
	return strings.TrimPrefix(publicURL, prefix), nil
}

// Put uploads the body and returns the object's public URL.
func (s *S3Store) Put(ctx context.Context, fileName, contentType string, body io.Reader, size int64) (string, error) {
	if s.bucket == "" {
		return "", ErrNotConfigured
	}

	key := objectKey(fileName)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", &WriteError{Err: err}
	}

	return s.publicURL(key), nil
}

// Delete removes the object behind a public URL.
func (s *S3Store) Delete(ctx context.Context, publicURL string) error {
	if s.bucket == "" {
		return ErrNotConfigured
	}
	key, err := s.keyFromURL(publicURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// PresignPut returns a presigned PUT URL for a client-direct upload, plus the
// public URL the object will be readable at afterwards.
func (s *S3Store) PresignPut(ctx context.Context, fileName, contentType string, ttl time.Duration) (string, string, error) {
	if s.bucket == "" {
		return "", "", ErrNotConfigured
	}

	key := objectKey(fileName)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", "", fmt.Errorf("failed to presign upload: %w", err)
	}

	return req.URL, s.publicURL(key), nil
}
