package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	retry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var _ ObjectStore = (*s3ObjectStore)(nil) // ensure s3ObjectStore implements ObjectStore.

type s3ObjectStore struct {
	logger  *zap.Logger
	client  *s3.Client
	presign *s3.PresignClient
	config  *S3StorageConfig
}

// GetS3Client provides a ready to use S3 client. A custom endpoint enables
// any S3-compatible server like minio.
func GetS3Client(config *S3StorageConfig) *s3.Client {
	return s3.NewFromConfig(aws.Config{Region: config.Region}, func(o *s3.Options) {
		if len(config.Endpoint) != 0 {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		if len(config.AccessKey) != 0 {
			o.Credentials = credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")
		}
		o.UsePathStyle = config.UsePathStyle
	})
}

// NewS3ObjectStore provides an instance of S3-backed object store.
func NewS3ObjectStore(logger *zap.Logger, config *S3StorageConfig, client *s3.Client) ObjectStore {
	return &s3ObjectStore{
		logger:  logger,
		client:  client,
		presign: s3.NewPresignClient(client),
		config:  config,
	}
}

// EnsureBucket waits for the configured bucket to be reachable and creates
// it when missing. Startup only, with fibonacci backoff.
func (os *s3ObjectStore) EnsureBucket(ctx context.Context) error {
	b := retry.NewFibonacci(1 * time.Second)
	return retry.Do(ctx, retry.WithMaxRetries(5, b), func(ctx context.Context) error {
		_, err := os.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(os.config.Bucket)})
		if err == nil {
			return nil
		}
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			if _, cerr := os.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(os.config.Bucket)}); cerr != nil {
				os.logger.Warn("storage: failed to create bucket, will retry", zap.String("bucket", os.config.Bucket), zap.Error(cerr))
				return retry.RetryableError(cerr)
			}
			os.logger.Info("storage: bucket created", zap.String("bucket", os.config.Bucket))
			return nil
		}
		os.logger.Warn("storage: bucket not reachable, will retry", zap.String("bucket", os.config.Bucket), zap.Error(err))
		return retry.RetryableError(err)
	})
}

// Exists checks an object presence with a HEAD request.
func (os *s3ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(os.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("storage: head object %s: %w", key, err)
	}
	return true, nil
}

// Metadata retrieves the store-reported size, content type and last
// modification time of an object.
func (os *s3ObjectStore) Metadata(ctx context.Context, key string) (ObjectMetadata, error) {
	out, err := os.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(os.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ObjectMetadata{}, ErrObjectNotFound
		}
		return ObjectMetadata{}, fmt.Errorf("storage: head object %s: %w", key, err)
	}
	return ObjectMetadata{
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Delete removes an object. Deleting a missing key succeeds, per S3 semantics.
func (os *s3ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := os.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(os.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete object %s: %w", key, err)
	}
	return nil
}

// IssueUploadCredential returns a presigned PUT url locked to the declared
// content type. The size cap travels in the grant for the client; a PUT
// presign cannot embed a length condition the way a POST policy does.
func (os *s3ObjectStore) IssueUploadCredential(ctx context.Context, key, contentType string, maxSize int64) (UploadCredential, error) {
	req, err := os.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(os.config.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(AssetURLValidity))
	if err != nil {
		return UploadCredential{}, fmt.Errorf("storage: presign put %s: %w", key, err)
	}
	return UploadCredential{
		URL:    req.URL,
		Method: req.Method,
		Fields: map[string]string{"Content-Type": contentType},
	}, nil
}

// IssueReadURL returns a presigned GET url valid for the given duration.
func (os *s3ObjectStore) IssueReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := os.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(os.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// PublicURL builds the unauthenticated url of an object. It is only
// meaningful when the bucket policy allows public reads.
func (os *s3ObjectStore) PublicURL(key string) string {
	if len(os.config.PublicBaseURL) != 0 {
		return strings.TrimSuffix(os.config.PublicBaseURL, "/") + "/" + key
	}
	if len(os.config.Endpoint) != 0 {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(os.config.Endpoint, "/"), os.config.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", os.config.Bucket, os.config.Region, key)
}
