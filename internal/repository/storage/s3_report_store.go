package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
	cfg "github.com/tpm-platform/allocation-engine/internal/config"
	"github.com/tpm-platform/allocation-engine/internal/domain"
)

// ReportContentTypeXLSX is the MIME type of Excel workbooks
const ReportContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// S3ReportStore implements domain.ReportStore on S3 or any S3-compatible endpoint
type S3ReportStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
}

var _ domain.ReportStore = (*S3ReportStore)(nil)

// NewS3ReportStore creates a report store and makes sure its private bucket exists
func NewS3ReportStore(ctx context.Context, s3cfg cfg.S3Config) (*S3ReportStore, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}

	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3cfg.AccessKeyID,
				s3cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Endpoint override for MinIO/LocalStack
	var client *s3.Client
	if s3cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	repo := &S3ReportStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    s3cfg.Bucket,
		prefix:    strings.Trim(s3cfg.Prefix, "/"),
	}

	if err := repo.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

// ensureBucket creates the bucket if it is missing. Reports stay private and are
// only reachable through presigned URLs.
func (r *S3ReportStore) ensureBucket(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check report bucket (may be permission denied): %w", err)
	}

	if _, err := r.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(r.bucket),
	}); err != nil {
		return fmt.Errorf("failed to create report bucket: %w", err)
	}

	log.Info().Str("bucket", r.bucket).Msg("Created report bucket")
	return nil
}

// Upload stores data under objectPath and returns the full object key (not a URL)
func (r *S3ReportStore) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	// Unknown size: buffer to get a content length
	var body io.Reader = data
	if size < 0 {
		buf, err := io.ReadAll(data)
		if err != nil {
			return "", fmt.Errorf("failed to read data: %w", err)
		}
		size = int64(len(buf))
		body = bytes.NewReader(buf)
	}

	key := r.key(objectPath)
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(r.bucket),
		Key:                aws.String(key),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(objectPath))),
		Body:               body,
		ContentType:        aws.String(contentType),
		ContentLength:      aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return key, nil
}

// GeneratePresignedURL generates a presigned GET URL for an uploaded key
func (r *S3ReportStore) GeneratePresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presignedReq, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presignedReq.URL, nil
}

func (r *S3ReportStore) key(objectPath string) string {
	if r.prefix == "" {
		return objectPath
	}
	return path.Join(r.prefix, objectPath)
}
