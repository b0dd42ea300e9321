// Package storage archives rendered quotes in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/printing"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

// S3API is the subset of the S3 client used by the archive
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Archive implements printing.Archive on any S3-compatible storage
// (AWS S3, MinIO, RustFS). Objects are keyed by printing.ObjectPath under
// an optional prefix.
type S3Archive struct {
	client        S3API
	bucket        string
	prefix        string
	baseURL       string
	retentionDays int
	logger        *zap.Logger
}

// S3ArchiveOption is a functional option for configuring S3Archive
type S3ArchiveOption func(*S3Archive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ArchiveOption {
	return func(s *S3Archive) {
		s.logger = logger
	}
}

// WithPrefix stores every object under prefix/
func WithPrefix(prefix string) S3ArchiveOption {
	return func(s *S3Archive) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

// NewS3Archive creates an archive from configuration
func NewS3Archive(ctx context.Context, cfg *config.StorageConfig, opts ...S3ArchiveOption) (*S3Archive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return NewS3ArchiveWithClient(client, cfg, opts...), nil
}

// NewS3ArchiveWithClient creates an archive over an existing client
func NewS3ArchiveWithClient(client S3API, cfg *config.StorageConfig, opts ...S3ArchiveOption) *S3Archive {
	a := &S3Archive{
		client:        client,
		bucket:        cfg.Bucket,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		retentionDays: cfg.RetentionDays,
		logger:        zap.NewNop(),
	}
	if a.baseURL == "" {
		a.baseURL = "/archive"
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// normalizeEndpoint adds the scheme to a bare host; empty means AWS
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (s *S3Archive) key(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return s.prefix + "/" + rel
}

// validPath rejects absolute paths and parent references
func validPath(rel string) bool {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// Store uploads the PDF; re-archiving a number overwrites the object
func (s *S3Archive) Store(ctx context.Context, req *printing.StoreRequest) (*printing.StoreResult, error) {
	if req == nil {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "store request is nil", nil)
	}
	if req.Number.IsZero() {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "quote number is required", nil)
	}
	if len(req.PDFData) == 0 {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "PDF data is empty", nil)
	}

	rel := printing.ObjectPath(req.Number)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(rel)),
		Body:          bytes.NewReader(req.PDFData),
		ContentLength: aws.Int64(int64(len(req.PDFData))),
		ContentType:   aws.String(pdfContentType),
		Metadata:      map[string]string{"quote-number": req.Number.String()},
	})
	if err != nil {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to upload PDF", err)
	}

	result := &printing.StoreResult{
		Path: rel,
		URL:  s.GetURL(rel),
		Size: int64(len(req.PDFData)),
	}
	s.logger.Info("PDF archived",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key(rel)),
		zap.Int64("size", result.Size))
	return result, nil
}

// Get downloads a stored PDF
func (s *S3Archive) Get(ctx context.Context, rel string) (io.ReadCloser, error) {
	if !validPath(rel) {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "invalid path", nil)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(rel)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "PDF not found", err)
		}
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to download PDF", err)
	}
	return out.Body, nil
}

// Delete removes a stored PDF; deleting a missing object succeeds
func (s *S3Archive) Delete(ctx context.Context, rel string) error {
	if !validPath(rel) {
		return printing.NewRenderError(printing.ErrCodeStorageFailed, "invalid path", nil)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(rel)),
	})
	if err != nil {
		return printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to delete PDF", err)
	}
	s.logger.Info("PDF deleted", zap.String("key", s.key(rel)))
	return nil
}

// GetURL returns the application URL serving the stored PDF
func (s *S3Archive) GetURL(rel string) string {
	return s.baseURL + "/" + path.Clean(rel)
}

// RetentionDays returns the configured retention (0 = forever)
func (s *S3Archive) RetentionDays() int {
	return s.retentionDays
}

// CleanupOlderThan deletes archived PDFs last modified before now-age
func (s *S3Archive) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	deleted := 0
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to list archive", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || !strings.HasSuffix(*obj.Key, ".pdf") {
				continue
			}
			if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				s.logger.Warn("Failed to delete expired PDF", zap.String("key", *obj.Key), zap.Error(err))
				continue
			}
			deleted++
		}
	}

	s.logger.Info("Archive cleanup completed", zap.Int("deleted", deleted), zap.Duration("age", age))
	return deleted, nil
}

var _ printing.Archive = (*S3Archive)(nil)
