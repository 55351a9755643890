package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is the subset of *s3.Client used by S3Loader.
type S3Client interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader serves resources from an S3 bucket.
//
// Example usage:
//
//	client := s3.New(s3.Options{Region: "eu-west-1"})
//	loader := resource.NewS3Loader(client, "my-site", "templates/")
type S3Loader struct {
	client S3Client
	bucket string
	prefix string
	logger *slog.Logger

	// MaxSize bounds the size of a single object. Zero means 4 MiB.
	MaxSize int64
}

// NewS3Loader creates a loader reading keys prefix+name from bucket.
func NewS3Loader(client S3Client, bucket, prefix string) *S3Loader {
	return &S3Loader{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for lookup failures other than missing keys.
func (l *S3Loader) WithLogger(logger *slog.Logger) *S3Loader {
	l.logger = logger
	return l
}

// Exists reports whether the object exists.
func (l *S3Loader) Exists(ctx context.Context, name string) bool {
	clean, err := cleanName(name)
	if err != nil {
		return false
	}
	_, err = l.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.prefix + clean),
	})
	if err != nil {
		if !isNotFound(err) {
			l.logger.Warn("s3 head failed", "bucket", l.bucket, "key", l.prefix+clean, "error", err)
		}
		return false
	}
	return true
}

// Content returns the object body as text.
func (l *S3Loader) Content(ctx context.Context, name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	key := l.prefix + clean

	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: s3://%s/%s", ErrNotExist, l.bucket, key)
		}
		return "", fmt.Errorf("resource: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	max := l.MaxSize
	if max <= 0 {
		max = 4 << 20
	}
	data, err := io.ReadAll(io.LimitReader(out.Body, max+1))
	if err != nil {
		return "", fmt.Errorf("resource: s3 read %s: %w", key, err)
	}
	if int64(len(data)) > max {
		return "", fmt.Errorf("resource: s3 object %s exceeds %d bytes", key, max)
	}
	return string(data), nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
