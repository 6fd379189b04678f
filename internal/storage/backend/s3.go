// internal/storage/backend/s3.go
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3 backend. Endpoint and UsePathStyle support
// S3-compatible services such as MinIO.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Prefix          string
}

// S3Backend stores blobs in Amazon S3 or an S3-compatible service.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 creates an S3 backend and verifies the bucket is reachable.
func NewS3(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, &Error{Op: "NewS3", Err: fmt.Errorf("bucket name is required")}
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &Error{Op: "NewS3", Err: fmt.Errorf("load AWS config: %w", err)}
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)})
	if err != nil {
		return nil, &Error{Op: "NewS3", Err: fmt.Errorf("bucket not accessible: %w", err)}
	}

	return &S3Backend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *S3Backend) fullKey(key string) string {
	return b.prefix + key
}

func isNotFoundError(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}

// Exists reports whether an object exists at the key.
func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, &Error{Op: "Exists", Key: key, Err: err}
	}
	return true, nil
}

// Reader opens the object for reading.
func (b *S3Backend) Reader(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error) {
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil, &Error{Op: "Reader", Key: key, Err: errNotFound{}}
		}
		return nil, nil, &Error{Op: "Reader", Key: key, Err: err}
	}

	info := &FileInfo{Key: key}
	if output.ContentLength != nil {
		info.Size = *output.ContentLength
	}
	if output.ContentType != nil {
		info.ContentType = *output.ContentType
	}
	if output.ETag != nil {
		info.ETag = strings.Trim(*output.ETag, `"`)
	}
	if output.LastModified != nil {
		info.ModTime = *output.LastModified
	}
	return output.Body, info, nil
}

// Write uploads the content to the key.
func (b *S3Backend) Write(ctx context.Context, key string, content io.Reader, contentType string) (*FileInfo, error) {
	output, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.fullKey(key)),
		Body:        content,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}

	info := &FileInfo{Key: key, ContentType: contentType}
	if output.ETag != nil {
		info.ETag = strings.Trim(*output.ETag, `"`)
	}
	return info, nil
}

// Delete removes the object. Missing objects are not an error.
func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	if err != nil && !isNotFoundError(err) {
		return &Error{Op: "Delete", Key: key, Err: err}
	}
	return nil
}

// DeletePrefix removes every object under the prefix.
func (b *S3Backend) DeletePrefix(ctx context.Context, prefix string) error {
	fullPrefix := b.fullKey(prefix)
	var continuation *string

	for {
		list, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(fullPrefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return &Error{Op: "DeletePrefix", Key: prefix, Err: err}
		}

		for _, object := range list.Contents {
			_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(b.bucket),
				Key:    object.Key,
			})
			if err != nil {
				return &Error{Op: "DeletePrefix", Key: prefix, Err: err}
			}
		}

		if list.IsTruncated == nil || !*list.IsTruncated {
			return nil
		}
		continuation = list.NextContinuationToken
	}
}

// Close is a no-op for the S3 backend.
func (b *S3Backend) Close() error {
	return nil
}
