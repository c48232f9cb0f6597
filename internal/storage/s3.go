package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/veldt-labs/corpora/internal/domain"
)

// S3ClientConfig holds configuration for S3Client
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Client reads pre-chunked source data from S3-compatible storage
// (e.g., LocalStack or MinIO in development).
type S3Client struct {
	client *s3.Client
}

// NewS3Client creates a new S3Client with the given configuration
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	// Load AWS config
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{client: client}, nil
}

// isRetryable reports whether err is a network-level failure (timeout, refused
// or dropped connection) as opposed to a definitive S3 response such as a
// missing bucket or key.
func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// ParseLocation splits an "s3://bucket/prefix" source location into bucket
// and key prefix. The prefix may be empty for bucket-root sources.
func ParseLocation(location string) (bucket, prefix string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(location, scheme) {
		return "", "", domain.NewValidationError("source location must use the s3:// scheme")
	}
	rest := strings.TrimPrefix(location, scheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", domain.NewValidationError("source location is missing a bucket")
	}
	return bucket, strings.TrimSuffix(prefix, "/"), nil
}

// ListChunkFiles returns the keys of all .jsonl objects under the source
// location, sorted for deterministic processing order.
func (c *S3Client) ListChunkFiles(ctx context.Context, location string) ([]string, error) {
	bucket, prefix, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		prefix += "/"
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			err = fmt.Errorf("failed to list chunk files at %s: %w", location, err)
			if isRetryable(err) {
				return nil, domain.Transient(err)
			}
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".jsonl") {
				keys = append(keys, key)
			}
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// OpenChunkFile opens one chunk file for streaming. The caller closes the
// returned reader.
func (c *S3Client) OpenChunkFile(ctx context.Context, location, key string) (io.ReadCloser, error) {
	bucket, _, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	output, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = fmt.Errorf("failed to get chunk file %s: %w", key, err)
		if isRetryable(err) {
			return nil, domain.Transient(err)
		}
		return nil, err
	}
	return output.Body, nil
}

// EnsureBucket creates the bucket behind a source location if it doesn't
// exist. Used for seeding development and test buckets.
func (c *S3Client) EnsureBucket(ctx context.Context, location string) error {
	bucket, _, err := ParseLocation(location)
	if err != nil {
		return err
	}

	_, err = c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// UploadChunkFile writes one chunk file under the source location.
func (c *S3Client) UploadChunkFile(ctx context.Context, location, name string, body io.Reader) error {
	bucket, prefix, err := ParseLocation(location)
	if err != nil {
		return err
	}
	key := name
	if prefix != "" {
		key = prefix + "/" + name
	}

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload chunk file %s: %w", key, err)
	}
	return nil
}
