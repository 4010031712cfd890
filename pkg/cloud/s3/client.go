// Package s3 serves blob cleanup from S3 or S3-compatible stores.
//
// A storage account maps to one S3 endpoint and its containers to buckets.
// Object tags are fetched per object so that protected tag values are seen
// by the retention evaluator.
package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"azops-hq/sweeper/pkg/cleanup"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// API is the subset of *s3.Client used by Client.
type API interface {
	s3.ListObjectsV2APIClient
	GetObjectTagging(ctx context.Context, params *s3.GetObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config configures a Client.
type Config struct {
	// Region is the AWS region.
	// Default: "us-east-1"
	Region string

	// Endpoint overrides the service URL, e.g. "http://localhost:9000" for MinIO.
	Endpoint string

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle enables path-style addressing (MinIO and most S3-compatible stores).
	UsePathStyle bool

	// SkipTags lists objects without fetching their tags.
	SkipTags bool
}

// Client implements cleanup.BlobService for S3 buckets.
type Client struct {
	api      API
	skipTags bool
	logger   *slog.Logger
}

var _ cleanup.BlobService = (*Client)(nil)

// New creates a Client from the default AWS configuration chain.
func New(ctx context.Context, cfg Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.DisableLogOutputChecksumValidationSkipped = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithAPI(client, cfg, nil), nil
}

// NewWithAPI creates a Client over an existing API implementation.
func NewWithAPI(api API, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:      api,
		skipTags: cfg.SkipTags,
		logger:   logger.With("component", "cloud.s3"),
	}
}

// ListBlobs lists the objects of bucket under prefix.
func (c *Client) ListBlobs(ctx context.Context, bucket, prefix string) ([]cleanup.Blob, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var blobs []cleanup.Blob
	paginator := s3.NewListObjectsV2Paginator(c.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapError("list", bucket, prefix, err)
		}

		for _, obj := range page.Contents {
			blob := cleanup.Blob{
				Name:      aws.ToString(obj.Key),
				Container: bucket,
				Size:      aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				blob.LastModified = obj.LastModified.UTC()
			}
			if !c.skipTags {
				tags, err := c.tags(ctx, bucket, blob.Name)
				if err != nil {
					return nil, err
				}
				blob.Tags = tags
			}
			blobs = append(blobs, blob)
		}
	}

	c.logger.DebugContext(ctx, "listed objects", "bucket", bucket, "prefix", prefix, "count", len(blobs))
	return blobs, nil
}

func (c *Client) tags(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := c.api.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapError("get tags", bucket, key, err)
	}
	if len(out.TagSet) == 0 {
		return nil, nil
	}

	tags := make(map[string]string, len(out.TagSet))
	for _, t := range out.TagSet {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags, nil
}

// DeleteBlob deletes one object. A missing object is not an error.
func (c *Client) DeleteBlob(ctx context.Context, bucket, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			c.logger.WarnContext(ctx, "object already deleted", "bucket", bucket, "key", key)
			return nil
		}
		return wrapError("delete", bucket, key, err)
	}
	return nil
}

// ObjectError describes a failed S3 operation.
type ObjectError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("s3 %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

func wrapError(op, bucket, key string, err error) error {
	return &ObjectError{Op: op, Bucket: bucket, Key: key, Err: err}
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
