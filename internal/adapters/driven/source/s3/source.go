// Package s3 provides a Source over an S3 bucket or an S3-compatible store.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Scheme prefixes every path produced by this source.
const Scheme = "s3://"

// Config holds connection settings. Empty credentials fall back to the
// default AWS credential chain.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint points the client at an S3-compatible server such as MinIO.
	Endpoint string

	// UsePathStyle addresses buckets as endpoint/bucket instead of bucket.endpoint.
	UsePathStyle bool
}

// api is the subset of the S3 client used by Source.
type api interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source lists and reads objects in S3.
type Source struct {
	client api
}

// New loads the AWS configuration and creates an S3 source.
func New(ctx context.Context, cfg Config) (*Source, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("%w: both AWS access key and secret are required", domain.ErrInvalidInput)
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Source{client: client}, nil
}

// newWithClient is used by tests to inject a fake client.
func newWithClient(client api) *Source {
	return &Source{client: client}
}

// Type returns "s3".
func (s *Source) Type() string {
	return "s3"
}

// Walk lists every object under root. Root is "s3://bucket/prefix" or
// "bucket/prefix". Keys ending in "/" are folder markers and are skipped.
func (s *Source) Walk(ctx context.Context, root string, fn driven.WalkFunc) error {
	bucket, prefix, err := ParseLocation(root)
	if err != nil {
		return err
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, wrapNotFound(err))
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			file := domain.SourceFile{
				Path: Scheme + bucket + "/" + key,
				Name: path.Base(key),
				Size: aws.ToInt64(obj.Size),
			}
			if err := fn(file); err != nil {
				return err
			}
		}
	}
	return nil
}

// Open streams the object at an "s3://bucket/key" path.
func (s *Source) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	bucket, key, err := ParseLocation(p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %s has no object key", domain.ErrInvalidInput, p)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", p, wrapNotFound(err))
	}
	return out.Body, nil
}

// ParseLocation splits "s3://bucket/key" or "bucket/key" into its parts.
func ParseLocation(location string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(location, Scheme)
	bucket, key, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: no bucket in %q", domain.ErrInvalidInput, location)
	}
	return bucket, key, nil
}

// wrapNotFound maps missing keys and buckets onto domain.ErrNotFound.
func wrapNotFound(err error) error {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}
