package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures the S3 (or MinIO) image backend.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL overrides the delivery host, e.g. a CDN in front of the bucket.
	PublicURL string
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Backend struct {
	client    s3API
	bucket    string
	region    string
	endpoint  string
	publicURL string
}

// NewS3ImageStore builds a rendition store backed by an S3 bucket.
func NewS3ImageStore(ctx context.Context, opts S3Options) (*RenditionImageStore, error) {
	if opts.Bucket == "" {
		return nil, errors.New("S3 bucket is required")
	}
	if opts.Region == "" {
		return nil, errors.New("S3 region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	} else if opts.Endpoint != "" {
		return nil, errors.New("access key and secret key are required for a custom S3 endpoint")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			// MinIO 需要 path-style 访问
			o.UsePathStyle = true
		}
	})

	return newRenditionImageStore(newS3Backend(client, opts)), nil
}

func newS3Backend(client s3API, opts S3Options) *s3Backend {
	return &s3Backend{
		client:    client,
		bucket:    opts.Bucket,
		region:    opts.Region,
		endpoint:  strings.TrimRight(opts.Endpoint, "/"),
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}
}

func (b *s3Backend) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return nil
}

func (b *s3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, errObjectNotFound
		}
		return nil, fmt.Errorf("failed to read file from S3: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *s3Backend) URL(key string) string {
	switch {
	case b.publicURL != "":
		return fmt.Sprintf("%s/%s", b.publicURL, key)
	case b.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", b.endpoint, b.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, key)
	}
}
