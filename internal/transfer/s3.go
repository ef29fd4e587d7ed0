// SPDX-License-Identifier: MPL-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultS3Region = "us-east-1"

type (
	// S3Config holds explicit construction parameters for S3Source. Fields
	// left empty fall back to the AWS default configuration chain.
	S3Config struct {
		Region          string
		Endpoint        string // optional; enables S3-compatible stores such as MinIO
		PathStyle       bool
		AccessKeyID     string // optional static credentials
		SecretAccessKey string
		SessionToken    string
		HTTPClient      *http.Client // optional; mostly for tests
	}

	// S3Source downloads from s3://bucket/prefix repositories.
	S3Source struct {
		client *s3.Client
	}
)

// NewS3Source builds an S3Source from cfg using the AWS default config chain.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &S3Source{client: client}, nil
}

// NewS3SourceFromClient wraps an existing client.
func NewS3SourceFromClient(client *s3.Client) *S3Source {
	return &S3Source{client: client}
}

// Open fetches the object addressed by an s3://bucket/key URL.
func (s *S3Source) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	bucket, key, err := splitS3URL(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		var re *awshttp.ResponseError
		if errors.As(err, &re) {
			return nil, &FetchError{URL: rawURL, Status: re.HTTPStatusCode(), Cause: err}
		}
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	return out.Body, nil
}

func splitS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL %q must be s3://bucket/key", rawURL)
	}
	return bucket, key, nil
}
