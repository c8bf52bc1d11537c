package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	smithyendpoints "github.com/aws/smithy-go/endpoints"

	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
)

// Store talks to S3 or any S3-compatible backend (Backblaze B2, MinIO).
type Store struct {
	client        *awss3.Client
	presignClient *awss3.PresignClient
	bucket        string
	baseURL       string
	endpoint      string
	presignExpiry time.Duration
}

type resolverV2 struct {
	endpoint string
	region   string
}

// Reference: https://aws.github.io/aws-sdk-go-v2/docs/configuring-sdk/endpoints/#v2-endpointresolverv2--baseendpoint
func (r *resolverV2) ResolveEndpoint(ctx context.Context, params awss3.EndpointParameters) (smithyendpoints.Endpoint, error) {
	if params.Region != nil && *params.Region == r.region {
		base, err := url.Parse(r.endpoint)
		if err != nil {
			return smithyendpoints.Endpoint{}, err
		}
		u := base.JoinPath(*params.Bucket)
		return smithyendpoints.Endpoint{URI: *u}, nil
	}
	return awss3.NewDefaultEndpointResolverV2().ResolveEndpoint(ctx, params)
}

// New builds an S3-backed object store from storage configuration.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	expiry := cfg.UploadURLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	clientOptions := []func(*awss3.Options){
		func(o *awss3.Options) {
			if cfg.UsePathStyle {
				o.UsePathStyle = true
			}
		},
	}
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *awss3.Options) {
			o.EndpointResolverV2 = &resolverV2{
				endpoint: cfg.Endpoint,
				region:   region,
			}
		})
	}

	client := awss3.NewFromConfig(awsCfg, clientOptions...)
	presignClient := awss3.NewPresignClient(client)

	store := &Store{
		client:        client,
		presignClient: presignClient,
		bucket:        cfg.Bucket,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		presignExpiry: expiry,
	}

	if logg != nil {
		logg.Info(ctx, "s3 object store initialized")
	}

	return store, nil
}

// SignUploadURL returns a pre-signed PUT URL for the object key.
func (s *Store) SignUploadURL(ctx context.Context, key, contentType string) (string, error) {
	input := &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := s.presignClient.PresignPutObject(ctx, input,
		awss3.WithPresignExpires(s.presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presigning put for %s: %w", key, err)
	}
	return result.URL, nil
}

// Upload streams the object body through the server.
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	input := &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// Delete removes the object from the bucket.
func (s *Store) Delete(ctx context.Context, key string) error {
	input := &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if _, err := s.client.DeleteObject(ctx, input); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// PublicURL builds the canonical serving URL for the key.
func (s *Store) PublicURL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

// Ping verifies the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}
