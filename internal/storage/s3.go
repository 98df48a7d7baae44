// Package storage implements the object-storage collaborator used for
// avatar uploads.
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/VoltaShop-io/voltashop/internal/config"
)

// S3Client uploads files to an S3-compatible bucket and returns public URLs.
type S3Client struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3Client creates and configures a client for the bucket in cfg.
func NewS3Client(ctx context.Context, cfg *config.Config) (*S3Client, error) {
	log.Println("Initializing S3 client...")

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:           cfg.S3.Endpoint,
			SigningRegion: cfg.S3.Region,
		}, nil
	})

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithEndpointResolverWithOptions(resolver),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, "")),
		awsConfig.WithRegion(cfg.S3.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	log.Printf("S3 client initialized for bucket: %s, region: %s", cfg.S3.Bucket, cfg.S3.Region)

	return &S3Client{
		client:   client,
		bucket:   cfg.S3.Bucket,
		endpoint: strings.TrimRight(cfg.S3.Endpoint, "/"),
	}, nil
}

// Upload stores the file under a unique key and returns its public URL.
func (c *S3Client) Upload(ctx context.Context, filename string, body io.Reader) (string, error) {
	ext := filepath.Ext(filename)
	key := fmt.Sprintf("avatars/%s%s", uuid.NewString(), ext)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, key), nil
}
