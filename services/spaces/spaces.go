// Package spaces reads objects from DigitalOcean Spaces through its S3 API
package spaces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// ErrObjectNotFound is returned when the key does not exist in the bucket
var ErrObjectNotFound = errors.New("object not found")

// MaxObjectSize bounds how much of an object Fetch reads into memory
const MaxObjectSize = 64 << 20

// Config holds configuration for the Spaces client
type Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// Client handles DigitalOcean Spaces operations
type Client struct {
	s3     s3iface.S3API
	bucket string
}

// NewClient creates a new Spaces client
func NewClient(config Config) (*Client, error) {
	if config.Bucket == "" || config.Region == "" {
		return nil, fmt.Errorf("spaces bucket and region must be configured")
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s.digitaloceanspaces.com", config.Region)
	}
	if !strings.HasPrefix(endpoint, "http") {
		endpoint = "https://" + endpoint
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return NewClientWithAPI(s3.New(sess), config.Bucket), nil
}

// NewClientWithAPI wraps an existing S3 API implementation
func NewClientWithAPI(api s3iface.S3API, bucket string) *Client {
	return &Client{s3: api, bucket: bucket}
}

// Fetch downloads an object into memory
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, fmt.Errorf("%s/%s: %w", c.bucket, key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	if len(data) > MaxObjectSize {
		return nil, fmt.Errorf("object %s is larger than %d bytes", key, MaxObjectSize)
	}
	return data, nil
}

// Upload stores data under key, replacing any existing object
func (c *Client) Upload(ctx context.Context, key string, body io.ReadSeeker, contentType string) error {
	_, err := c.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         aws.String("private"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}
