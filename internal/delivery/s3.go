package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	conf "github.com/webitel/bot-report-exporter/config"
)

// Compile-time check to verify implements interface.
var _ Store = (*S3)(nil)

// S3 puts files into a bucket.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 loads the default AWS configuration. Static credentials and a custom
// endpoint are used when configured, e.g. for MinIO or LocalStack.
func NewS3(ctx context.Context, c *conf.DeliveryConfig) (*S3, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 delivery: bucket is required")
	}

	loaders := []func(*config.LoadOptions) error{}
	if c.Region != "" {
		loaders = append(loaders, config.WithRegion(c.Region))
	}
	if c.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: c.Bucket}, nil
}

func (s *S3) Backend() Backend { return BackendS3 }

func (s *S3) Deliver(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(int64(len(data))),
		Body:          bytes.NewReader(data),
	}); err != nil {
		return "", deliveryError(name, s.Backend(), err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, name), nil
}

func (s *S3) Read(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", name, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
