package upload

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"nuxthub/cli/internal/assets"
)

// S3API is the subset of the S3 client used by S3Target.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3 compatible bucket such as R2 or MinIO.
type S3Options struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Target stores assets under their content hash in a bucket, for
// self-hosted projects that serve public assets from object storage.
type S3Target struct {
	client S3API
	bucket string
	prefix string
}

var _ Target = (*S3Target)(nil)

func NewS3Target(ctx context.Context, opts S3Options) (*S3Target, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 target: bucket is required")
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return NewS3TargetWithClient(client, opts.Bucket, opts.Prefix), nil
}

func NewS3TargetWithClient(client S3API, bucket, prefix string) *S3Target {
	return &S3Target{client: client, bucket: bucket, prefix: prefix}
}

func (t *S3Target) key(hash string) string {
	if t.prefix == "" {
		return hash
	}
	return path.Join(t.prefix, hash)
}

// UploadBatch skips keys already present; content addressing makes an existing key identical.
func (t *S3Target) UploadBatch(ctx context.Context, batch []assets.FileArtifact) error {
	for _, f := range batch {
		key := t.key(f.Hash)
		if _, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(t.bucket),
			Key:    aws.String(key),
		}); err == nil {
			logger.Trace("Skipping %s, %s already stored", f.Path, key)
			continue
		}

		_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(t.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(f.Data),
			ContentLength: aws.Int64(f.Size),
			ContentType:   aws.String(f.ContentType),
			Metadata:      map[string]string{"path": f.Path},
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", f.Path, err)
		}
	}
	return nil
}
