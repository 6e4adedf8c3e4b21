package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/julianstephens/grove/internal/logger"
)

// Uploader ships a snapshot to offsite storage
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
}

// S3Options configures an S3 (or S3-compatible) destination
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string // empty for AWS
	Prefix          string
	AccessKeyID     string // empty to use the default credential chain
	SecretAccessKey string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	client putObjectAPI
	bucket string
	prefix string
}

func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Uploader(client, opts.Bucket, opts.Prefix), nil
}

func newS3Uploader(client putObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ObjectKey maps a snapshot file name to its key in the bucket
func (u *S3Uploader) ObjectKey(name string) string {
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(u.ObjectKey(key)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/vnd.sqlite3"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", key, u.bucket, err)
	}
	return nil
}

func (m *Manager) upload(ctx context.Context, snapshot string) (string, error) {
	f, err := os.Open(snapshot)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	name := filepath.Base(snapshot)
	if err := m.uploader.Upload(ctx, name, f, stat.Size()); err != nil {
		return "", err
	}
	if s3u, ok := m.uploader.(*S3Uploader); ok {
		name = s3u.ObjectKey(name)
	}
	logger.Info("Uploaded backup", "key", name, "size", stat.Size())
	return name, nil
}
