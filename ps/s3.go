package ps

import (
	"bytes"
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
)

// S3Config carries credentials and addressing for an S3 or S3-compatible
// bucket. Empty credential fields fall back to the AWS default chain.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // optional, for S3-compatible services
}

// S3Store keeps checkpoint blobs as objects under a key prefix in one
// bucket, suitable for sharing checkpoints across machines.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// ParseS3URL splits s3://bucket/prefix into its parts.
func ParseS3URL(url string) (bucket, prefix string, err error) {
	trimmed := strings.TrimPrefix(url, "s3://")
	if trimmed == url || trimmed == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix, nil
}

// NewS3Store creates a store for s3://bucket/prefix URLs.
func NewS3Store(ctx context.Context, url string, cfg S3Config) (*S3Store, error) {
	bucket, prefix, err := ParseS3URL(url)
	if err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // for S3-compatible services
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3Store) key(blobPath string) string {
	if s.prefix == "" {
		return blobPath
	}
	return path.Join(s.prefix, blobPath)
}

func (s *S3Store) WriteBlob(blobPath string, data []byte) error {
	if s == nil || s.client == nil {
		return ErrStoreNotInitialized
	}

	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(blobPath)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *S3Store) ReadBlob(blobPath string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, ErrStoreNotInitialized
	}

	resp, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(blobPath)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (s *S3Store) ListBlobs(dir string) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, ErrStoreNotInitialized
	}

	keyPrefix := s.key(dir)
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(keyPrefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, path.Base(aws.ToString(obj.Key)))
		}
	}
	return names, nil
}
