// Package objectstore downloads publisher uploads (proto bundles, demo archives,
// images) from S3 so they can be republished to the content store.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/config"
)

var ErrInvalidObjectURL = errors.New("invalid object url")

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Store struct {
	client  S3API
	tempDir string
}

// New builds an S3 backed store. Static credentials are used when configured,
// otherwise the default AWS credential chain applies. A custom endpoint switches
// to path style addressing for S3 compatible stores.
func New(ctx context.Context, cfg *config.AWSConfig, tempDir string) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, tempDir), nil
}

func NewWithClient(client S3API, tempDir string) *Store {
	return &Store{client: client, tempDir: tempDir}
}

// ParseObjectURL accepts s3://bucket/key and the virtual-hosted and path style
// https forms S3 hands out for uploaded objects.
func ParseObjectURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidObjectURL, err)
	}

	p := strings.TrimPrefix(u.Path, "/")
	switch {
	case u.Scheme == "s3":
		bucket, key = u.Host, p
	case u.Scheme == "https" || u.Scheme == "http":
		host := u.Hostname()
		if i := strings.Index(host, ".s3."); i > 0 {
			bucket, key = host[:i], p
		} else if i := strings.Index(host, ".s3-"); i > 0 {
			bucket, key = host[:i], p
		} else if strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-") {
			bucket, key, _ = strings.Cut(p, "/")
		}
	}

	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidObjectURL, raw)
	}
	return bucket, key, nil
}

// Download copies the object behind rawURL into a temporary file that keeps the
// object's extension. The caller must call cleanup once done with the file.
func (s *Store) Download(ctx context.Context, rawURL string) (file string, cleanup func(), err error) {
	bucket, key, err := ParseObjectURL(rawURL)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindValidation, "download asset", err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", nil, apperr.External("download asset", err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(s.tempDir, "asset-*"+path.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	cleanup = func() { os.Remove(tmp.Name()) }

	_, err = io.Copy(tmp, out.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, apperr.External("download asset", err)
	}
	return tmp.Name(), cleanup, nil
}
