package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"NawaxRadio/config"
	"NawaxRadio/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxPresignExpiry is the longest validity S3 V4 signatures accept.
const maxPresignExpiry = 7 * 24 * time.Hour

// MinioSigner presigns GET URLs against an S3 compatible endpoint (GCS
// interoperability, MinIO, S3).
type MinioSigner struct {
	client *minio.Client
}

// NewMinioSigner 创建签名客户端
func NewMinioSigner(cfg *config.Config) (*MinioSigner, error) {
	if !cfg.SignerEnabled() {
		return nil, fmt.Errorf("minio signer: MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	logger.Info("storage signer ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("region", cfg.MinioRegion),
		logger.Bool("ssl", cfg.MinioUseSSL))
	return &MinioSigner{client: client}, nil
}

// NewMinioSignerWithClient wraps an existing client.
func NewMinioSignerWithClient(client *minio.Client) *MinioSigner {
	return &MinioSigner{client: client}
}

// Client returns the underlying client.
func (s *MinioSigner) Client() *minio.Client {
	return s.client
}

// Sign returns a presigned GET URL for bucket/object valid for ttl.
func (s *MinioSigner) Sign(ctx context.Context, bucket, object string, ttl time.Duration) (string, error) {
	object = strings.TrimPrefix(object, "/")
	if bucket == "" || object == "" {
		return "", fmt.Errorf("bucket and object are required")
	}
	if ttl <= 0 || ttl > maxPresignExpiry {
		ttl = maxPresignExpiry
	}

	u, err := s.client.PresignedGetObject(ctx, bucket, object, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, object, err)
	}
	return u.String(), nil
}

// Ping checks that bucket is reachable with the configured credentials.
func (s *MinioSigner) Ping(ctx context.Context, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", bucket)
	}
	return nil
}
