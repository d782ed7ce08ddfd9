// Package storage provides S3-compatible object storage for import snapshots
// and export archives.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
)

// PresignedURLTTL is the expiration time for presigned download URLs.
const PresignedURLTTL = 15 * time.Minute

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service wraps a MinIO client with the application's bucket layout.
type Service struct {
	client          *minio.Client
	snapshotsBucket string
	archivesBucket  string
	log             *logger.Logger
}

// New creates a new storage service, or nil when MinIO is not configured.
func New(cfg config.MinIOConfig, log *logger.Logger) (*Service, error) {
	if !cfg.IsMinIOEnabled() {
		log.Warn("minio not configured, object storage disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Service{
		client:          client,
		snapshotsBucket: cfg.GetMinioBucketImportSnapshots(),
		archivesBucket:  cfg.GetMinioBucketExportArchives(),
		log:             log,
	}, nil
}

// EnsureBuckets creates the application buckets if they don't exist. Called
// once on boot.
func (s *Service) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.snapshotsBucket, s.archivesBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		s.log.Info("created storage bucket", "bucket", bucket)
	}
	return nil
}

// PutImportSnapshot stores a raw import payload and returns its object key.
func (s *Service) PutImportSnapshot(ctx context.Context, key string, payload []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.snapshotsBucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("put import snapshot %s: %w", key, err)
	}
	return key, nil
}

// PutExportArchive stores an export file and returns its object key.
func (s *Service) PutExportArchive(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, s.archivesBucket, key, r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put export archive %s: %w", key, err)
	}
	return key, nil
}

// SnapshotDownloadURL creates a presigned GET URL for an import snapshot.
func (s *Service) SnapshotDownloadURL(ctx context.Context, key string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)

	presigned, err := s.client.PresignedGetObject(ctx, s.snapshotsBucket, key, PresignedURLTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("presign snapshot download %s: %w", key, err)
	}

	return &PresignedURL{
		URL:       presigned.String(),
		FileKey:   key,
		ExpiresAt: expiresAt,
	}, nil
}

// GetImportSnapshot reads a stored import payload. The caller closes the
// returned reader.
func (s *Service) GetImportSnapshot(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.snapshotsBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get import snapshot %s: %w", key, err)
	}
	return obj, nil
}
