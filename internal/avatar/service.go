// Package avatar mirrors provider profile pictures into object storage so
// the directory does not hotlink LinkedIn media URLs.
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	BaseURL   string
}

// Service stores avatar images in a MinIO bucket. A nil Service (or one
// built from an empty endpoint) disables mirroring entirely.
type Service struct {
	client *minio.Client
	bucket string
	base   string
	http   *http.Client
}

// NewService connects to MinIO and ensures the bucket exists.
// Returns nil when no endpoint is configured.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}

	return &Service{
		client: client,
		bucket: cfg.Bucket,
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Configured reports whether mirroring is enabled.
func (s *Service) Configured() bool {
	return s != nil && s.client != nil
}

// Mirror downloads the source image and stores it under the user's key.
// Returns the public URL for the stored object.
func (s *Service) Mirror(ctx context.Context, userID, sourceURL string) (string, error) {
	if !s.Configured() {
		return "", fmt.Errorf("avatar storage not configured")
	}
	if sourceURL == "" {
		return "", fmt.Errorf("empty source url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build avatar request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch avatar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch avatar status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := "avatars/" + userID + extensionFor(contentType)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}

	return s.base + "/" + s.bucket + "/" + key, nil
}

// MirrorAsync runs Mirror in the background and hands the stored URL to
// onStored. Failures are logged and the provider URL stays in place.
func (s *Service) MirrorAsync(userID, sourceURL string, onStored func(ctx context.Context, storedURL string)) {
	if !s.Configured() || sourceURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		storedURL, err := s.Mirror(ctx, userID, sourceURL)
		if err != nil {
			log.Printf("avatar: mirror for %s: %v", userID, err)
			return
		}
		onStored(ctx, storedURL)
	}()
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
