package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mamadbah2/hotelerp/internal/config"
)

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// AllowedContentType reports whether a bill document of this type may be stored.
func AllowedContentType(contentType string) bool {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	return allowedContentTypes[strings.ToLower(base)]
}

// BillStore keeps scanned vendor bills in a Google Cloud Storage bucket.
type BillStore struct {
	client     *storage.Client
	bucket     string
	publicBase string
	logger     *zap.Logger
}

// NewBillStore opens a storage client. Without a credentials path the client uses
// application default credentials.
func NewBillStore(ctx context.Context, cfg config.BillsConfig, logger *zap.Logger) (*BillStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &BillStore{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		logger:     logger,
	}, nil
}

// Upload writes the document under objectName and returns its URL.
func (s *BillStore) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	if !AllowedContentType(contentType) {
		return "", fmt.Errorf("unsupported bill content type %q", contentType)
	}

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	n, err := io.Copy(w, body)
	if err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload bill %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize bill %s: %w", objectName, err)
	}

	s.logger.Info("bill uploaded", zap.String("object", objectName), zap.Int64("bytes", n))
	return ObjectURL(s.publicBase, s.bucket, objectName), nil
}

// Close releases the storage client.
func (s *BillStore) Close() error {
	return s.client.Close()
}

// ObjectURL builds the public URL of an object.
func ObjectURL(base, bucket, objectName string) string {
	escaped := make([]string, 0)
	for _, part := range strings.Split(objectName, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return base + "/" + path.Join(bucket, strings.Join(escaped, "/"))
}
