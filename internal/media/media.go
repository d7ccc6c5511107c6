// Package media stores post attachments on an S3-compatible object store.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"corkboard/internal/content"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrNotConfigured = errors.New("media host not configured")

// Host accepts uploads and returns where the object can be fetched and the
// key needed to delete it again.
type Host interface {
	Upload(ctx context.Context, file Upload) (content.Attachment, error)
	Delete(ctx context.Context, key string) error
}

type Upload struct {
	Board       content.Board
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL prefixes object keys in returned URLs. Defaults to the
	// bucket URL on Endpoint.
	PublicBaseURL string
	// Folder is the key prefix shared by every upload.
	Folder string
}

func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type MinioHost struct {
	client  *minio.Client
	bucket  string
	baseURL string
	folder  string
}

// NewMinioHost connects to the object store and creates the bucket when it
// does not exist yet.
func NewMinioHost(ctx context.Context, cfg Config) (*MinioHost, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
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
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinioHost{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		folder:  cfg.Folder,
	}, nil
}

func (h *MinioHost) Upload(ctx context.Context, file Upload) (content.Attachment, error) {
	key := ObjectKey(h.folder, file.Board, file.Filename)
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := h.client.PutObject(ctx, h.bucket, key, file.Body, file.Size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return content.Attachment{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return content.Attachment{
		Filename: CleanFilename(file.Filename),
		URL:      h.baseURL + "/" + key,
		Key:      key,
	}, nil
}

func (h *MinioHost) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := h.client.RemoveObject(ctx, h.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

var unsafeExt = regexp.MustCompile(`[^a-z0-9]`)

// ObjectKey builds "<folder>/<board>/<uuid><ext>". The client's file name
// only contributes its extension.
func ObjectKey(folder string, board content.Board, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	ext = unsafeExt.ReplaceAllString(strings.TrimPrefix(ext, "."), "")
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return path.Join(folder, string(board), name)
}

// CleanFilename keeps the base name of a client-supplied path.
func CleanFilename(filename string) string {
	filename = strings.ReplaceAll(filename, `\`, "/")
	base := path.Base(filename)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
