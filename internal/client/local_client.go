package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalClient implements StorageClient on a local directory. It is
// the fallback when object storage is not configured; the server
// exposes the directory under /files so workers can still fetch
// uploads over HTTP.
type LocalClient struct {
	dir     string
	baseURL string
}

// NewLocalClient creates a directory-backed storage client. baseURL
// is the externally reachable prefix for /files routes.
func NewLocalClient(dir, baseURL string) (*LocalClient, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalClient{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Dir returns the backing directory
func (c *LocalClient) Dir() string { return c.dir }

// Upload writes the blob under the storage directory
func (c *LocalClient) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	path := filepath.Join(c.dir, filepath.Base(key))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return c.GetPublicURL(key), nil
}

// Delete removes the blob
func (c *LocalClient) Delete(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(c.dir, filepath.Base(key)))
}

// GetSignedURL returns the public URL; local files need no signing
func (c *LocalClient) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return c.GetPublicURL(key), nil
}

// GetPublicURL returns the /files route for a key
func (c *LocalClient) GetPublicURL(key string) string {
	return fmt.Sprintf("%s/files/%s", c.baseURL, filepath.Base(key))
}
