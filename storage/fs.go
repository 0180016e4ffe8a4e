package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FSStore writes blobs below a local directory that the server exposes
// under PublicURL.
type FSStore struct {
	dir       string
	publicURL string
}

func NewFSStore(dir, publicURL string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FSStore{dir: dir, publicURL: publicURL}, nil
}

// Dir is the root directory of the store
func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	target := filepath.Join(s.dir, clean)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}

	log.WithFields(log.Fields{
		"key":         key,
		"size":        len(data),
		"contentType": contentType,
	}).Info("Stored object")

	return joinURL(s.publicURL, filepath.ToSlash(clean)), nil
}
