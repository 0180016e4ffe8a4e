// Package storage uploads image blobs to an object store and returns the
// public URL that clients use to fetch them.
package storage

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"campusphere/config"

	"github.com/google/uuid"
)

const ContentTypeJPEG = "image/jpeg"

// Store persists a blob under key and returns its public URL
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New returns the store selected by the configuration, wrapped with retries
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case "", "fs":
		store, err = NewFSStore(cfg.Directory, cfg.PublicURL)
	case "s3":
		store, err = NewS3Store(ctx, S3Options{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			PublicURL: cfg.PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return WithRetry(store, DefaultRetries), nil
}

// PostImageKey returns a fresh object key for a post image
func PostImageKey(prefix string) string {
	return path.Join(prefix, "posts", uuid.NewString()+".jpg")
}

// ProfileImageKey returns the object key for a user's profile image taken at t
func ProfileImageKey(prefix, email string, t time.Time) string {
	name := sanitise(localPart(email)) + "_" + strconv.FormatInt(t.UnixMilli(), 10) + ".jpg"
	return path.Join(prefix, "profile_images", name)
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

func sanitise(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
	if s == "" {
		return "user"
	}
	return s
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
