package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	failures int
	err      error
	calls    int
}

func (s *flakyStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", s.err
	}
	return "https://cdn/" + key, nil
}

func fastRetry(next Store, retries uint64) *retryStore {
	s := WithRetry(next, retries).(*retryStore)
	s.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return s
}

func TestRetryStore(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		wantErr   bool
		wantCalls int
	}{
		{name: "succeeds first time", failures: 0, wantCalls: 1},
		{name: "recovers after transient failures", failures: 2, err: errors.New("timeout"), wantCalls: 3},
		{name: "gives up after max retries", failures: 10, err: errors.New("timeout"), wantErr: true, wantCalls: 4},
		{name: "permanent failures are not retried", failures: 10, err: ErrPermanent, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &flakyStore{failures: tt.failures, err: tt.err}
			url, err := fastRetry(inner, DefaultRetries).Put(context.Background(), "CampuSphere/posts/a.jpg", []byte{1}, ContentTypeJPEG)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, url)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "https://cdn/CampuSphere/posts/a.jpg", url)
			}
			assert.Equal(t, tt.wantCalls, inner.calls)
		})
	}
}

func TestFSStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir, "http://localhost:3000/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "CampuSphere/posts/abc.jpg", []byte("jpeg"), ContentTypeJPEG)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/uploads/CampuSphere/posts/abc.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "CampuSphere", "posts", "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	_, err = store.Put(context.Background(), "../escape.jpg", []byte("x"), ContentTypeJPEG)
	assert.Error(t, err)
}

func TestObjectKeys(t *testing.T) {
	key := PostImageKey("CampuSphere")
	assert.True(t, strings.HasPrefix(key, "CampuSphere/posts/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, PostImageKey("CampuSphere"))

	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "CampuSphere/profile_images/alice.smith_1700000000123.jpg", ProfileImageKey("CampuSphere", "alice.smith@campus.edu", at))
	assert.Equal(t, "CampuSphere/profile_images/a_b_1700000000123.jpg", ProfileImageKey("CampuSphere", "a/b@campus.edu", at))
}
