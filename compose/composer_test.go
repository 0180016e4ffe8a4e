package compose_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"campusphere/client"
	"campusphere/compose"
	"campusphere/identity"
	"campusphere/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	mu       sync.Mutex
	requests []models.CreatePostRequest
	err      error
	block    chan struct{}
	started  chan struct{}
}

func (f *fakePoster) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	post := &models.Post{ID: "42", Content: req.Content, CreatedBy: req.CreatedBy, VisibleIn: req.VisibleIn}
	if req.ImageBase64 != nil {
		url := "http://localhost:3000/uploads/CampuSphere/posts/x.jpg"
		post.ImageURL = &url
	}
	return post, nil
}

func (f *fakePoster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func signedIn(email string) *identity.Session {
	s := identity.NewSession()
	s.SignIn(identity.Viewer{Email: email})
	return s
}

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestSubmitRejectsBlankContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "spaces", content: "   "},
		{name: "newlines and tabs", content: "\n\t \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{}
			c := compose.NewComposer(poster, signedIn("alice@campus.edu"))
			c.SetContent(tt.content)

			post, err := c.Submit(context.Background())
			assert.Nil(t, post)

			var verr *compose.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "Please write something!", verr.Error())
			assert.Equal(t, 0, poster.count())
			assert.False(t, c.CanSubmit())
		})
	}
}

func TestSubmitTextOnly(t *testing.T) {
	poster := &fakePoster{}
	c := compose.NewComposer(poster, signedIn("alice@campus.edu"))
	c.SetContent("  Hello campus  ")

	post, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PostID("42"), post.ID)

	require.Equal(t, 1, poster.count())
	req := poster.requests[0]
	assert.Equal(t, "Hello campus", req.Content)
	assert.Equal(t, "alice@campus.edu", req.CreatedBy)
	assert.Equal(t, "public", req.VisibleIn)
	assert.Nil(t, req.ImageBase64)

	assert.Empty(t, c.Content())
	assert.Equal(t, models.MaxContentLength, c.Remaining())
}

func TestSubmitAnonymous(t *testing.T) {
	tests := []struct {
		name    string
		session *identity.Session
	}{
		{name: "no session", session: nil},
		{name: "still loading", session: identity.NewSession()},
		{name: "signed out", session: func() *identity.Session {
			s := signedIn("alice@campus.edu")
			s.SignOut()
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{}
			c := compose.NewComposer(poster, tt.session)
			c.SetContent("hi")
			_, err := c.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, compose.AnonymousAuthor, poster.requests[0].CreatedBy)
		})
	}
}

func TestSubmitWithImage(t *testing.T) {
	data := []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'p', 'g'}
	poster := &fakePoster{}
	c := compose.NewComposer(poster, signedIn("alice@campus.edu"))
	c.SetContent("with a picture")
	c.AttachImage(writeImage(t, data))
	c.SetVisibility("friends")

	post, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, post.HasImage())

	req := poster.requests[0]
	require.NotNil(t, req.ImageBase64)
	decoded, err := base64.StdEncoding.DecodeString(*req.ImageBase64)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
	assert.Equal(t, "friends", req.VisibleIn)

	assert.Empty(t, c.ImagePath())
	assert.Equal(t, "public", c.Visibility())
}

func TestSubmitImageFailureKeepsDraft(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.jpg") }},
		{name: "empty file", path: func(t *testing.T) string { return writeImage(t, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{}
			c := compose.NewComposer(poster, signedIn("alice@campus.edu"))
			c.SetContent("caption")
			path := tt.path(t)
			c.AttachImage(path)

			_, err := c.Submit(context.Background())
			var eerr *compose.EncodingError
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, path, eerr.Path)
			assert.Equal(t, 0, poster.count())

			assert.Equal(t, "caption", c.Content())
			assert.Equal(t, path, c.ImagePath())
			assert.True(t, c.CanSubmit())

			// dropping the image lets the text go through
			c.RemoveImage()
			_, err = c.Submit(context.Background())
			require.NoError(t, err)
			assert.Nil(t, poster.requests[0].ImageBase64)
		})
	}
}

func TestSubmitServerErrorKeepsDraft(t *testing.T) {
	poster := &fakePoster{err: &client.ServerError{Status: 500, Message: "Failed to create post"}}
	c := compose.NewComposer(poster, signedIn("alice@campus.edu"))
	c.SetContent("will fail")

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to create post", err.Error())
	assert.Equal(t, 500, client.StatusCode(err))

	assert.Equal(t, "will fail", c.Content())
	assert.False(t, c.Submitting())
}

func TestSubmitInFlight(t *testing.T) {
	poster := &fakePoster{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c := compose.NewComposer(poster, signedIn("alice@campus.edu"))
	c.SetContent("once")

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-poster.started

	assert.True(t, c.Submitting())
	assert.False(t, c.CanSubmit())
	_, err := c.Submit(context.Background())
	assert.True(t, errors.Is(err, compose.ErrSubmitInFlight))

	close(poster.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, poster.count())
}

func TestSetContentCapsLength(t *testing.T) {
	c := compose.NewComposer(&fakePoster{}, nil)

	c.SetContent(strings.Repeat("a", 300))
	assert.Equal(t, models.MaxContentLength, len(c.Content()))
	assert.Equal(t, 0, c.Remaining())

	// runes, not bytes
	c.SetContent(strings.Repeat("é", 10))
	assert.Equal(t, models.MaxContentLength-10, c.Remaining())
}

func TestSetVisibilityDefaultsToPublic(t *testing.T) {
	c := compose.NewComposer(&fakePoster{}, nil)
	assert.Equal(t, "public", c.Visibility())
	c.SetVisibility("friends")
	assert.Equal(t, "friends", c.Visibility())
	c.SetVisibility("")
	assert.Equal(t, "public", c.Visibility())
}
