package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"campusphere/client"
	"campusphere/feed"
	"campusphere/identity"
	"campusphere/models"

	"github.com/stretchr/testify/assert"
)

func TestPrintView(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	image := "http://localhost:3000/uploads/CampuSphere/posts/a.jpg"
	state := feed.State{Posts: []models.Post{
		{ID: "2", Content: "Lunch?", CreatedBy: "alice@campus.edu", VisibleIn: "public", CreatedOn: now.Add(-2 * time.Hour), ImageURL: &image},
		{ID: "1", Content: "secret", CreatedBy: "bob@campus.edu", VisibleIn: "friends", CreatedOn: now},
	}}

	var buf bytes.Buffer
	printView(&buf, feed.Render(state, identity.Viewer{Email: "alice@campus.edu"}, now))

	out := buf.String()
	assert.Contains(t, out, "alice (you) · 2h ago\nLunch?\n[image] "+image)
	assert.NotContains(t, out, "secret")
}

func TestPrintViewEmptyWithError(t *testing.T) {
	var buf bytes.Buffer
	printView(&buf, feed.Render(feed.State{LastError: "Network request failed: timeout"}, identity.Viewer{}, time.Now()))

	assert.Equal(t, "! Network request failed: timeout\n\n"+feed.EmptyMessage+"\n", buf.String())
}

func TestPrintJSON(t *testing.T) {
	state := feed.State{Posts: []models.Post{
		{ID: "3", Content: "a", VisibleIn: "public"},
		{ID: "2", Content: "b", VisibleIn: "friends"},
		{ID: "1", Content: "c", VisibleIn: "public"},
	}}

	var buf bytes.Buffer
	printJSON(&buf, feed.Render(state, identity.Viewer{}, time.Now()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"id":"3"`)
	assert.Contains(t, lines[1], `"id":"1"`)
}

func TestLatestID(t *testing.T) {
	assert.Equal(t, models.PostID(""), latestID(nil))
	assert.Equal(t, models.PostID("9"), latestID([]models.Post{{ID: "9"}, {ID: "8"}}))
}

func TestStopWatching(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "no error", err: nil, want: false},
		{name: "unreachable server", err: &client.TransportError{Method: "GET", Path: "/post", Err: errors.New("connection refused")}, want: false},
		{name: "service unavailable", err: &client.ServerError{Status: 503}, want: false},
		{name: "server failure", err: &client.ServerError{Status: 500, Message: "Failed to fetch posts"}, want: false},
		{name: "unauthorized", err: &client.ServerError{Status: 401, Message: "Invalid or expired token"}, want: true},
		{name: "not found", err: &client.ServerError{Status: 404}, want: true},
		{name: "undecodable body", err: &client.DecodeError{Path: "/post", Err: errors.New("unexpected EOF")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stopWatching(tt.err))
		})
	}
}
