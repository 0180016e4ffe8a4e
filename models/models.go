package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MaxContentLength is the maximum number of characters in a post body.
const MaxContentLength = 280

// PostID is an opaque post identifier. The server may encode it as a JSON
// number or string; both decode to the same value.
type PostID string

func (id *PostID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PostID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("post id: %w", err)
	}
	*id = PostID(n.String())
	return nil
}

// Int64 returns the numeric form of the id used by the database.
func (id PostID) Int64() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// Post model as exchanged with the remote post store
type Post struct {
	ID        PostID    `json:"id"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"imageurl"`
	CreatedOn time.Time `json:"createdon"`
	CreatedBy string    `json:"createdby"`
	VisibleIn string    `json:"visiblein"`
}

// UnmarshalJSON decodes a post leniently. A field of the wrong type decodes
// to its zero value instead of failing, so one malformed row cannot make a
// whole listing unreadable: an unusable visiblein classifies as
// VisibilityUnknown and an unparseable createdon becomes the zero time.
func (p *Post) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	var id PostID
	if v, ok := raw["id"]; ok && id.UnmarshalJSON(v) != nil {
		id = ""
	}

	*p = Post{
		ID:        id,
		Content:   lenientString(raw["content"]),
		CreatedBy: lenientString(raw["createdby"]),
		VisibleIn: lenientString(raw["visiblein"]),
	}
	if url := lenientString(raw["imageurl"]); url != "" {
		p.ImageURL = &url
	}
	if on := lenientString(raw["createdon"]); on != "" {
		if t, err := ParseTimestamp(on); err == nil {
			p.CreatedOn = t
		}
	}
	return nil
}

// lenientString returns the value of a JSON string, or "" for anything else
func lenientString(v json.RawMessage) string {
	var s string
	if len(v) == 0 || json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}

// Visibility returns the classified audience of the post.
func (p Post) Visibility() Visibility {
	return ParseVisibility(p.VisibleIn)
}

// HasImage reports whether the post carries a usable image reference.
func (p Post) HasImage() bool {
	return p.ImageURL != nil && *p.ImageURL != ""
}

// Visibility is the closed set of audiences a post can be shown to.
type Visibility uint8

const (
	// VisibilityUnknown covers absent, legacy and unrecognised values. Never shown.
	VisibilityUnknown Visibility = iota
	VisibilityPublic
	VisibilityFriends
)

const (
	VisibleInPublic  = "public"
	VisibleInFriends = "friends"
)

// ParseVisibility classifies a raw visibility value. Matching is exact.
func ParseVisibility(raw string) Visibility {
	switch raw {
	case VisibleInPublic:
		return VisibilityPublic
	case VisibleInFriends:
		return VisibilityFriends
	default:
		return VisibilityUnknown
	}
}

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return VisibleInPublic
	case VisibilityFriends:
		return VisibleInFriends
	default:
		return "unknown"
	}
}

// User is a stored profile record keyed by email
type User struct {
	ID        int64     `json:"-"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"-"`
}

// CreatePostEvent fired when a new post is stored
type CreatePostEvent struct {
	Post Post
}

// Request and response envelopes

type ListPostsResponse struct {
	Success bool   `json:"success"`
	Data    []Post `json:"data"`
	Error   string `json:"error,omitempty"`
}

type CreatePostRequest struct {
	Content     string  `json:"content"`
	ImageBase64 *string `json:"imageBase64,omitempty"`
	VisibleIn   string  `json:"visiblein,omitempty"`
	CreatedBy   string  `json:"createdby,omitempty"`
}

type CreatePostResponse struct {
	Success bool   `json:"success"`
	Data    *Post  `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

type LookupUserRequest struct {
	Email string `json:"email"`
}

type CreateUserRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image,omitempty"`
}

type UserResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

type UploadImageRequest struct {
	Email       string `json:"email"`
	ImageBase64 string `json:"imageBase64"`
}

type UploadImageResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
