// Package compose drafts and submits new posts.
package compose

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"campusphere/identity"
	"campusphere/models"

	log "github.com/sirupsen/logrus"
)

// AnonymousAuthor is recorded as the author when nobody is signed in
const AnonymousAuthor = "anon"

// Poster creates posts on the server. client.Client implements it.
type Poster interface {
	CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error)
}

// Composer holds a draft post and submits it on behalf of the session's
// viewer.
type Composer struct {
	poster  Poster
	session *identity.Session

	readFile func(string) ([]byte, error)

	mu         sync.Mutex
	content    string
	imagePath  string
	visibility string
	submitting bool
}

func NewComposer(poster Poster, session *identity.Session) *Composer {
	return &Composer{
		poster:     poster,
		session:    session,
		readFile:   os.ReadFile,
		visibility: models.VisibleInPublic,
	}
}

// SetContent replaces the draft text. Input beyond MaxContentLength runes is
// dropped, like a text field with a maximum length.
func (c *Composer) SetContent(content string) {
	if utf8.RuneCountInString(content) > models.MaxContentLength {
		content = string([]rune(content)[:models.MaxContentLength])
	}
	c.mu.Lock()
	c.content = content
	c.mu.Unlock()
}

func (c *Composer) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// AttachImage selects the image file sent with the post. It is only read on
// Submit.
func (c *Composer) AttachImage(path string) {
	c.mu.Lock()
	c.imagePath = path
	c.mu.Unlock()
}

func (c *Composer) RemoveImage() {
	c.AttachImage("")
}

func (c *Composer) ImagePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imagePath
}

// SetVisibility sets the audience tag. An empty value resets it to public.
func (c *Composer) SetVisibility(visibleIn string) {
	if visibleIn == "" {
		visibleIn = models.VisibleInPublic
	}
	c.mu.Lock()
	c.visibility = visibleIn
	c.mu.Unlock()
}

func (c *Composer) Visibility() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibility
}

// Remaining is the number of characters still available
func (c *Composer) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.MaxContentLength - utf8.RuneCountInString(c.content)
}

func (c *Composer) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// CanSubmit reports whether the draft has text and no submission is pending
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.content) != "" && !c.submitting
}

// Submit sends the draft. The draft is cleared only when the server accepted
// the post; on any error it is left as it was so the user can retry.
func (c *Composer) Submit(ctx context.Context) (*models.Post, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	content := strings.TrimSpace(c.content)
	if content == "" {
		c.mu.Unlock()
		return nil, &ValidationError{Message: "Please write something!"}
	}
	imagePath := c.imagePath
	req := models.CreatePostRequest{
		Content:   content,
		VisibleIn: c.visibility,
		CreatedBy: c.author(),
	}
	c.submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	if imagePath != "" {
		encoded, err := c.encodeImage(imagePath)
		if err != nil {
			log.WithFields(log.Fields{"path": imagePath, "error": err}).Warn("Failed to encode image")
			return nil, err
		}
		req.ImageBase64 = &encoded
	}

	post, err := c.poster.CreatePost(ctx, req)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Failed to create post")
		return nil, err
	}

	log.WithFields(log.Fields{"id": post.ID, "author": req.CreatedBy}).Info("Post created")

	c.mu.Lock()
	c.content = ""
	c.imagePath = ""
	c.visibility = models.VisibleInPublic
	c.mu.Unlock()
	return post, nil
}

// author must be called with mu held
func (c *Composer) author() string {
	if c.session == nil {
		return AnonymousAuthor
	}
	if v := c.session.Viewer(); v.Authenticated() {
		return v.Email
	}
	return AnonymousAuthor
}

func (c *Composer) encodeImage(path string) (string, error) {
	data, err := c.readFile(path)
	if err != nil {
		return "", &EncodingError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return "", &EncodingError{Path: path, Err: errEmptyImage}
	}
	return EncodeImage(data), nil
}

// EncodeImage renders image bytes as the base64 payload the API expects
func EncodeImage(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
