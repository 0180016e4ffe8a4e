// Package client talks to the CampuSphere REST API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusphere/models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultTimeout = 10 * time.Second

// Client is a thin wrapper around the fiber HTTP agent. It handles base URL
// construction, bearer token injection and error normalisation.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope captures the error fields every response may carry
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	url := c.baseURL + path
	var a *fiber.Agent
	switch method {
	case fiber.MethodGet:
		a = fiber.Get(url)
	case fiber.MethodPost:
		a = fiber.Post(url)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}

	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		a.JSON(body)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	a.Timeout(timeout)

	code, data, errs := a.Bytes()
	if len(errs) > 0 {
		log.WithFields(log.Fields{
			"method": method,
			"path":   path,
			"errors": errs,
		}).Debug("Request failed")
		return &TransportError{Method: method, Path: path, Err: errors.Join(errs...)}
	}

	var env envelope
	envErr := json.Unmarshal(data, &env)

	if code < 200 || code >= 300 {
		return &ServerError{Status: code, Message: env.Error}
	}
	if envErr == nil && env.Error != "" && (env.Success == nil || !*env.Success) {
		return &ServerError{Status: code, Message: env.Error}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &DecodeError{Path: path, Err: err}
		}
	}
	return nil
}

// ListPosts returns all posts as ordered by the server
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var resp models.ListPostsResponse
	if err := c.do(ctx, fiber.MethodGet, "/post", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []models.Post{}, nil
	}
	return resp.Data, nil
}

// CreatePost submits a new post and returns it as stored
func (c *Client) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	var resp models.CreatePostResponse
	if err := c.do(ctx, fiber.MethodPost, "/post", req, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &DecodeError{Path: "/post", Err: errors.New("response has no post")}
	}
	if resp.Warning != "" {
		log.WithFields(log.Fields{"warning": resp.Warning}).Warn("Post created with warning")
	}
	return resp.Data, nil
}

// LookupUser fetches the profile record for email
func (c *Client) LookupUser(ctx context.Context, email string) (models.User, error) {
	var resp models.UserResponse
	if err := c.do(ctx, fiber.MethodPost, "/auth", models.LookupUserRequest{Email: email}, &resp); err != nil {
		return models.User{}, err
	}
	if resp.User == nil {
		return models.User{}, &DecodeError{Path: "/auth", Err: errors.New("response has no user")}
	}
	return *resp.User, nil
}

// CreateUser stores a profile record
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error) {
	var resp models.UserResponse
	if err := c.do(ctx, fiber.MethodPost, "/users", req, &resp); err != nil {
		return models.User{}, err
	}
	if resp.User == nil {
		return models.User{}, &DecodeError{Path: "/users", Err: errors.New("response has no user")}
	}
	return *resp.User, nil
}

// UploadProfileImage stores a base64 encoded profile image and returns its URL
func (c *Client) UploadProfileImage(ctx context.Context, email, imageBase64 string) (string, error) {
	var resp models.UploadImageResponse
	req := models.UploadImageRequest{Email: email, ImageBase64: imageBase64}
	if err := c.do(ctx, fiber.MethodPost, "/users/image", req, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", &DecodeError{Path: "/users/image", Err: errors.New("response has no url")}
	}
	return resp.URL, nil
}
