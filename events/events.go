// Package events announces stored posts to other services over NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusphere/models"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const DefaultSubject = "post.created"

var (
	ErrQueueFull        = errors.New("event queue full")
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

// PostCreatedEvent is the payload published for every new post
type PostCreatedEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	VisibleIn string    `json:"visible_in"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPostCreatedEvent(post models.Post) PostCreatedEvent {
	contentType := "post"
	if post.HasImage() {
		contentType = "image"
	}
	return PostCreatedEvent{
		ID:        string(post.ID),
		AuthorID:  post.CreatedBy,
		Content:   post.Content,
		Type:      contentType,
		VisibleIn: post.VisibleIn,
		CreatedAt: post.CreatedOn,
	}
}

// Publisher announces created posts
type Publisher interface {
	PublishPostCreated(ctx context.Context, post models.Post) error
}

// Conn is the subset of *nats.Conn used for publishing
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

type NatsPublisher struct {
	nc      Conn
	subject string
}

func NewNatsPublisher(nc Conn, subject string) *NatsPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NatsPublisher{nc: nc, subject: subject}
}

// Connect opens a NATS connection that reconnects forever
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("campusphere"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithFields(log.Fields{"error": err}).Warn("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithFields(log.Fields{"url": nc.ConnectedUrl()}).Info("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

func (p *NatsPublisher) PublishPostCreated(ctx context.Context, post models.Post) error {
	data, err := json.Marshal(NewPostCreatedEvent(post))
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  nats.Header{},
	}
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		msg.Header.Set("X-Request-ID", id)
	}

	log.WithFields(log.Fields{
		"subject": p.subject,
		"post_id": post.ID,
	}).Info("Publishing event")

	return p.nc.PublishMsg(msg)
}

// RequestIDKey carries the HTTP request id into published message headers
type RequestIDKey struct{}

// Noop discards events
type Noop struct{}

func (Noop) PublishPostCreated(context.Context, models.Post) error { return nil }

var _ Publisher = (*NatsPublisher)(nil)
var _ Publisher = Noop{}
