// Package cache keeps the most recent post listing in Redis so repeated feed
// refreshes do not hit the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusphere/models"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	listKey       = "campusphere:posts:list"
	generationKey = "campusphere:posts:generation"
)

// ErrStale is returned by Set when the listing was invalidated after it was
// read. Nothing is stored.
var ErrStale = errors.New("cache: listing is stale")

// PostCache stores the full post listing.
//
// A listing must be stored with the generation read before it was loaded.
// Every Invalidate moves to a new generation, so a listing loaded before a
// concurrent write is rejected instead of hiding that write until it expires.
type PostCache interface {
	Get(ctx context.Context) ([]models.Post, bool, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, generation int64, posts []models.Post) error
	Invalidate(ctx context.Context) error
}

// RedisCache implements PostCache on a Redis string key with a TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and verifies the server answers
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context) ([]models.Post, bool, error) {
	data, err := c.client.Get(ctx, listKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Discarding undecodable cached listing")
		_ = c.Invalidate(ctx)
		return nil, false, nil
	}
	return posts, true, nil
}

func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

// Set stores posts if the generation is still current. The generation key is
// watched so an Invalidate racing with the write aborts it.
func (c *RedisCache) Set(ctx context.Context, generation int64, posts []models.Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, listKey, data, c.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("cache set: %w", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, listKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Noop never holds anything
type Noop struct{}

func (Noop) Get(context.Context) ([]models.Post, bool, error) { return nil, false, nil }
func (Noop) Generation(context.Context) (int64, error)        { return 0, nil }
func (Noop) Set(context.Context, int64, []models.Post) error  { return nil }
func (Noop) Invalidate(context.Context) error                 { return nil }

var _ PostCache = (*RedisCache)(nil)
var _ PostCache = (*Memory)(nil)
var _ PostCache = Noop{}
