package cache

import (
	"context"
	"sync"
	"time"

	"campusphere/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a PostCache held in process. It only sees invalidations from
// its own server, so use Redis when running more than one instance.
type Memory struct {
	mu         sync.Mutex
	generation int64
	entries    *expirable.LRU[string, []models.Post]
}

// NewMemory keeps the listing for ttl. Zero keeps it until invalidated.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{entries: expirable.NewLRU[string, []models.Post](1, nil, ttl)}
}

func (m *Memory) Get(context.Context) ([]models.Post, bool, error) {
	posts, ok := m.entries.Get(listKey)
	if !ok {
		return nil, false, nil
	}
	return append([]models.Post{}, posts...), true, nil
}

func (m *Memory) Generation(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation, nil
}

func (m *Memory) Set(_ context.Context, generation int64, posts []models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation {
		return ErrStale
	}
	m.entries.Add(listKey, append([]models.Post{}, posts...))
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.entries.Remove(listKey)
	return nil
}
