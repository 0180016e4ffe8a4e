package server

import (
	"sync"

	"campusphere/models"

	log "github.com/sirupsen/logrus"
)

// Broadcaster fans created posts out to connected SSE clients
type Broadcaster struct {
	sync.RWMutex
	createPostClients map[string]chan models.CreatePostEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		createPostClients: make(map[string]chan models.CreatePostEvent),
	}
}

func (b *Broadcaster) BroadcastCreatePost(post models.CreatePostEvent) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.createPostClients {
		select {
		case client <- post: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping post for client: %v", id)
		}
	}
}

// AddClient registers a client channel under key
func (b *Broadcaster) AddClient(key string, createPostClient chan models.CreatePostEvent) {
	b.Lock()
	defer b.Unlock()
	b.createPostClients[key] = createPostClient
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.createPostClients),
	}).Info("Adding client to broadcaster")
}

// RemoveClient closes and forgets the channel registered under key
func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.createPostClients[key]; ok {
		close(client)
		delete(b.createPostClients, key)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.createPostClients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) ClientCount() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.createPostClients)
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.createPostClients {
		close(client)
		delete(b.createPostClients, key)
	}
}
