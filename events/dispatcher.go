package events

import (
	"context"
	"sync"

	"campusphere/models"

	log "github.com/sirupsen/logrus"
)

type job struct {
	ctx  context.Context
	post models.Post
}

// Dispatcher publishes events from a pool of workers so callers never wait
// on the broker. Events are dropped when the queue is full.
type Dispatcher struct {
	next   Publisher
	queue  chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(next Publisher, maxWorkers, maxQueueSize int) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	d := &Dispatcher{
		next:  next,
		queue: make(chan job, maxQueueSize),
	}

	d.wg.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go d.startWorker(i)
	}
	return d
}

func (d *Dispatcher) startWorker(id int) {
	defer d.wg.Done()

	for j := range d.queue {
		if err := d.next.PublishPostCreated(j.ctx, j.post); err != nil {
			log.WithFields(log.Fields{
				"worker":  id,
				"post_id": j.post.ID,
				"error":   err,
			}).Error("Failed to publish event")
		}
	}
	log.Debugf("Worker %d: Shutting down", id)
}

// PublishPostCreated queues the event. The request context is detached so
// the event outlives the request while keeping its values.
func (d *Dispatcher) PublishPostCreated(ctx context.Context, post models.Post) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), post: post}:
		return nil
	default:
		log.WithFields(log.Fields{"post_id": post.ID}).Warn("Event queue full, dropping event")
		return ErrQueueFull
	}
}

// Shutdown stops accepting events and waits for queued ones to be published
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
