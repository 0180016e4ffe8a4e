// Package feed keeps a local copy of the campus feed in sync with the
// remote post store and turns it into display-ready items.
package feed

import (
	"context"
	"sync"

	"campusphere/models"

	log "github.com/sirupsen/logrus"
)

// Source lists every post known to the remote store
type Source interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
}

// State is a snapshot of the local feed
type State struct {
	// Posts as last returned by the server, in server order
	Posts []models.Post

	// True until the first fetch attempt completes
	IsInitialLoading bool

	// True while a fetch is in flight
	IsRefreshing bool

	// Message of the most recent failed fetch, empty when the last fetch
	// succeeded or none has failed yet
	LastError string
}

// Phase is the coarse state of the syncer
type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Errored
	Refreshing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Syncer owns the feed state. Only completed fetches mutate it.
type Syncer struct {
	source Source

	mu             sync.Mutex
	posts          []models.Post
	initialLoading bool
	refreshing     bool
	lastError      string
	lastErr        error
	started        bool
}

func NewSyncer(source Source) *Syncer {
	return &Syncer{
		source:         source,
		initialLoading: true,
	}
}

// FetchPosts loads the post list. Without force it does nothing while a
// fetch is in flight or once posts are present. It reports whether a request
// was issued. Overlapping forced fetches are not cancelled; the one that
// completes last determines the state.
func (s *Syncer) FetchPosts(ctx context.Context, force bool) bool {
	s.mu.Lock()
	if !force && (s.refreshing || len(s.posts) > 0) {
		s.mu.Unlock()
		return false
	}
	s.started = true
	s.refreshing = true
	s.lastError = ""
	s.lastErr = nil
	s.mu.Unlock()

	posts, err := s.source.ListPosts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.WithFields(log.Fields{
			"error":  err,
			"cached": len(s.posts),
		}).Warn("Failed to fetch posts")
		s.lastError = err.Error()
		s.lastErr = err
	} else {
		s.posts = posts
		s.lastError = ""
		s.lastErr = nil
	}
	s.refreshing = false
	s.initialLoading = false
	return true
}

// State returns a copy of the current feed state
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]models.Post, len(s.posts))
	copy(posts, s.posts)
	return State{
		Posts:            posts,
		IsInitialLoading: s.initialLoading,
		IsRefreshing:     s.refreshing,
		LastError:        s.lastError,
	}
}

// Err returns the error of the most recent failed fetch, unwrapped so callers
// can classify it. Nil under the same conditions as State().LastError.
func (s *Syncer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Syncer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.started:
		return Idle
	case s.refreshing && s.initialLoading:
		return Loading
	case s.refreshing:
		return Refreshing
	case s.lastError != "":
		return Errored
	default:
		return Loaded
	}
}

// Visible returns the posts the feed shows
func (s *Syncer) Visible() []models.Post {
	return DeriveVisiblePosts(s.State().Posts)
}
