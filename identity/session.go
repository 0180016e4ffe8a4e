// Package identity holds who is using the client: the Session fed by the
// identity provider and the token handling shared with the server.
package identity

import (
	"strings"
	"sync"
)

// Viewer is the currently authenticated user. The zero value is an
// unauthenticated viewer.
type Viewer struct {
	Email       string
	DisplayName *string
	AvatarURL   *string
}

func (v Viewer) Authenticated() bool {
	return v.Email != ""
}

// Is reports whether the viewer authored content attributed to email
func (v Viewer) Is(email string) bool {
	return v.Authenticated() && v.Email == email
}

// EventKind enumerates identity provider notifications
type EventKind int

const (
	SignedIn EventKind = iota
	SignedOut
	ProfileUpdated
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed-in"
	case SignedOut:
		return "signed-out"
	case ProfileUpdated:
		return "profile-updated"
	default:
		return "unknown"
	}
}

// Event is a notification from the identity provider
type Event struct {
	Kind   EventKind
	Viewer Viewer
}

// Route is the top level screen selected by the authentication state
type Route int

const (
	RouteLoading Route = iota
	RouteLanding
	RouteHome
)

func (r Route) String() string {
	switch r {
	case RouteLanding:
		return "landing"
	case RouteHome:
		return "home"
	default:
		return "loading"
	}
}

// Listener receives the viewer after every change
type Listener func(Viewer)

// Session is the identity context shared by the feed and the composer.
// Create one with NewSession and pass it to the components that need it.
type Session struct {
	mu        sync.RWMutex
	viewer    Viewer
	loading   bool
	listeners map[uint64]Listener
	nextID    uint64
}

// NewSession returns a session that is loading until the provider reports
// its first state.
func NewSession() *Session {
	return &Session{
		loading:   true,
		listeners: make(map[uint64]Listener),
	}
}

func (s *Session) Viewer() Viewer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewer
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Session) Route() Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.loading:
		return RouteLoading
	case s.viewer.Authenticated():
		return RouteHome
	default:
		return RouteLanding
	}
}

// Subscribe registers fn for viewer changes and returns a function that
// removes it again.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Apply updates the session from a provider notification and notifies
// subscribers.
func (s *Session) Apply(e Event) {
	s.mu.Lock()
	s.loading = false
	switch e.Kind {
	case SignedIn:
		s.viewer = normalise(e.Viewer)
	case SignedOut:
		s.viewer = Viewer{}
	case ProfileUpdated:
		if e.Viewer.DisplayName != nil {
			s.viewer.DisplayName = e.Viewer.DisplayName
		}
		if e.Viewer.AvatarURL != nil {
			s.viewer.AvatarURL = e.Viewer.AvatarURL
		}
	}
	viewer := s.viewer
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(viewer)
	}
}

func (s *Session) SignIn(v Viewer) {
	s.Apply(Event{Kind: SignedIn, Viewer: v})
}

func (s *Session) SignOut() {
	s.Apply(Event{Kind: SignedOut})
}

// UpdateProfile merges the non-nil fields into the current viewer
func (s *Session) UpdateProfile(displayName, avatarURL *string) {
	s.Apply(Event{Kind: ProfileUpdated, Viewer: Viewer{DisplayName: displayName, AvatarURL: avatarURL}})
}

func normalise(v Viewer) Viewer {
	v.Email = strings.TrimSpace(v.Email)
	if v.DisplayName != nil && strings.TrimSpace(*v.DisplayName) == "" {
		v.DisplayName = nil
	}
	if v.AvatarURL != nil && *v.AvatarURL == "" {
		v.AvatarURL = nil
	}
	return v
}
