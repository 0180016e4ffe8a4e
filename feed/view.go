package feed

import (
	"time"

	"campusphere/identity"
	"campusphere/models"

	"github.com/samber/lo"
)

// EmptyMessage is shown when there are no visible posts
const EmptyMessage = "Be the first to share something amazing!"

// Item is a post ready for display
type Item struct {
	Post      models.Post
	Author    Author
	TimeLabel string
}

// View is the rendered feed
type View struct {
	Items        []Item
	Loading      bool
	Refreshing   bool
	Error        string
	Empty        bool
	EmptyMessage string
}

// View renders the current state for viewer at time now
func (s *Syncer) View(viewer identity.Viewer, now time.Time) View {
	return Render(s.State(), viewer, now)
}

// Render turns a feed state into display items
func Render(state State, viewer identity.Viewer, now time.Time) View {
	items := lo.Map(DeriveVisiblePosts(state.Posts), func(p models.Post, _ int) Item {
		return Item{
			Post:      p,
			Author:    ResolveAuthorPresentation(p, viewer),
			TimeLabel: RelativeTime(p.CreatedOn, now),
		}
	})

	view := View{
		Items:      items,
		Loading:    state.IsInitialLoading,
		Refreshing: state.IsRefreshing,
		Error:      state.LastError,
		Empty:      len(items) == 0 && !state.IsInitialLoading,
	}
	if view.Empty {
		view.EmptyMessage = EmptyMessage
	}
	return view
}
