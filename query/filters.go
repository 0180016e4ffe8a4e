package query

import (
	"github.com/huandu/go-sqlbuilder"
)

// AuthorFilter limits posts to a single author email
type AuthorFilter struct {
	CreatedBy string
}

func (f *AuthorFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if f.CreatedBy != "" {
		sb.Where(sb.Equal("posts.createdby", f.CreatedBy))
	}
}

// VisibilityFilter limits posts to the given raw visibility values
type VisibilityFilter struct {
	VisibleIn []string
}

func (f *VisibilityFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if len(f.VisibleIn) == 0 {
		return
	}
	values := make([]interface{}, len(f.VisibleIn))
	for i, v := range f.VisibleIn {
		values[i] = v
	}
	sb.Where(sb.In("posts.visiblein", values...))
}

// WithImageFilter keeps only posts that carry an image
type WithImageFilter struct{}

func (f *WithImageFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.IsNotNull("posts.imageurl"), sb.NotEqual("posts.imageurl", ""))
}

var _ FilterStrategy = (*AuthorFilter)(nil)
var _ FilterStrategy = (*VisibilityFilter)(nil)
var _ FilterStrategy = (*WithImageFilter)(nil)
