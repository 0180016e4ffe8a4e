package query_test

import (
	"testing"

	"campusphere/query"

	"github.com/stretchr/testify/assert"
)

func TestPostQueryBuilder(t *testing.T) {
	tests := []struct {
		name        string
		filters     []query.FilterStrategy
		cursor      int64
		contains    []string
		notContains []string
		args        []interface{}
	}{
		{
			name:        "no filters lists everything newest first",
			contains:    []string{"SELECT posts.id, posts.content, posts.imageurl, posts.createdon, posts.createdby, posts.visiblein FROM posts", "ORDER BY posts.createdon DESC, posts.id DESC"},
			notContains: []string{"WHERE"},
		},
		{
			name:     "author filter",
			filters:  []query.FilterStrategy{&query.AuthorFilter{CreatedBy: "alice@x.edu"}},
			contains: []string{"WHERE posts.createdby = $1"},
			args:     []interface{}{"alice@x.edu"},
		},
		{
			name:        "empty author filter is ignored",
			filters:     []query.FilterStrategy{&query.AuthorFilter{}},
			notContains: []string{"WHERE"},
		},
		{
			name: "author and visibility filters combine",
			filters: []query.FilterStrategy{
				&query.AuthorFilter{CreatedBy: "alice@x.edu"},
				&query.VisibilityFilter{VisibleIn: []string{"public", "friends"}},
			},
			contains: []string{"posts.createdby = $1", "posts.visiblein IN ($2, $3)"},
			args:     []interface{}{"alice@x.edu", "public", "friends"},
		},
		{
			name:     "cursor",
			cursor:   99,
			contains: []string{"posts.id < $1"},
			args:     []interface{}{int64(99)},
		},
		{
			name:     "with image",
			filters:  []query.FilterStrategy{&query.WithImageFilter{}},
			contains: []string{"posts.imageurl IS NOT NULL", "posts.imageurl <> $1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := query.NewPostQueryBuilder(tt.filters...).Build(0, tt.cursor)
			for _, fragment := range tt.contains {
				assert.Contains(t, sql, fragment)
			}
			for _, fragment := range tt.notContains {
				assert.NotContains(t, sql, fragment)
			}
			for _, arg := range tt.args {
				assert.Contains(t, args, arg)
			}
		})
	}
}

func TestPostQueryBuilderLimit(t *testing.T) {
	unlimited, _ := query.NewPostQueryBuilder().Build(0, 0)
	assert.NotContains(t, unlimited, "LIMIT")

	limited, _ := query.NewPostQueryBuilder().Build(20, 0)
	assert.Contains(t, limited, "LIMIT")
}
