package query

import (
	"github.com/huandu/go-sqlbuilder"
)

// PostColumns are selected, in order, by every post query
var PostColumns = []string{
	"posts.id",
	"posts.content",
	"posts.imageurl",
	"posts.createdon",
	"posts.createdby",
	"posts.visiblein",
}

// FilterStrategy adds WHERE conditions to the query
type FilterStrategy interface {
	// ApplyFilter adds filter conditions to the query builder
	ApplyFilter(sb *sqlbuilder.SelectBuilder)
}

// PostQueryBuilder builds the post listing query, newest first
type PostQueryBuilder struct {
	filters []FilterStrategy
}

func NewPostQueryBuilder(filters ...FilterStrategy) *PostQueryBuilder {
	return &PostQueryBuilder{filters: filters}
}

// Build returns the SQL and arguments. A limit of zero means no limit and a
// cursor of zero means start from the newest post.
func (b *PostQueryBuilder) Build(limit int, cursor int64) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(PostColumns...).From("posts")

	for _, filter := range b.filters {
		filter.ApplyFilter(sb)
	}

	if cursor != 0 {
		sb.Where(sb.LessThan("posts.id", cursor))
	}

	sb.OrderBy("posts.createdon DESC", "posts.id DESC")

	if limit > 0 {
		sb.Limit(limit)
	}

	return sb.Build()
}
