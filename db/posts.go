package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"campusphere/models"
	"campusphere/query"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// NewPost holds the values written when a post is created
type NewPost struct {
	Content   string
	ImageURL  *string
	CreatedBy string
	VisibleIn string
}

// ListOptions narrows the post listing. The zero value lists every post.
type ListOptions struct {
	CreatedBy string
	VisibleIn []string
	WithImage bool
	Limit     int
	// Before lists only posts with a smaller id. Zero starts at the newest.
	Before int64
}

// Filters converts the options into query filter strategies
func (o ListOptions) Filters() []query.FilterStrategy {
	var filters []query.FilterStrategy
	if o.CreatedBy != "" {
		filters = append(filters, &query.AuthorFilter{CreatedBy: o.CreatedBy})
	}
	if len(o.VisibleIn) > 0 {
		filters = append(filters, &query.VisibilityFilter{VisibleIn: o.VisibleIn})
	}
	if o.WithImage {
		filters = append(filters, &query.WithImageFilter{})
	}
	return filters
}

// IsZero reports whether the options select the full listing
func (o ListOptions) IsZero() bool {
	return o.CreatedBy == "" && len(o.VisibleIn) == 0 && !o.WithImage && o.Limit == 0 && o.Before == 0
}

func insertPostQuery(post NewPost) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("posts")
	ib.Cols("content", "imageurl", "createdby", "visiblein")
	ib.Values(post.Content, post.ImageURL, post.CreatedBy, post.VisibleIn)
	sql, args := ib.Build()
	return sql + " RETURNING id, createdon", args
}

// CreatePost stores a post and returns it with its assigned id and creation time
func (db *DB) CreatePost(ctx context.Context, post NewPost) (models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	log.WithFields(log.Fields{
		"createdby": post.CreatedBy,
		"visiblein": post.VisibleIn,
		"hasImage":  post.ImageURL != nil,
	}).Info("Creating post")

	sql, args := insertPostQuery(post)

	var (
		id        int64
		createdOn time.Time
	)
	if err := db.db.QueryRowContext(ctx, sql, args...).Scan(&id, &createdOn); err != nil {
		return models.Post{}, classify(fmt.Errorf("insert error: %w", err))
	}

	return models.Post{
		ID:        models.PostID(strconv.FormatInt(id, 10)),
		Content:   post.Content,
		ImageURL:  normaliseURL(post.ImageURL),
		CreatedOn: createdOn,
		CreatedBy: post.CreatedBy,
		VisibleIn: post.VisibleIn,
	}, nil
}

// ListPosts returns posts ordered by creation time, newest first
func (db *DB) ListPosts(ctx context.Context, opts ListOptions) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sql, args := query.NewPostQueryBuilder(opts.Filters()...).Build(opts.Limit, opts.Before)
	log.WithFields(log.Fields{
		"sql":  sql,
		"args": args,
	}).Debug("Generated SQL query")

	rows, err := db.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("query error: %w", err))
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("rows error: %w", err))
	}

	return posts, nil
}

func scanPost(rows *sql.Rows) (models.Post, error) {
	var (
		id        int64
		post      models.Post
		imageURL  sql.NullString
		createdBy sql.NullString
		visibleIn sql.NullString
	)
	if err := rows.Scan(&id, &post.Content, &imageURL, &post.CreatedOn, &createdBy, &visibleIn); err != nil {
		return models.Post{}, fmt.Errorf("scan error: %w", err)
	}
	post.ID = models.PostID(strconv.FormatInt(id, 10))
	post.CreatedBy = createdBy.String
	post.VisibleIn = visibleIn.String
	if imageURL.Valid && imageURL.String != "" {
		post.ImageURL = &imageURL.String
	}
	return post, nil
}

func normaliseURL(u *string) *string {
	if u == nil || *u == "" {
		return nil
	}
	return u
}
