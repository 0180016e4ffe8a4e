package server

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"campusphere/cache"
	"campusphere/db"
	"campusphere/events"
	"campusphere/models"
	"campusphere/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	defaultVisibleIn = models.VisibleInPublic
	anonymousAuthor  = "anon"
)

type handlers struct {
	posts     PostStore
	users     UserStore
	store     storage.Store
	prefix    string
	cache     cache.PostCache
	publisher events.Publisher
	bc        *Broadcaster
}

// requestContext carries the request id through to downstream calls
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id, ok := c.Locals("requestid").(string); ok {
		ctx = context.WithValue(ctx, events.RequestIDKey{}, id)
	}
	return ctx
}

var errBadCursor = errors.New("invalid before cursor")

func listOptions(c *fiber.Ctx) (db.ListOptions, error) {
	opts := db.ListOptions{
		CreatedBy: c.Query("createdby"),
		WithImage: c.QueryBool("withimage"),
		Limit:     max(c.QueryInt("limit", 0), 0),
	}
	if v := c.Query("visiblein"); v != "" {
		opts.VisibleIn = lo.Compact(lo.Map(strings.Split(v, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}
	if v := c.Query("before"); v != "" {
		before, err := models.PostID(v).Int64()
		if err != nil || before <= 0 {
			return db.ListOptions{}, errBadCursor
		}
		opts.Before = before
	}
	return opts, nil
}

func (h *handlers) listPosts(c *fiber.Ctx) error {
	ctx := requestContext(c)
	opts, err := listOptions(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ListPostsResponse{
			Success: false,
			Error:   err.Error(),
			Data:    []models.Post{},
		})
	}

	cacheable := opts.IsZero()
	var generation int64
	if cacheable {
		posts, ok, err := h.cache.Get(ctx)
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("Cache read failed")
		}
		if ok {
			listServed.WithLabelValues("cache").Inc()
			return c.JSON(models.ListPostsResponse{Success: true, Data: posts})
		}
		// Read before the query so a post created meanwhile makes the Set fail
		if generation, err = h.cache.Generation(ctx); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("Cache read failed")
			cacheable = false
		}
	}

	posts, err := h.posts.ListPosts(ctx, opts)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Error listing posts")
		status := fiber.StatusInternalServerError
		if errors.Is(err, db.ErrUnavailable) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(models.ListPostsResponse{
			Success: false,
			Error:   "Failed to fetch posts",
			Data:    []models.Post{},
		})
	}

	if cacheable {
		err := h.cache.Set(ctx, generation, posts)
		switch {
		case errors.Is(err, cache.ErrStale):
			log.Debug("Listing changed while loading, not caching it")
		case err != nil:
			log.WithFields(log.Fields{"error": err}).Warn("Cache write failed")
		}
	}

	listServed.WithLabelValues("database").Inc()
	return c.JSON(models.ListPostsResponse{Success: true, Data: posts})
}

func (h *handlers) createPost(c *fiber.Ctx) error {
	ctx := requestContext(c)

	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.CreatePostResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.CreatePostResponse{Error: "content required"})
	}
	if utf8.RuneCountInString(req.Content) > models.MaxContentLength {
		return c.Status(fiber.StatusBadRequest).JSON(models.CreatePostResponse{Error: "content exceeds 280 characters"})
	}

	post := db.NewPost{
		Content:   req.Content,
		CreatedBy: lo.CoalesceOrEmpty(strings.TrimSpace(req.CreatedBy), anonymousAuthor),
		VisibleIn: lo.CoalesceOrEmpty(req.VisibleIn, defaultVisibleIn),
	}
	if viewer, ok := viewerFrom(c); ok {
		post.CreatedBy = viewer.Email
	}

	var warning string
	if req.ImageBase64 != nil && *req.ImageBase64 != "" {
		url, err := h.uploadImage(ctx, storage.PostImageKey(h.prefix), *req.ImageBase64)
		if err != nil {
			// The post is still created without its image
			imageUploadFailures.WithLabelValues("post").Inc()
			log.WithFields(log.Fields{
				"createdby": post.CreatedBy,
				"error":     err,
			}).Error("Error uploading post image")
			warning = "Image upload failed, post created without image"
		} else {
			post.ImageURL = &url
		}
	}

	created, err := h.posts.CreatePost(ctx, post)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Error creating post")
		status := fiber.StatusInternalServerError
		if errors.Is(err, db.ErrUnavailable) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(models.CreatePostResponse{Error: "Failed to create post"})
	}
	postsCreated.Inc()

	if err := h.cache.Invalidate(ctx); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Cache invalidation failed")
	}
	h.bc.BroadcastCreatePost(models.CreatePostEvent{Post: created})
	if err := h.publisher.PublishPostCreated(ctx, created); err != nil {
		log.WithFields(log.Fields{"error": err, "post_id": created.ID}).Warn("Failed to publish post event")
	}

	return c.Status(fiber.StatusCreated).JSON(models.CreatePostResponse{
		Success: true,
		Data:    &created,
		Message: "Post created successfully",
		Warning: warning,
	})
}
