package server

import (
	"context"
	"strings"

	"campusphere/cache"
	"campusphere/db"
	"campusphere/events"
	"campusphere/models"
	"campusphere/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const bodyLimit = 16 * 1024 * 1024

// PostStore is the persistence the post routes need
type PostStore interface {
	CreatePost(ctx context.Context, post db.NewPost) (models.Post, error)
	ListPosts(ctx context.Context, opts db.ListOptions) ([]models.Post, error)
}

// UserStore is the persistence the user routes need
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	SetUserImage(ctx context.Context, email string, imageURL string) error
}

type ServerConfig struct {
	Posts PostStore
	Users UserStore

	// Object store for post and profile images
	Storage storage.Store

	// Key prefix for stored images
	StoragePrefix string

	// Directory served under /uploads when images are stored locally
	UploadsDir string

	// Optional, defaults to a no-op cache
	Cache cache.PostCache

	// Optional, defaults to a no-op publisher
	Publisher events.Publisher

	// Broadcast channels to pass posts to SSE clients
	Broadcaster *Broadcaster

	// Optional, bearer tokens are ignored when nil
	Verifier TokenVerifier

	CorsOrigins []string
}

// Server returns a fiber.App serving the CampuSphere REST API
func Server(config *ServerConfig) *fiber.App {
	if config.Cache == nil {
		config.Cache = cache.Noop{}
	}
	if config.Publisher == nil {
		config.Publisher = events.Noop{}
	}
	if config.Broadcaster == nil {
		config.Broadcaster = NewBroadcaster()
	}

	h := &handlers{
		posts:     config.Posts,
		users:     config.Users,
		store:     config.Storage,
		prefix:    config.StoragePrefix,
		cache:     config.Cache,
		publisher: config.Publisher,
		bc:        config.Broadcaster,
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	app.Use(observe)
	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/sse")
		},
	}))

	origins := "*"
	if len(config.CorsOrigins) > 0 {
		origins = strings.Join(config.CorsOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Cache-Control",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if config.UploadsDir != "" {
		app.Static("/uploads", config.UploadsDir)
	}

	if config.Verifier != nil {
		app.Use(authenticate(config.Verifier))
	}

	app.Get("/post/sse", streamPosts(config.Broadcaster))
	app.Delete("/post/sse", removeStreamClient(config.Broadcaster))
	app.Get("/post", h.listPosts)
	app.Post("/post", h.createPost)

	app.Post("/auth", h.lookupUser)
	app.Post("/users", h.createUser)
	app.Post("/users/image", h.uploadProfileImage)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	return c.Status(code).JSON(models.ErrorResponse{Error: err.Error()})
}
