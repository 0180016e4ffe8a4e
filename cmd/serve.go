package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"campusphere/cache"
	"campusphere/config"
	"campusphere/db"
	"campusphere/events"
	"campusphere/identity"
	"campusphere/server"
	"campusphere/storage"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	eventWorkers   = 4
	eventQueueSize = 256
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the CampuSphere API",
		Description: `Starts the CampuSphere HTTP server.

Posts and users are stored in PostgreSQL, images in the configured object
store. New posts are pushed to server-sent event subscribers and, when a NATS
URL is configured, published as events. A Redis URL enables caching of the
post listing.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Usage:   "The hostname to listen on",
				EnvVars: []string{"CAMPUSPHERE_HOSTNAME"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "The port to serve on",
				EnvVars: []string{"CAMPUSPHERE_PORT"},
			},
			&cli.BoolFlag{
				Name:    "auto-migrate",
				Usage:   "Run database migrations before serving",
				EnvVars: []string{"CAMPUSPHERE_AUTO_MIGRATE"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the post listing cache",
				EnvVars: []string{"CAMPUSPHERE_REDIS_URL"},
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS URL to publish post events to",
				EnvVars: []string{"CAMPUSPHERE_NATS_URL"},
			},
			&cli.StringFlag{
				Name:    "identity-secret",
				Usage:   "Shared secret used to verify identity tokens",
				EnvVars: []string{"CAMPUSPHERE_IDENTITY_SECRET"},
			},
		}, databaseFlags()...),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			applyServeFlags(ctx, cfg)

			log.Info("Starting CampuSphere...")

			if cfg.Server.AutoMigrate {
				if err := db.Migrate(db.ConnectionURL(cfg.Database)); err != nil {
					return fmt.Errorf("failed to migrate database: %w", err)
				}
			}

			database, err := db.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close()

			store, err := storage.New(ctx.Context, cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to set up storage: %w", err)
			}

			serverConfig := &server.ServerConfig{
				Posts:         database,
				Users:         database,
				Storage:       store,
				StoragePrefix: cfg.Storage.Prefix,
				Broadcaster:   server.NewBroadcaster(),
				CorsOrigins:   cfg.Server.CorsOrigins,
			}
			if cfg.Storage.Backend == "" || cfg.Storage.Backend == "fs" {
				serverConfig.UploadsDir = cfg.Storage.Directory
			}

			switch {
			case cfg.Cache.Backend == "redis" || (cfg.Cache.Backend == "" && cfg.Cache.RedisURL != ""):
				rdb, err := cache.Connect(ctx.Context, cfg.Cache.RedisURL)
				if err != nil {
					return err
				}
				defer rdb.Close()
				serverConfig.Cache = cache.NewRedisCache(rdb, cfg.Cache.TTL)
			case cfg.Cache.Backend == "memory":
				serverConfig.Cache = cache.NewMemory(cfg.Cache.TTL)
			case cfg.Cache.Backend != "":
				return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
			}

			if cfg.Events.NatsURL != "" {
				nc, err := events.Connect(cfg.Events.NatsURL)
				if err != nil {
					return err
				}
				defer nc.Drain()
				dispatcher := events.NewDispatcher(events.NewNatsPublisher(nc, cfg.Events.Subject), eventWorkers, eventQueueSize)
				defer dispatcher.Shutdown()
				serverConfig.Publisher = dispatcher
			}

			if cfg.Identity.Secret != "" {
				verifier, err := identity.NewVerifier(cfg.Identity.Secret, cfg.Identity.Issuer, cfg.Identity.Audience)
				if err != nil {
					return err
				}
				serverConfig.Verifier = verifier
			} else {
				log.Warn("No identity secret configured, bearer tokens are ignored")
			}

			app := server.Server(serverConfig)

			// Graceful shutdown
			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-sigCtx.Done()
				log.Info("Gracefully shutting down...")
				// SSE streams never end on their own
				serverConfig.Broadcaster.Shutdown()
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.WithFields(log.Fields{"error": err}).Error("Shutdown failed")
				}
			}()

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			log.WithFields(log.Fields{"addr": addr}).Info("Starting server...")
			if err := app.Listen(addr); err != nil {
				stop()
				wg.Wait()
				return err
			}

			stop()
			wg.Wait()
			log.Info("Done!")
			return nil
		},
	}
}

func applyServeFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet("hostname") {
		cfg.Server.Host = ctx.String("hostname")
	}
	if ctx.IsSet("port") {
		cfg.Server.Port = ctx.Int("port")
	}
	if ctx.IsSet("auto-migrate") {
		cfg.Server.AutoMigrate = ctx.Bool("auto-migrate")
	}
	if ctx.IsSet("redis-url") {
		cfg.Cache.RedisURL = ctx.String("redis-url")
	}
	if ctx.IsSet("nats-url") {
		cfg.Events.NatsURL = ctx.String("nats-url")
	}
	if ctx.IsSet("identity-secret") {
		cfg.Identity.Secret = ctx.String("identity-secret")
	}
	applyDatabaseFlags(ctx, &cfg.Database)
}

// clientContext is cancelled on interrupt
func clientContext(ctx *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
}
