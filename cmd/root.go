package cmd

import (
	"fmt"

	"campusphere/config"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "campusphere",
		Usage: "A social feed for your campus",
		Description: `CampuSphere is a small social network for a campus community.

		The serve command runs the REST API backed by PostgreSQL and an object
		store for images. The remaining commands are clients for that API:
		read the feed, write posts and manage your account.

		Flags can generally be set via environment variables, e.g.:

		--config => CAMPUSPHERE_CONFIG=config/campusphere.toml
		--port => CAMPUSPHERE_PORT=3000
		--base-url => CAMPUSPHERE_BASE_URL=http://localhost:3000
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/campusphere.toml",
				Usage:   "Path to configuration file",
				EnvVars: []string{"CAMPUSPHERE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"CAMPUSPHERE_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			feedCmd(),
			postCmd(),
			signupCmd(),
			signinCmd(),
			tokenCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
