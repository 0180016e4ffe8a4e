package cmd

import (
	"campusphere/db"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Creates or upgrades the posts and users tables on the configured database.`,
		Flags:       databaseFlags(),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			applyDatabaseFlags(ctx, &cfg.Database)

			log.WithFields(log.Fields{
				"host":     cfg.Database.Host,
				"port":     cfg.Database.Port,
				"database": cfg.Database.Name,
			}).Info("Database configured")
			return db.Migrate(db.ConnectionURL(cfg.Database))
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migration",
		Description: `Rolls back the last database migration`,
		Flags:       databaseFlags(),
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			applyDatabaseFlags(ctx, &cfg.Database)

			log.WithFields(log.Fields{
				"host":     cfg.Database.Host,
				"port":     cfg.Database.Port,
				"database": cfg.Database.Name,
			}).Info("Database configured")
			return db.Rollback(db.ConnectionURL(cfg.Database))
		},
	}
}
