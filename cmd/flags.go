package cmd

import (
	"campusphere/config"

	"github.com/urfave/cli/v2"
)

// Flags override the configuration file only when set, either on the
// command line or through their environment variable.

func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db-host",
			Usage:   "PostgreSQL host",
			EnvVars: []string{"CAMPUSPHERE_DB_HOST"},
		},
		&cli.IntFlag{
			Name:    "db-port",
			Usage:   "PostgreSQL port",
			EnvVars: []string{"CAMPUSPHERE_DB_PORT"},
		},
		&cli.StringFlag{
			Name:    "db-user",
			Usage:   "PostgreSQL user",
			EnvVars: []string{"CAMPUSPHERE_DB_USER"},
		},
		&cli.StringFlag{
			Name:    "db-password",
			Usage:   "PostgreSQL password",
			EnvVars: []string{"CAMPUSPHERE_DB_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "db-name",
			Usage:   "PostgreSQL database name",
			EnvVars: []string{"CAMPUSPHERE_DB_NAME"},
		},
	}
}

func applyDatabaseFlags(ctx *cli.Context, cfg *config.DatabaseConfig) {
	if ctx.IsSet("db-host") {
		cfg.Host = ctx.String("db-host")
	}
	if ctx.IsSet("db-port") {
		cfg.Port = ctx.Int("db-port")
	}
	if ctx.IsSet("db-user") {
		cfg.User = ctx.String("db-user")
	}
	if ctx.IsSet("db-password") {
		cfg.Password = ctx.String("db-password")
	}
	if ctx.IsSet("db-name") {
		cfg.Name = ctx.String("db-name")
	}
}

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "URL of the CampuSphere API",
			EnvVars: []string{"CAMPUSPHERE_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Identity token sent as a bearer token",
			EnvVars: []string{"CAMPUSPHERE_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "email",
			Usage:   "Email of the signed in user",
			EnvVars: []string{"CAMPUSPHERE_EMAIL"},
		},
	}
}

func applyClientFlags(ctx *cli.Context, cfg *config.ClientConfig) {
	if ctx.IsSet("base-url") {
		cfg.BaseURL = ctx.String("base-url")
	}
	if ctx.IsSet("token") {
		cfg.Token = ctx.String("token")
	}
}
