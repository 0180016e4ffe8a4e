package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"campusphere/config"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const queryTimeout = 30 * time.Second

// DB handles all database operations with a shared connection pool
type DB struct {
	db *sql.DB
}

// ConnectionURL builds a postgres:// URL usable by both lib/pq and the
// migration driver.
func ConnectionURL(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u.RawQuery = url.Values{"sslmode": []string{sslmode}}.Encode()
	return u.String()
}

// NewDB opens a connection pool for the configured database
func NewDB(cfg config.DatabaseConfig) (*DB, error) {
	log.WithFields(log.Fields{
		"host": cfg.Host,
		"port": cfg.Port,
		"name": cfg.Name,
	}).Info("Opening database")
	return Open(ConnectionURL(cfg))
}

// Open opens a connection pool for a postgres:// URL
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	return &DB{db: db}, nil
}

// Ping verifies that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.db.PingContext(ctx); err != nil {
		return classify(fmt.Errorf("ping: %w", err))
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}
