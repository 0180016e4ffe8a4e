package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CorsOrigins []string `toml:"cors_origins"`
	AutoMigrate bool     `toml:"auto_migrate"`
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
}

// StorageConfig selects and configures the object store used for images
type StorageConfig struct {
	// Backend is either "fs" or "s3"
	Backend   string `toml:"backend"`
	Prefix    string `toml:"prefix"`
	Directory string `toml:"directory"`
	PublicURL string `toml:"public_url"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// IdentityConfig configures verification of identity provider tokens
type IdentityConfig struct {
	Secret   string `toml:"secret"`
	Issuer   string `toml:"issuer"`
	Audience string `toml:"audience"`
}

// CacheConfig configures the cache in front of the post listing.
// Backend is "redis", "memory" or empty for no cache. Setting RedisURL
// alone selects redis.
type CacheConfig struct {
	Backend  string        `toml:"backend"`
	RedisURL string        `toml:"redis_url"`
	TTL      time.Duration `toml:"ttl"`
}

// EventsConfig configures publishing of post events on NATS
type EventsConfig struct {
	NatsURL string `toml:"nats_url"`
	Subject string `toml:"subject"`
}

// ClientConfig is used by the client side commands
type ClientConfig struct {
	BaseURL string        `toml:"base_url"`
	Token   string        `toml:"token"`
	Timeout time.Duration `toml:"timeout"`
}

// Config represents the top-level configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Identity IdentityConfig `toml:"identity"`
	Cache    CacheConfig    `toml:"cache"`
	Events   EventsConfig   `toml:"events"`
	Client   ClientConfig   `toml:"client"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        3000,
			CorsOrigins: []string{"http://localhost:8081"},
			AutoMigrate: true,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "campusphere",
			Password: "campusphere",
			Name:     "campusphere",
			SSLMode:  "disable",
		},
		Storage: StorageConfig{
			Backend:   "fs",
			Prefix:    "CampuSphere",
			Directory: "uploads",
			PublicURL: "http://localhost:3000/uploads",
		},
		Cache: CacheConfig{
			TTL: 30 * time.Second,
		},
		Events: EventsConfig{
			Subject: "post.created",
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 10 * time.Second,
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.Bucket == "" {
		return errors.New("storage bucket is required for the s3 backend")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
