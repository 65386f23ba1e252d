// Package config loads server configuration: built-in defaults, then an
// optional TOML file, then environment variables. Command line flags are
// applied on top by cmd/server.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Sessions SessionsConfig `toml:"sessions"`
	Images   ImagesConfig   `toml:"images"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	Environment     string        `toml:"environment"` // "development" or "production"
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SessionsConfig selects the session store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SessionsConfig struct {
	Type       string        `toml:"type"` // "sqlite", "memory", "bolt" or "redis"
	CookieName string        `toml:"cookie_name"`
	TTL        time.Duration `toml:"ttl"`
	// SweepInterval используется только для type=memory
	SweepInterval time.Duration `toml:"sweep_interval,omitempty"`

	// Bolt-specific fields (only used when Type == "bolt")
	BoltPath string `toml:"bolt_path,omitempty"`

	// Redis-specific fields (only used when Type == "redis")
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`
	RedisPrefix   string `toml:"redis_prefix,omitempty"`
}

// ImagesConfig selects the image blob store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ImagesConfig struct {
	Type        string `toml:"type"` // "filesystem" or "s3"
	MaxFileSize int64  `toml:"max_file_size"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
	S3PathStyle bool   `toml:"s3_path_style,omitempty"`
}

// AuthConfig holds password hashing settings.
type AuthConfig struct {
	BcryptCost int `toml:"bcrypt_cost"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			Environment:     EnvDevelopment,
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "realty.db",
		},
		Sessions: SessionsConfig{
			Type:          "sqlite",
			CookieName:    "realty_session",
			TTL:           7 * 24 * time.Hour,
			SweepInterval: 10 * time.Minute,
			BoltPath:      "sessions.db",
			RedisPrefix:   "session:",
		},
		Images: ImagesConfig{
			Type:        "filesystem",
			MaxFileSize: 5 << 20,
			Dir:         "uploads",
		},
		Auth: AuthConfig{
			BcryptCost: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// path is not empty) and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read decodes TOML from r on top of the current values.
func (c *Config) Read(r io.Reader) error {
	if _, err := toml.NewDecoder(r).Decode(c); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := c.Read(f); err != nil {
		return fmt.Errorf("reading config from %s: %w", path, err)
	}
	return nil
}

// applyEnv переопределяет значения из переменных окружения
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Addr = ":" + port
	}

	str("APP_ENV", &c.Server.Environment)
	str("DATABASE_PATH", &c.Database.Path)
	str("SESSION_STORE", &c.Sessions.Type)
	str("REDIS_ADDR", &c.Sessions.RedisAddr)
	str("REDIS_PASSWORD", &c.Sessions.RedisPassword)
	str("IMAGE_STORE", &c.Images.Type)
	str("UPLOADS_DIR", &c.Images.Dir)
	str("S3_BUCKET", &c.Images.S3Bucket)
	str("S3_PREFIX", &c.Images.S3Prefix)
	str("S3_REGION", &c.Images.S3Region)
	str("S3_ENDPOINT", &c.Images.S3Endpoint)
	str("S3_ACCESS_KEY", &c.Images.S3AccessKey)
	str("S3_SECRET_KEY", &c.Images.S3SecretKey)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return nil
}

// IsProduction reports whether the server runs in production mode.
// Session cookies are marked Secure only in production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Server.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("unknown server.environment %q", c.Server.Environment))
	}

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	if c.Sessions.TTL <= 0 {
		errs = append(errs, errors.New("sessions.ttl must be positive"))
	}
	switch c.Sessions.Type {
	case "sqlite", "memory":
	case "bolt":
		if c.Sessions.BoltPath == "" {
			errs = append(errs, errors.New("sessions.bolt_path is required for type bolt"))
		}
	case "redis":
		if c.Sessions.RedisAddr == "" {
			errs = append(errs, errors.New("sessions.redis_addr is required for type redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sessions.type %q", c.Sessions.Type))
	}

	if c.Images.MaxFileSize <= 0 {
		errs = append(errs, errors.New("images.max_file_size must be positive"))
	}
	switch c.Images.Type {
	case "filesystem":
		if c.Images.Dir == "" {
			errs = append(errs, errors.New("images.dir is required for type filesystem"))
		}
	case "s3":
		if c.Images.S3Bucket == "" {
			errs = append(errs, errors.New("images.s3_bucket is required for type s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown images.type %q", c.Images.Type))
	}

	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between 10 and 31, got %d", c.Auth.BcryptCost))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// NewLogger creates the slog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log.level %q", s)
	}
	return level, nil
}
