// Package config loads tiledgallery configuration from TOML.
//
// A file overrides the defaults section by section; omitted keys keep
// their default values:
//
//	[layout]
//	target_row_height = 280
//	row_fill_ratio = 0.75
//
//	[loader]
//	max_concurrent_loads = 6
//	memory_interval = "10s"
//
//	[[breakpoints]]
//	name = "phone"
//	max_width = 600
//	columns = 2
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[server]
//	addr = ":8080"
//	source = "file"
//	gallery_dir = "./galleries"
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/loader"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Image sources.
const (
	SourceFile   = "file"
	SourceMongo  = "mongo"
	SourceMemory = "memory"
)

// Config is the complete configuration.
type Config struct {
	Layout      layout.Config      `toml:"layout"`
	Loader      loader.Options     `toml:"loader"`
	Breakpoints layout.Breakpoints `toml:"breakpoints"`
	Cache       Cache              `toml:"cache"`
	Mongo       Mongo              `toml:"mongo"`
	Server      Server             `toml:"server"`
}

// Cache selects and configures the layout cache.
type Cache struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"` // empty = per-user cache dir
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	Prefix        string        `toml:"prefix"`
	TTL           time.Duration `toml:"ttl"`
}

// Mongo configures the MongoDB image source.
type Mongo struct {
	URI        string        `toml:"uri"`
	Database   string        `toml:"database"`
	Collection string        `toml:"collection"`
	Timeout    time.Duration `toml:"timeout"`
}

// Server configures the HTTP API.
type Server struct {
	Addr         string        `toml:"addr"`
	Source       string        `toml:"source"`
	GalleryDir   string        `toml:"gallery_dir"`
	SessionTTL   time.Duration `toml:"session_ttl"`
	MaxSessions  int           `toml:"max_sessions"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Layout:      layout.DefaultConfig(),
		Loader:      loader.DefaultOptions(),
		Breakpoints: layout.DefaultBreakpoints(),
		Cache: Cache{
			Backend: CacheFile,
			Prefix:  "tiledgallery:",
			TTL:     7 * 24 * time.Hour,
		},
		Mongo: Mongo{
			URI:        "mongodb://localhost:27017",
			Database:   "tiledgallery",
			Collection: "images",
			Timeout:    10 * time.Second,
		},
		Server: Server{
			Addr:         ":8080",
			Source:       SourceFile,
			GalleryDir:   ".",
			SessionTTL:   30 * time.Minute,
			MaxSessions:  1000,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeNotFound, err, "config file %s", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config %s", path)
	}
	return Parse(data, cfg)
}

// Parse decodes TOML data over base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	// A [[breakpoints]] array replaces the defaults rather than merging
	// into them by index.
	cfg.Breakpoints = nil
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if !md.IsDefined("breakpoints") {
		cfg.Breakpoints = base.Breakpoints
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[layout]")
	}
	if err := c.Loader.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[loader]")
	}
	if err := c.Breakpoints.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[[breakpoints]]")
	}

	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "[cache] redis backend requires redis_addr")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "[cache] unknown backend %q", c.Cache.Backend)
	}

	switch c.Server.Source {
	case SourceFile, SourceMemory:
	case SourceMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" || c.Mongo.Collection == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "[mongo] uri, database and collection are required")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "[server] unknown source %q", c.Server.Source)
	}
	if c.Server.MaxSessions < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "[server] max_sessions must not be negative")
	}
	return nil
}

// Encode writes c as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
