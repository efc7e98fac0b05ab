package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tiledgallery/pkg/buildinfo"
	"github.com/matzehuels/tiledgallery/pkg/cache"
	"github.com/matzehuels/tiledgallery/pkg/config"
	"github.com/matzehuels/tiledgallery/pkg/observability"
	"github.com/matzehuels/tiledgallery/pkg/pipeline"
	"github.com/matzehuels/tiledgallery/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "tiledgallery"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Tiledgallery lays out image galleries and simulates progressive loading",
		Long:         `Tiledgallery packs images into justified rows, resolves responsive breakpoints, and coordinates visibility-driven progressive loading. It runs as a CLI or as an HTTP API.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "configuration file (TOML)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.responsiveCommand())
	root.AddCommand(c.simulateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads --config over the defaults.
func (c *CLI) loadConfig() error {
	if c.configPath == "" {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", c.configPath)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from the configuration.
func (c *CLI) newRunner(ctx context.Context, src store.Source, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, src, c.Logger)
	r.Base = c.Config.Layout
	r.Breakpoints = c.Config.Breakpoints
	r.LayoutTTL = c.Config.Cache.TTL
	r.Hooks = observability.NewLogHooks(c.Logger).Hooks()
	return r, nil
}

// newCache builds the configured cache backend. A file cache that cannot
// be created degrades to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config.Cache
	if noCache || cfg.Backend == config.CacheNone {
		return cache.NewNullCache(), nil
	}

	switch cfg.Backend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return rc, nil
	default:
		dir := cfg.Dir
		if dir == "" {
			d, err := cache.DefaultDir()
			if err != nil {
				c.Logger.Warn("no cache directory, caching disabled", "err", err)
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			c.Logger.Warn("cache unavailable, caching disabled", "dir", dir, "err", err)
			return cache.NewNullCache(), nil
		}
		return fc, nil
	}
}

// newSource builds the configured image source. The returned closer
// releases connections.
func (c *CLI) newSource(ctx context.Context) (store.Source, func(), error) {
	switch c.Config.Server.Source {
	case config.SourceMongo:
		m := c.Config.Mongo
		src, err := store.NewMongoSource(ctx, store.MongoOptions{
			URI:        m.URI,
			Database:   m.Database,
			Collection: m.Collection,
			Timeout:    m.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		return src, func() { _ = src.Close(context.Background()) }, nil
	case config.SourceMemory:
		return store.NewMemorySource(), func() {}, nil
	default:
		src, err := store.NewFileSource(c.Config.Server.GalleryDir)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
}
