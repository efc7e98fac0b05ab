package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/tiledgallery/pkg/api"
	"github.com/matzehuels/tiledgallery/pkg/buildinfo"
	"github.com/matzehuels/tiledgallery/pkg/capability"
	"github.com/matzehuels/tiledgallery/pkg/observability"
	"github.com/matzehuels/tiledgallery/pkg/pipeline"
	"github.com/matzehuels/tiledgallery/pkg/session"
	"github.com/matzehuels/tiledgallery/pkg/store"
)

// sessionCleanupInterval is how often expired loader sessions are closed.
const sessionCleanupInterval = time.Minute

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		source  string
		dir     string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Galleries are read from the configured source: a directory of manifests
(file), a MongoDB collection (mongo), or nothing (memory, inline images
only). With the file source, manifest edits invalidate cached image
records immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.Config.Server.Addr = addr
			}
			if source != "" {
				c.Config.Server.Source = source
			}
			if dir != "" {
				c.Config.Server.GalleryDir = dir
			}
			if err := c.Config.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&source, "source", "", "gallery source: file, mongo, memory")
	cmd.Flags().StringVar(&dir, "dir", "", "manifest directory for the file source")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache bool) error {
	logger := loggerFromContext(ctx)
	srvCfg := c.Config.Server

	src, closeSrc, err := c.newSource(ctx)
	if err != nil {
		return err
	}
	defer closeSrc()

	runner, err := c.newRunner(ctx, src, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	sessions := session.NewMemoryStore(srvCfg.MaxSessions)
	srv := api.New(api.Config{
		Runner:        runner,
		Sessions:      sessions,
		LoaderOptions: c.Config.Loader,
		SessionTTL:    srvCfg.SessionTTL,
		Memory:        capability.RuntimeSampler{},
		Hooks:         observability.NewLogHooks(logger).Hooks().Loader,
		Logger:        logger,
		Version:       buildinfo.Version,
	})

	logger.Info("starting server", "addr", srvCfg.Addr, "source", src.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, srvCfg.Addr, srvCfg.ReadTimeout, srvCfg.WriteTimeout)
	})
	g.Go(func() error {
		return sessions.RunCleanup(gctx, sessionCleanupInterval, func(n int) {
			logger.Debug("expired sessions closed", "count", n)
		})
	})
	if fs, ok := src.(*store.FileSource); ok {
		g.Go(func() error {
			return fs.Watch(gctx, 250*time.Millisecond, func(galleryID string) {
				invalidateImages(gctx, runner, src, galleryID)
				logger.Info("gallery changed", "gallery", galleryID)
			})
		})
	}
	return g.Wait()
}

// invalidateImages drops the cached records of one gallery.
func invalidateImages(ctx context.Context, r *pipeline.Runner, src store.Source, galleryID string) {
	key := r.Keyer.ImagesKey(src.Name(), galleryID)
	if err := r.Cache.Delete(ctx, key); err != nil {
		r.Logger.Warn("cache invalidation failed", "key", key, "err", err)
	}
}
