package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/planmap/pkg/config"
	perrors "github.com/matzehuels/planmap/pkg/errors"
	"github.com/matzehuels/planmap/pkg/server"
	"github.com/matzehuels/planmap/pkg/store"
)

// serveCommand runs the reference diagram store server.
func (c *CLI) serveCommand() *cobra.Command {
	var addr, backend, dataDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local diagram store server",
		Long: `Run a local diagram store server.

The server implements the diagram create, fetch and patch endpoints so
the CLI can be used without the hosted backend. It does not generate
plans. Records live in memory, JSON files, Redis or MongoDB depending on
--store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			if backend != "" {
				c.cfg.Server.Store = backend
			}
			if dataDir != "" {
				c.cfg.Server.DataDir = dataDir
			}
			return c.runServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8000)")
	cmd.Flags().StringVar(&backend, "store", "", "store backend: memory, file, redis, mongo")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for the file store")
	return cmd
}

func (c *CLI) runServe(ctx context.Context) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}

	srv := server.New(st, server.WithLogger(c.Logger))
	c.Logger.Info("starting store server", "addr", c.cfg.Server.Addr, "store", c.cfg.Server.Store)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, c.cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		return st.Close()
	})
	if err := g.Wait(); err != nil {
		return err
	}
	c.Logger.Info("store server stopped")
	return nil
}

// openStore opens the configured backend.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	sc := c.cfg.Server
	switch sc.Store {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreFile:
		dir := sc.DataDir
		if dir == "" {
			cacheDir, err := config.CacheDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(cacheDir, "diagrams")
		}
		return store.NewFile(dir)
	case config.StoreRedis:
		return store.DialRedis(ctx, sc.RedisAddr)
	case config.StoreMongo:
		return store.DialMongo(ctx, sc.MongoURI, sc.MongoDatabase)
	}
	return nil, perrors.Validation("unknown store %q (want memory, file, redis or mongo)", sc.Store)
}
