// Package cli implements the planmap command-line interface.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/planmap/pkg/buildinfo"
	"github.com/matzehuels/planmap/pkg/cache"
	"github.com/matzehuels/planmap/pkg/config"
	"github.com/matzehuels/planmap/pkg/layout"
	"github.com/matzehuels/planmap/pkg/remote"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = config.AppName

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

	cfgPath string
	cfg     config.Config
	out     io.Writer
	hooks   *debugHooks
}

// New creates a new CLI instance with a default logger. Command output
// goes to out.
func New(out, logw io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(logw, level),
		cfg:    config.Default(),
		out:    out,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the loaded configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "planmap turns AI-generated plans into editable role/task diagrams",
		Long:         `planmap generates role/task plan diagrams from a keyword and a date range, lays them out, and keeps edits in sync with the diagram store.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			c.installHooks()
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (default: $XDG_CONFIG_HOME/planmap/config.toml)")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil && c.Logger.GetLevel() > lvl {
		c.Logger.SetLevel(lvl)
	}
	c.Logger.Debug("config loaded", "api", cfg.API.BaseURL, "engine", cfg.Layout.Engine)
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// newClient builds the sync client from the [api] section.
func (c *CLI) newClient() (*remote.Client, error) {
	return remote.New(c.cfg.API.BaseURL,
		remote.WithTimeout(c.cfg.API.Timeout),
		remote.WithHeader("User-Agent", buildinfo.UserAgent()),
		remote.WithLogger(c.Logger),
	)
}

// newAdapter builds the layout adapter from the [layout] section. The
// returned cache must be closed by the caller.
func (c *CLI) newAdapter(ctx context.Context, noCache bool) (*layout.Adapter, cache.Cache, error) {
	engine, err := layout.NewEngine(c.cfg.Layout.Engine)
	if err != nil {
		return nil, nil, err
	}
	cc := c.newCache(ctx, noCache)
	a := layout.New(engine, c.cfg.LayoutOptions(),
		layout.WithCache(cc, cache.DefaultTTL),
		layout.WithLogger(c.Logger),
	)
	return a, cc, nil
}

// direction resolves a --direction flag against the configured default.
func (c *CLI) direction(flag string) (layout.Direction, error) {
	if flag == "" {
		flag = c.cfg.Layout.Direction
	}
	return layout.ParseDirection(flag)
}

// onLoad returns the configured reload policy.
func (c *CLI) onLoad() layout.OnLoad {
	p, err := layout.ParseOnLoad(c.cfg.Layout.OnLoad)
	if err != nil {
		return layout.OnLoadMissing
	}
	return p
}

// newCache opens the layout cache: Redis when layout.cache_url is set,
// the local file cache otherwise. Any failure degrades to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	if url := c.cfg.Layout.CacheURL; url != "" {
		rc, err := cache.DialRedisCache(ctx, url)
		if err != nil {
			c.Logger.Warn("redis layout cache unavailable", "err", err)
			return cache.NewNullCache()
		}
		return rc
	}
	dir, err := layoutCacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Debug("layout cache disabled", "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// withTimeout bounds one-shot commands by the API timeout plus slack for
// layout work. A zero timeout leaves ctx alone.
func (c *CLI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.API.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, 3*c.cfg.API.Timeout+30*time.Second)
}
