// Package config loads planmap settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/planmap/config.toml, falling back to
// ~/.config/planmap/config.toml. A missing file yields [Default]. Keys
// left out of the file keep their defaults.
//
//	[api]
//	base_url = "http://localhost:8000"
//	timeout  = "10s"
//
//	[layout]
//	engine    = "layered"   # layered | graphviz
//	direction = "LR"        # LR | TB
//	on_load   = "missing"   # missing | always
//
//	[server]
//	addr  = ":8000"
//	store = "file"          # memory | file | redis | mongo
//
//	[log]
//	level = "info"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	perrors "github.com/matzehuels/planmap/pkg/errors"
	"github.com/matzehuels/planmap/pkg/layout"
	"github.com/matzehuels/planmap/pkg/remote"
)

// AppName names the config and cache directories.
const AppName = "planmap"

// EnvAPIURL overrides [API.BaseURL] when set.
const EnvAPIURL = "PLANMAP_API_URL"

// Store backends accepted by [Server.Store].
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// Config is the full configuration.
type Config struct {
	API    API    `toml:"api"`
	Layout Layout `toml:"layout"`
	Server Server `toml:"server"`
	Log    Log    `toml:"log"`
}

// API configures the remote sync client.
type API struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

// Layout configures the layout adapter.
type Layout struct {
	Engine     string  `toml:"engine"`
	Direction  string  `toml:"direction"`
	OnLoad     string  `toml:"on_load"`
	NodeWidth  float64 `toml:"node_width"`
	NodeHeight float64 `toml:"node_height"`
	NodeSep    float64 `toml:"node_sep"`
	RankSep    float64 `toml:"rank_sep"`
	Margin     float64 `toml:"margin"`
	// CacheURL points the layout cache at Redis (redis://host:port/db).
	// Empty means the local file cache.
	CacheURL string `toml:"cache_url"`
}

// Server configures the reference store server.
type Server struct {
	Addr          string `toml:"addr"`
	Store         string `toml:"store"`
	DataDir       string `toml:"data_dir"`
	RedisAddr     string `toml:"redis_addr"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	lo := layout.DefaultOptions()
	return Config{
		API: API{
			BaseURL: "http://localhost:8000",
			Timeout: remote.DefaultTimeout,
		},
		Layout: Layout{
			Engine:     layout.EngineLayered,
			Direction:  string(layout.LR),
			OnLoad:     string(layout.OnLoadMissing),
			NodeWidth:  lo.NodeWidth,
			NodeHeight: lo.NodeHeight,
			NodeSep:    lo.NodeSep,
			RankSep:    lo.RankSep,
			Margin:     lo.Margin,
		},
		Server: Server{
			Addr:          ":8000",
			Store:         StoreMemory,
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "planmap",
		},
		Log: Log{Level: "info"},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the cache directory ($XDG_CACHE_HOME/planmap or
// ~/.cache/planmap).
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// Load reads path on top of the defaults and applies environment
// overrides. An empty path means [Path]; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "parse config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, perrors.Validation("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.API.BaseURL = v
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and non-positive sizes.
func (c Config) Validate() error {
	if err := perrors.ValidateURL(c.API.BaseURL); err != nil {
		return err
	}
	if c.API.Timeout < 0 {
		return perrors.Validation("api.timeout must not be negative")
	}
	if _, err := layout.NewEngine(c.Layout.Engine); err != nil {
		return err
	}
	if _, err := layout.ParseDirection(c.Layout.Direction); err != nil {
		return err
	}
	if _, err := layout.ParseOnLoad(c.Layout.OnLoad); err != nil {
		return err
	}
	if err := c.LayoutOptions().Validate(); err != nil {
		return err
	}
	switch c.Server.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreMongo:
	default:
		return perrors.Validation("unknown server.store %q (want memory, file, redis or mongo)", c.Server.Store)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return perrors.Validation("unknown log.level %q", c.Log.Level)
	}
	return nil
}

// LayoutOptions returns the layout footprint.
func (c Config) LayoutOptions() layout.Options {
	return layout.Options{
		NodeWidth:  c.Layout.NodeWidth,
		NodeHeight: c.Layout.NodeHeight,
		NodeSep:    c.Layout.NodeSep,
		RankSep:    c.Layout.RankSep,
		Margin:     c.Layout.Margin,
	}
}

// Write encodes c as TOML to path, creating parent directories.
func (c Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
