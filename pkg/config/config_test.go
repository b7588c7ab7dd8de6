package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	perrors "github.com/matzehuels/planmap/pkg/errors"
	"github.com/matzehuels/planmap/pkg/layout"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := Default().LayoutOptions(); got != layout.DefaultOptions() {
		t.Errorf("LayoutOptions() = %+v, want %+v", got, layout.DefaultOptions())
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(missing) = %+v, want defaults", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	path := writeConfig(t, `
[api]
base_url = "https://plans.example.com"
timeout = "3s"

[layout]
engine = "graphviz"
direction = "TB"
on_load = "always"
node_width = 160

[server]
store = "redis"
redis_addr = "redis://cache:6379/2"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != "https://plans.example.com" || cfg.API.Timeout != 3*time.Second {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Layout.Engine != "graphviz" || cfg.Layout.Direction != "TB" || cfg.Layout.OnLoad != "always" {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.NodeWidth != 160 || cfg.Layout.NodeHeight != 80 {
		t.Errorf("footprint = %gx%g, want 160x80", cfg.Layout.NodeWidth, cfg.Layout.NodeHeight)
	}
	if cfg.Server.Store != StoreRedis || cfg.Server.Addr != ":8000" {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://override:9000")
	path := writeConfig(t, "[api]\nbase_url = \"http://file:8000\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.BaseURL != "http://override:9000" {
		t.Errorf("BaseURL = %q, want env override", cfg.API.BaseURL)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "[api\n"},
		{"unknown key", "[layout]\nfoo = 1\n"},
		{"engine", "[layout]\nengine = \"force\"\n"},
		{"direction", "[layout]\ndirection = \"RL\"\n"},
		{"on_load", "[layout]\non_load = \"sometimes\"\n"},
		{"store", "[server]\nstore = \"sqlite\"\n"},
		{"node size", "[layout]\nnode_height = 0\n"},
		{"url", "[api]\nbase_url = \"ftp://x\"\n"},
		{"log level", "[log]\nlevel = \"loud\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !perrors.IsValidation(err) {
				t.Errorf("Load() = %v, want validation error", err)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	cfg := Default()
	cfg.Server.Store = StoreFile
	cfg.Server.DataDir = "/var/lib/planmap"
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := cfg.Write(path); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")
	if p, _ := Path(); p != filepath.Join("/xdg/config", AppName, "config.toml") {
		t.Errorf("Path() = %q", p)
	}
	if p, _ := CacheDir(); p != filepath.Join("/xdg/cache", AppName) {
		t.Errorf("CacheDir() = %q", p)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if p, _ := Path(); p != filepath.Join(home, ".config", AppName, "config.toml") {
		t.Errorf("Path() = %q", p)
	}
	if p, _ := CacheDir(); p != filepath.Join(home, ".cache", AppName) {
		t.Errorf("CacheDir() = %q", p)
	}
}
