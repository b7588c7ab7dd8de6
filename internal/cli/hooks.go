package cli

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/planmap/pkg/observability"
)

// debugHooks logs library events at debug level and counts layout cache
// hits so commands can report them.
type debugHooks struct {
	logger    *log.Logger
	cacheHits atomic.Int64
}

func (c *CLI) installHooks() *debugHooks {
	h := &debugHooks{logger: c.Logger}
	observability.SetLayoutHooks(h)
	observability.SetSyncHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
	c.hooks = h
	return h
}

func (h *debugHooks) OnLayoutStart(_ context.Context, engine string, n int) {
	h.logger.Debug("layout start", "engine", engine, "nodes", n)
}

func (h *debugHooks) OnLayoutComplete(_ context.Context, engine string, n int, d time.Duration, err error) {
	h.logger.Debug("layout done", "engine", engine, "nodes", n, "took", d.Round(time.Microsecond), "err", err)
}

func (h *debugHooks) OnDispatch(_ context.Context, id string, rev int64) {
	h.logger.Debug("dispatch", "diagram", id, "revision", rev)
}

func (h *debugHooks) OnSync(_ context.Context, id string, rev int64, d time.Duration, err error) {
	h.logger.Debug("sync", "diagram", id, "revision", rev, "took", d.Round(time.Millisecond), "err", err)
}

func (h *debugHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheHits.Add(1)
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *debugHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *debugHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d.Round(time.Millisecond))
}

func (h *debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

// cached reports whether any layout cache hit happened since the last call.
func (h *debugHooks) cached() bool {
	if h == nil {
		return false
	}
	return h.cacheHits.Swap(0) > 0
}

var (
	_ observability.LayoutHooks = (*debugHooks)(nil)
	_ observability.SyncHooks   = (*debugHooks)(nil)
	_ observability.CacheHooks  = (*debugHooks)(nil)
	_ observability.HTTPHooks   = (*debugHooks)(nil)
)
