package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a charmbracelet logger at debug level;
// fail-open degradation is logged at info.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates hooks that log through l (log.Default() when nil).
func NewLogHooks(l *log.Logger) *LogHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHooks{logger: l}
}

// Hooks returns a full hook set backed by h.
func (h *LogHooks) Hooks() Hooks {
	return Hooks{Layout: h, Loader: h, Cache: h}
}

func (h *LogHooks) OnLayoutStart(_ context.Context, imageCount int, containerWidth float64) {
	h.logger.Debug("layout started", "images", imageCount, "width", containerWidth)
}

func (h *LogHooks) OnLayoutComplete(_ context.Context, rowCount int, duration time.Duration, cached bool) {
	h.logger.Debug("layout complete", "rows", rowCount, "duration", duration, "cached", cached)
}

func (h *LogHooks) OnVisible(id string) {
	h.logger.Debug("tile visible", "id", id)
}

func (h *LogHooks) OnLoadStart(id string) {
	h.logger.Debug("tile loading", "id", id)
}

func (h *LogHooks) OnLoadComplete(id string, elapsed time.Duration) {
	h.logger.Debug("tile loaded", "id", id, "elapsed", elapsed)
}

func (h *LogHooks) OnLoadError(id string, elapsed time.Duration) {
	h.logger.Debug("tile failed", "id", id, "elapsed", elapsed)
}

func (h *LogHooks) OnReclaim(evicted int, usedBytes uint64) {
	h.logger.Debug("memory reclaimed", "evicted", evicted, "used_bytes", usedBytes)
}

func (h *LogHooks) OnFailOpen(reason string) {
	h.logger.Info("lazy loading disabled, all tiles visible", "reason", reason)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ LayoutHooks = (*LogHooks)(nil)
	_ LoaderHooks = (*LogHooks)(nil)
	_ CacheHooks  = (*LogHooks)(nil)
)
