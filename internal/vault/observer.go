package vault

import (
	"github.com/Iron-Ham/glimpse/internal/derive"
	"github.com/Iron-Ham/glimpse/internal/event"
	"github.com/Iron-Ham/glimpse/internal/metrics"
)

// cacheObserver forwards derivative cache activity to metrics and the bus.
type cacheObserver struct {
	metrics *metrics.Metrics
	bus     *event.Bus
}

func (o *cacheObserver) Hit(kind derive.Kind)  { o.metrics.CacheHit(string(kind)) }
func (o *cacheObserver) Miss(kind derive.Kind) { o.metrics.CacheMiss(string(kind)) }

func (o *cacheObserver) Fallback(kind derive.Kind, path string, err error) {
	o.metrics.CacheFallback(string(kind))
	o.bus.Publish(event.NewDerivativeFallbackEvent(string(kind), path, err.Error()))
}

func (o *cacheObserver) Evicted(kind derive.Kind, path string) { o.metrics.CacheEvicted(string(kind)) }
func (o *cacheObserver) Size(kind derive.Kind, n int)          { o.metrics.CacheEntries(string(kind), n) }

// watchHandler reacts to artifacts changed or removed outside the queue.
type watchHandler struct {
	v *Vault
}

func (h watchHandler) Removed(path string) {
	entry, found, err := h.v.queue.Forget(path)
	if err != nil {
		h.v.logger.Warn("forget vanished artifact", "path", path, "error", err)
		return
	}
	h.v.cache.Invalidate(path)
	if !found {
		return
	}
	h.v.recordLength(entry.View)
	h.v.bus.Publish(event.NewArtifactVanishedEvent(string(entry.View), path))
	h.v.logger.WithView(string(entry.View)).Info("artifact vanished", "path", path)
}

func (h watchHandler) Changed(path string) {
	h.v.cache.Invalidate(path)
}
