// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about resolutions and cache
// operations; libraries call the accessors, which fall back to no-ops.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetResolutionHooks(&myResolutionHooks{})
//	    // ... run application
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// ResolutionHooks receives events from the resolution pipeline.
type ResolutionHooks interface {
	OnResolveStart(ctx context.Context, roots int)
	OnResolveComplete(ctx context.Context, nodes, conflicts int, duration time.Duration, err error)
	OnArtifactsComplete(ctx context.Context, files, failures int, duration time.Duration)
}

// CacheHooks receives events from the download cache.
type CacheHooks interface {
	OnHit(url string)
	OnMiss(url string)
	OnDownload(url string, bytes int64, duration time.Duration, err error)
}

type noopResolution struct{}

func (noopResolution) OnResolveStart(context.Context, int)                               {}
func (noopResolution) OnResolveComplete(context.Context, int, int, time.Duration, error) {}
func (noopResolution) OnArtifactsComplete(context.Context, int, int, time.Duration)      {}

type noopCache struct{}

func (noopCache) OnHit(string)                                   {}
func (noopCache) OnMiss(string)                                  {}
func (noopCache) OnDownload(string, int64, time.Duration, error) {}

var (
	mu         sync.RWMutex
	resolution ResolutionHooks = noopResolution{}
	cacheHooks CacheHooks      = noopCache{}
)

// SetResolutionHooks registers the resolution hook implementation.
// Call once at startup, before resolutions run.
func SetResolutionHooks(h ResolutionHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h != nil {
		resolution = h
	}
}

// SetCacheHooks registers the cache hook implementation.
func SetCacheHooks(h CacheHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Resolution returns the registered resolution hooks, never nil.
func Resolution() ResolutionHooks {
	mu.RLock()
	defer mu.RUnlock()
	return resolution
}

// Cache returns the registered cache hooks, never nil.
func Cache() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return cacheHooks
}
