// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about matching, rewriting, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetMatchHooks(&myMatchHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Match().OnMatchStart(ctx, graphID, patternSize)
//	// ... run the search ...
//	observability.Match().OnMatchComplete(ctx, graphID, len(matches), duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Match Hooks
// =============================================================================

// MatchHooks receives events from subgraph matching.
type MatchHooks interface {
	// OnMatchStart records the beginning of a matching call.
	OnMatchStart(ctx context.Context, graphID string, patternSize int)

	// OnMatchComplete records the outcome of a matching call.
	OnMatchComplete(ctx context.Context, graphID string, matches int, duration time.Duration, err error)
}

// =============================================================================
// Rewrite Hooks
// =============================================================================

// RewriteHooks receives events from hierarchy rewriting.
type RewriteHooks interface {
	// OnRewriteStart records the beginning of a rewrite.
	OnRewriteStart(ctx context.Context, graphID string)

	// OnRewriteComplete records the outcome of a rewrite, including how
	// many graphs the propagation touched.
	OnRewriteComplete(ctx context.Context, graphID string, affectedGraphs int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopMatchHooks is a no-op implementation of MatchHooks.
type NoopMatchHooks struct{}

func (NoopMatchHooks) OnMatchStart(context.Context, string, int)                          {}
func (NoopMatchHooks) OnMatchComplete(context.Context, string, int, time.Duration, error) {}

// NoopRewriteHooks is a no-op implementation of RewriteHooks.
type NoopRewriteHooks struct{}

func (NoopRewriteHooks) OnRewriteStart(context.Context, string) {}
func (NoopRewriteHooks) OnRewriteComplete(context.Context, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	matchHooks   MatchHooks   = NoopMatchHooks{}
	rewriteHooks RewriteHooks = NoopRewriteHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetMatchHooks registers custom match hooks.
// This should be called once at application startup before any matching.
func SetMatchHooks(h MatchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		matchHooks = h
	}
}

// SetRewriteHooks registers custom rewrite hooks.
// This should be called once at application startup before any rewriting.
func SetRewriteHooks(h RewriteHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		rewriteHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Match returns the registered match hooks.
func Match() MatchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return matchHooks
}

// Rewrite returns the registered rewrite hooks.
func Rewrite() RewriteHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return rewriteHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	matchHooks = NoopMatchHooks{}
	rewriteHooks = NoopRewriteHooks{}
	cacheHooks = NoopCacheHooks{}
}
