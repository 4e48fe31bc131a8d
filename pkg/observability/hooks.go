// Package observability publishes progress events to optional hooks.
//
// Events cover batch planning, the stages of every thinning job and graph
// cache traffic. The CLI's live job table is the in-tree consumer; without a
// registration every event goes to a no-op.
//
// Main registers hooks at startup; libraries only emit:
//
//	observability.SetPipelineHooks(jobTable)
//
//	// inside pipeline.Runner
//	observability.Pipeline().OnStage(ctx, job, "Indexed", elapsed)
//
// Hooks may be called from several worker goroutines at once and must be
// safe for concurrent use.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Job identifies one thinning job in events.
type Job struct {
	Circuit  string
	EdgeRate float64
	MuxRate  float64
	Mux      bool
	Output   string
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the per-job pipeline and the batch
// orchestrator.
type PipelineHooks interface {
	// Batch events
	OnBatchStart(ctx context.Context, planned, skipped int)
	OnJobSkipped(ctx context.Context, job Job)

	// Job events
	OnJobStart(ctx context.Context, job Job)
	OnStage(ctx context.Context, job Job, stage string, duration time.Duration)
	OnJobComplete(ctx context.Context, job Job, removed int, duration time.Duration, err error)
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

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnBatchStart(context.Context, int, int)                        {}
func (NoopPipelineHooks) OnJobSkipped(context.Context, Job)                             {}
func (NoopPipelineHooks) OnJobStart(context.Context, Job)                               {}
func (NoopPipelineHooks) OnStage(context.Context, Job, string, time.Duration)           {}
func (NoopPipelineHooks) OnJobComplete(context.Context, Job, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks atomic.Pointer[PipelineHooks]
	cacheHooks    atomic.Pointer[CacheHooks]
)

// SetPipelineHooks registers h for all subsequent pipeline and batch
// events. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		pipelineHooks.Store(&h)
	}
}

// SetCacheHooks registers h for all subsequent graph cache events. A nil h
// is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheHooks.Store(&h)
	}
}

// Pipeline returns the registered pipeline hooks, or NoopPipelineHooks.
func Pipeline() PipelineHooks {
	if h := pipelineHooks.Load(); h != nil {
		return *h
	}
	return NoopPipelineHooks{}
}

// Cache returns the registered cache hooks, or NoopCacheHooks.
func Cache() CacheHooks {
	if h := cacheHooks.Load(); h != nil {
		return *h
	}
	return NoopCacheHooks{}
}

// Reset drops every registered hook.
func Reset() {
	pipelineHooks.Store(nil)
	cacheHooks.Store(nil)
}
