package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingHooks struct {
	NoopPipelineHooks
	stages atomic.Int64
}

func (h *countingHooks) OnStage(context.Context, Job, string, time.Duration) { h.stages.Add(1) }

type countingCacheHooks struct {
	NoopCacheHooks
	hits atomic.Int64
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string) { h.hits.Add(1) }

func TestDefaultsAreNoop(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() = %T, want NoopPipelineHooks", Pipeline())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T, want NoopCacheHooks", Cache())
	}

	ctx := context.Background()
	job := Job{Circuit: "dart", EdgeRate: 0.5, MuxRate: 0.1, Mux: true}
	Pipeline().OnBatchStart(ctx, 10, 2)
	Pipeline().OnJobComplete(ctx, job, 42, time.Second, nil)
	Cache().OnCacheSet(ctx, "graph", 1024)
}

func TestRegisteredHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	p := &countingHooks{}
	c := &countingCacheHooks{}
	SetPipelineHooks(p)
	SetCacheHooks(c)

	ctx := context.Background()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				Pipeline().OnStage(ctx, Job{Circuit: "dart"}, "Loaded", time.Millisecond)
				Cache().OnCacheHit(ctx, "graph")
			}
		}()
	}
	wg.Wait()

	if got := p.stages.Load(); got != 800 {
		t.Errorf("stages = %d, want 800", got)
	}
	if got := c.hits.Load(); got != 800 {
		t.Errorf("hits = %d, want 800", got)
	}
}

func TestSetNilIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &countingHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)
	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should keep the registered hooks")
	}

	SetCacheHooks(nil)
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("SetCacheHooks(nil) should keep the no-op default")
	}
}

func TestResetRestoresNoop(t *testing.T) {
	SetPipelineHooks(&countingHooks{})
	SetCacheHooks(&countingCacheHooks{})
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset should restore NoopPipelineHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset should restore NoopCacheHooks")
	}
}
