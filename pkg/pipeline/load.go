package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/rrthin/pkg/observability"
	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

const keyTypeGraph = "graph"

// LoadWithCacheInfo loads a source graph through the graph cache and reports
// whether it was a cache hit. Cache failures never fail the load; an
// unreadable snapshot counts as a miss and is overwritten.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, path string, refresh bool) (*rrgraph.Graph, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		// Let the loader produce the coded error.
		g, err := rrgraph.Load(path)
		return g, false, err
	}

	hooks := observability.Cache()
	key := r.Keyer.GraphKey(sourceKeyOpts(abs, info.Size(), info.ModTime()))

	// Try cache first (unless refresh requested)
	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			g, err := rrgraph.UnmarshalGraph(data)
			if err == nil {
				hooks.OnCacheHit(ctx, keyTypeGraph)
				return g, true, nil
			}
			r.Logger.Debug("discarding unreadable snapshot", "input", abs, "err", err)
		} else if err != nil {
			r.Logger.Debug("graph cache unavailable", "err", err)
		}
		hooks.OnCacheMiss(ctx, keyTypeGraph)
	}

	g, err := rrgraph.Load(abs)
	if err != nil {
		return nil, false, err
	}

	if !refresh {
		if data, err := rrgraph.MarshalGraph(g); err == nil {
			if err := r.Cache.Set(ctx, key, data, r.TTL); err == nil {
				hooks.OnCacheSet(ctx, keyTypeGraph, len(data))
			} else {
				r.Logger.Debug("graph cache write failed", "err", err)
			}
		}
	}
	return g, false, nil
}
