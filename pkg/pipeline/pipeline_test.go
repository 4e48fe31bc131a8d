package pipeline_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/rrthin/internal/rrtest"
	"github.com/matzehuels/rrthin/pkg/cache"
	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/observability"
	"github.com/matzehuels/rrthin/pkg/pipeline"
	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

func newRunner(t *testing.T, c cache.Cache) *pipeline.Runner {
	t.Helper()
	r := pipeline.NewRunner(c, nil, log.New(io.Discard))
	t.Cleanup(func() { r.Close() })
	return r
}

func twoDieOptions(t *testing.T, rate float64) pipeline.Options {
	t.Helper()
	dir := t.TempDir()
	return pipeline.Options{
		Circuit:   "dart",
		Input:     rrtest.WriteFile(t, dir, "dart.blif/common/rr_graph.xml", rrtest.TwoDie),
		OutputDir: filepath.Join(dir, "out"),
		EdgeRate:  rate,
		Seed:      42,
	}
}

func TestExecuteRemovesPerTile(t *testing.T) {
	opts := twoDieOptions(t, 0.9)
	res, err := newRunner(t, nil).Execute(context.Background(), opts)
	require.NoError(t, err)

	require.Equal(t, pipeline.StateDone, res.State)
	require.Equal(t, filepath.Join(opts.OutputDir, "rr_graph_dart_90.xml"), res.Output)
	require.Equal(t, 10, res.Stats.Edges)
	require.Equal(t, 10, res.Stats.InterDie)
	require.Equal(t, 9, res.Stats.Removed)

	g, err := rrgraph.Load(res.Output)
	require.NoError(t, err)
	require.Equal(t, 1, g.EdgeCount())
	require.Equal(t, 4, g.NodeCount())
}

func TestExecuteZeroRateIsIdentity(t *testing.T) {
	opts := twoDieOptions(t, 0)
	res, err := newRunner(t, nil).Execute(context.Background(), opts)
	require.NoError(t, err)
	require.Zero(t, res.Stats.TotalRemoved())

	got, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	require.Equal(t, string(rrtest.TwoDie), string(got))
}

func TestExecuteDanglingReference(t *testing.T) {
	opts := twoDieOptions(t, 0.5)
	require.NoError(t, os.WriteFile(opts.Input, rrtest.Dangling, 0o644))

	res, err := newRunner(t, nil).Execute(context.Background(), opts)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrCodeDanglingReference), "got %v", err)
	require.Equal(t, pipeline.StateFailed, res.State)
	require.Equal(t, pipeline.StatePending, res.FailedAt)
	require.Empty(t, res.Output)

	_, statErr := os.Stat(opts.OutputPath())
	require.True(t, os.IsNotExist(statErr), "no output may be written")
}

func TestExecuteMissingInput(t *testing.T) {
	opts := twoDieOptions(t, 0.5)
	opts.Input = filepath.Join(t.TempDir(), "nope.xml")

	res, err := newRunner(t, nil).Execute(context.Background(), opts)
	require.True(t, errs.Is(err, errs.ErrCodeMissingInput), "got %v", err)
	require.Equal(t, pipeline.StateFailed, res.State)
}

func TestExecuteRejectsInvalidOptions(t *testing.T) {
	r := newRunner(t, nil)
	ctx := context.Background()

	opts := twoDieOptions(t, 0.5)
	opts.Circuit = "../escape"
	_, err := r.Execute(ctx, opts)
	require.True(t, errs.Is(err, errs.ErrCodeInvalidCircuit), "got %v", err)

	opts = twoDieOptions(t, 1.5)
	_, err = r.Execute(ctx, opts)
	require.True(t, errs.Is(err, errs.ErrCodeInvalidRate), "got %v", err)

	opts = twoDieOptions(t, 0.5)
	opts.Mux, opts.MuxRate = true, -0.1
	_, err = r.Execute(ctx, opts)
	require.True(t, errs.Is(err, errs.ErrCodeInvalidRate), "got %v", err)
}

func TestExecuteSameSeedSameOutput(t *testing.T) {
	opts := twoDieOptions(t, 0.5)
	other := opts
	other.OutputDir = filepath.Join(t.TempDir(), "again")

	r := newRunner(t, nil)
	a, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	b, err := r.Execute(context.Background(), other)
	require.NoError(t, err)

	require.Equal(t, readFile(t, a.Output), readFile(t, b.Output))
}

func TestExecuteUsesGraphCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := newRunner(t, fc)
	ctx := context.Background()

	opts := twoDieOptions(t, 0.5)
	first, err := r.Execute(ctx, opts)
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	again := opts
	again.OutputDir = filepath.Join(t.TempDir(), "cached")
	second, err := r.Execute(ctx, again)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, readFile(t, first.Output), readFile(t, second.Output))

	again.Refresh = true
	third, err := r.Execute(ctx, again)
	require.NoError(t, err)
	require.False(t, third.CacheHit)
}

func TestExecuteCacheMissAfterSourceChange(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := newRunner(t, fc)
	ctx := context.Background()

	opts := twoDieOptions(t, 0.5)
	_, err = r.Execute(ctx, opts)
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(opts.Input, later, later))
	res, err := r.Execute(ctx, opts)
	require.NoError(t, err)
	require.False(t, res.CacheHit)
}

// randomInput writes a random multi-layer graph in encode mode.
func randomInput(t *testing.T) pipeline.Options {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rand.xml")
	require.NoError(t, rrgraph.WriteFile(rrtest.Random(t, 11, 4, 4, 2, 6, 3000), path))
	return pipeline.Options{
		Circuit:   "rand",
		Input:     path,
		OutputDir: filepath.Join(dir, "out"),
		EdgeRate:  0.5,
		Seed:      7,
	}
}

func TestExecuteMux(t *testing.T) {
	opts := randomInput(t)
	opts.Mux, opts.MuxRate = true, 0.5

	res, err := newRunner(t, nil).Execute(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(opts.OutputDir, "rr_graph_rand_50_mux_50.xml"), res.Output)
	require.Positive(t, res.Stats.Removed)
	require.Positive(t, res.Stats.MuxRemoved)

	g, err := rrgraph.Load(res.Output)
	require.NoError(t, err)
	require.Equal(t, res.Stats.Edges-res.Stats.TotalRemoved(), g.EdgeCount())
}

func TestMuxBaseRemovalMatchesBaseJob(t *testing.T) {
	r := newRunner(t, nil)
	ctx := context.Background()

	base := randomInput(t)
	baseRes, err := r.Execute(ctx, base)
	require.NoError(t, err)

	mux := base
	mux.Mux, mux.MuxRate = true, 0
	muxRes, err := r.Execute(ctx, mux)
	require.NoError(t, err)

	require.Equal(t, baseRes.Stats.Removed, muxRes.Stats.Removed)
	require.Zero(t, muxRes.Stats.MuxRemoved)
	require.Equal(t, readFile(t, baseRes.Output), readFile(t, muxRes.Output))
}

type stageRecorder struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	stages   []string
	started  int
	finished []error
}

func (s *stageRecorder) OnJobStart(context.Context, observability.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
}

func (s *stageRecorder) OnStage(_ context.Context, _ observability.Job, stage string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, stage)
}

func (s *stageRecorder) OnJobComplete(_ context.Context, _ observability.Job, _ int, _ time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, err)
}

func TestExecuteEmitsStageHooks(t *testing.T) {
	rec := &stageRecorder{}
	observability.SetPipelineHooks(rec)
	defer observability.Reset()

	_, err := newRunner(t, nil).Execute(context.Background(), twoDieOptions(t, 0.5))
	require.NoError(t, err)

	require.Equal(t, 1, rec.started)
	require.Equal(t, []string{"Loaded", "Indexed", "Sampled", "Edited", "Serialized"}, rec.stages)
	require.Equal(t, []error{nil}, rec.finished)
}

type panickingHooks struct {
	observability.NoopPipelineHooks
	stage string
	done  []error
}

func (h *panickingHooks) OnStage(_ context.Context, job observability.Job, stage string, _ time.Duration) {
	if stage == h.stage && job.Circuit == "dart" {
		panic("index exploded")
	}
}

func (h *panickingHooks) OnJobComplete(_ context.Context, _ observability.Job, _ int, _ time.Duration, err error) {
	h.done = append(h.done, err)
}

func TestExecuteRecoversPanic(t *testing.T) {
	hooks := &panickingHooks{stage: "Indexed"}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	opts := twoDieOptions(t, 0.5)
	res, err := newRunner(t, nil).Execute(context.Background(), opts)
	require.True(t, errs.Is(err, errs.ErrCodeInternal), "got %v", err)
	require.Contains(t, err.Error(), "index exploded")
	require.Equal(t, pipeline.StateFailed, res.State)
	require.Equal(t, pipeline.StateIndexed, res.FailedAt)
	require.Empty(t, res.Output)
	require.NoFileExists(t, opts.OutputPath())
	require.Len(t, hooks.done, 1, "completion hook still fires")
}

func TestDeriveSeed(t *testing.T) {
	a := pipeline.DeriveSeed(42, "dart", 0.1)
	require.Equal(t, a, pipeline.DeriveSeed(42, "dart", 0.1))
	require.Equal(t, a, pipeline.DeriveSeed(42, "dart", 0.1+1e-12), "rates compare by percentage")
	require.NotEqual(t, a, pipeline.DeriveSeed(43, "dart", 0.1))
	require.NotEqual(t, a, pipeline.DeriveSeed(42, "des90", 0.1))
	require.NotEqual(t, a, pipeline.DeriveSeed(42, "dart", 0.2))
	require.NotEqual(t, a, pipeline.DeriveSeed(42, "dart", 0.1, 0.05))
}

func TestOptionsOutputName(t *testing.T) {
	opts := pipeline.Options{Circuit: "dart", EdgeRate: 0.29, OutputDir: "out"}
	require.Equal(t, "rr_graph_dart_29.xml", opts.OutputName())
	require.Equal(t, filepath.Join("out", "rr_graph_dart_29.xml"), opts.OutputPath())

	opts.Mux, opts.MuxRate = true, 0.05
	require.Equal(t, "rr_graph_dart_29_mux_5.xml", opts.OutputName())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Pending", pipeline.StatePending.String())
	require.Equal(t, "Done", pipeline.StateDone.String())
	require.Equal(t, "Failed", pipeline.StateFailed.String())
	require.Equal(t, "State(99)", pipeline.State(99).String())
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
