package batch

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/rrthin/pkg/observability"
	"github.com/matzehuels/rrthin/pkg/pipeline"
)

// Options configures a batch run.
type Options struct {
	OutputDir string
	Workers   int    // default runtime.NumCPU()
	Seed      uint64 // shared by every job; each job derives its own stream
	Refresh   bool   // bypass the graph cache
	RunID     string // default: a fresh UUID
	Logger    *log.Logger
}

func (o Options) withDefaults(r *pipeline.Runner) Options {
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.Logger == nil {
		o.Logger = r.Logger
	}
	return o
}

// Failure is a job that did not complete.
type Failure struct {
	Job   Job
	State pipeline.State // last state reached before the error
	Err   error

	index int
}

// Report summarizes a batch run.
type Report struct {
	RunID     string
	Planned   int
	Skipped   int
	Succeeded int
	Failed    int
	Cancelled int // never started because the context ended
	Failures  []Failure
	Outputs   []string // files written by this run, sorted
	Duration  time.Duration
}

// Err returns a non-nil error when any job failed.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d jobs failed", r.Failed, r.Planned)
}

type outcome struct {
	index int
	job   Job
	res   *pipeline.Result
	err   error
}

// Run executes jobs on a pool of workers. Jobs whose output file exists are
// skipped. Cancelling ctx stops submission; running jobs finish and the
// context error is returned next to the partial report.
func Run(ctx context.Context, runner *pipeline.Runner, jobs []Job, opts Options) (*Report, error) {
	opts = opts.withDefaults(runner)
	logger := opts.Logger.With("run", opts.RunID)
	hooks := observability.Pipeline()
	start := time.Now()

	// Every job logs with the run id.
	r := *runner
	r.Logger = logger

	report := &Report{RunID: opts.RunID, Planned: len(jobs)}
	var pending []int
	for i, j := range jobs {
		po := j.Options(opts.OutputDir, opts.Seed, opts.Refresh)
		if _, err := os.Stat(po.OutputPath()); err == nil {
			logger.Info("output exists, skipping", "circuit", j.Circuit, "output", po.OutputPath())
			hooks.OnJobSkipped(ctx, po.Job())
			report.Skipped++
			continue
		}
		pending = append(pending, i)
	}
	hooks.OnBatchStart(ctx, len(jobs), report.Skipped)
	logger.Info("starting batch",
		"planned", len(jobs),
		"skipped", report.Skipped,
		"workers", opts.Workers)

	p := &pool{
		ctx:     ctx,
		runner:  &r,
		opts:    opts,
		jobs:    jobs,
		work:    make(chan int),
		results: make(chan outcome, opts.Workers),
	}
	submitted := p.run(pending, func(o outcome) {
		if o.err == nil {
			report.Succeeded++
			report.Outputs = append(report.Outputs, o.res.Output)
			return
		}
		report.Failed++
		report.Failures = append(report.Failures, Failure{Job: o.job, State: o.res.FailedAt, Err: o.err, index: o.index})
		logger.Error("job failed",
			"circuit", o.job.Circuit,
			"edge_rate", o.job.EdgeRate,
			"mux_rate", o.job.MuxRate,
			"input", o.job.Input,
			"reached", o.res.FailedAt,
			"err", o.err)
	})
	report.Cancelled = len(pending) - submitted
	sort.Strings(report.Outputs)
	sort.Slice(report.Failures, func(a, b int) bool {
		return report.Failures[a].index < report.Failures[b].index
	})
	report.Duration = time.Since(start)

	logger.Info("batch finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"cancelled", report.Cancelled,
		"duration", report.Duration)

	if report.Cancelled > 0 {
		return report, ctx.Err()
	}
	return report, nil
}

// pool feeds job indexes to a fixed set of workers and hands their outcomes
// to a single collector, which is the only writer of the report.
type pool struct {
	ctx    context.Context
	runner *pipeline.Runner
	opts   Options
	jobs   []Job

	work    chan int
	results chan outcome
	wg      sync.WaitGroup
}

func (p *pool) run(pending []int, collect func(outcome)) int {
	for range p.opts.Workers {
		p.wg.Add(1)
		go p.worker()
	}

	submitted := make(chan int, 1)
	go func() {
		n := 0
		defer func() {
			close(p.work)
			submitted <- n
		}()
		for _, i := range pending {
			if p.ctx.Err() != nil {
				return
			}
			select {
			case p.work <- i:
				n++
			case <-p.ctx.Done():
				return
			}
		}
	}()

	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	for o := range p.results {
		collect(o)
	}
	return <-submitted
}

func (p *pool) worker() {
	defer p.wg.Done()
	for i := range p.work {
		j := p.jobs[i]
		// Running jobs are not interrupted by cancellation.
		ctx := context.WithoutCancel(p.ctx)
		res, err := p.runner.Execute(ctx, j.Options(p.opts.OutputDir, p.opts.Seed, p.opts.Refresh))
		p.results <- outcome{index: i, job: j, res: res, err: err}
	}
}
