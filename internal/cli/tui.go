package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/rrthin/pkg/batch"
	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/observability"
	"github.com/matzehuels/rrthin/pkg/pipeline"
)

// Row styles
var (
	rowRunningStyle = lipgloss.NewStyle().Foreground(colorCyan)
	rowDoneStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	rowFailedStyle  = lipgloss.NewStyle().Foreground(colorRed)
	rowDimStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Messages
// =============================================================================

type (
	batchStartMsg struct{ planned, skipped int }
	jobSkippedMsg struct{ output string }
	jobStartMsg   struct{ output string }
	jobStageMsg   struct {
		output string
		stage  string
	}
	jobDoneMsg struct {
		output   string
		removed  int
		duration time.Duration
		err      error
	}
	batchDoneMsg struct{}
	cacheMsg     struct{ hit bool }
)

// programHooks forwards pipeline events to a running program.
type programHooks struct {
	p *tea.Program
}

var (
	_ observability.PipelineHooks = (*programHooks)(nil)
	_ observability.CacheHooks    = (*programHooks)(nil)
)

func (h *programHooks) OnBatchStart(_ context.Context, planned, skipped int) {
	h.p.Send(batchStartMsg{planned, skipped})
}

func (h *programHooks) OnJobSkipped(_ context.Context, job observability.Job) {
	h.p.Send(jobSkippedMsg{job.Output})
}

func (h *programHooks) OnJobStart(_ context.Context, job observability.Job) {
	h.p.Send(jobStartMsg{job.Output})
}

func (h *programHooks) OnStage(_ context.Context, job observability.Job, stage string, _ time.Duration) {
	h.p.Send(jobStageMsg{job.Output, stage})
}

func (h *programHooks) OnJobComplete(_ context.Context, job observability.Job, removed int, d time.Duration, err error) {
	h.p.Send(jobDoneMsg{job.Output, removed, d, err})
}

func (h *programHooks) OnCacheHit(context.Context, string) {
	h.p.Send(cacheMsg{hit: true})
}

func (h *programHooks) OnCacheMiss(context.Context, string) {
	h.p.Send(cacheMsg{hit: false})
}

func (h *programHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// JobTableModel - live batch progress
// =============================================================================

type rowStatus int

const (
	rowQueued rowStatus = iota
	rowRunning
	rowDone
	rowFailed
	rowSkipped
)

type jobRow struct {
	job      batch.Job
	status   rowStatus
	stage    string
	removed  int
	duration time.Duration
	err      error
}

// JobTableModel is the bubbletea model behind batch --tui.
type JobTableModel struct {
	rows    []jobRow
	byPath  map[string]int
	cancel  context.CancelFunc
	started time.Time
	height  int

	cacheHits   int
	cacheMisses int

	cancelling bool
	finished   bool
}

// NewJobTableModel creates a table with one queued row per job.
func NewJobTableModel(jobs []batch.Job, outputDir string, cancel context.CancelFunc) JobTableModel {
	m := JobTableModel{
		rows:    make([]jobRow, len(jobs)),
		byPath:  make(map[string]int, len(jobs)),
		cancel:  cancel,
		started: time.Now(),
		height:  20,
	}
	for i, j := range jobs {
		m.rows[i] = jobRow{job: j}
		opts := j.Options(outputDir, 0, false)
		m.byPath[opts.OutputPath()] = i
	}
	return m
}

func (m JobTableModel) Init() tea.Cmd {
	return nil
}

func (m JobTableModel) row(output string) *jobRow {
	if i, ok := m.byPath[output]; ok {
		return &m.rows[i]
	}
	return nil
}

func (m JobTableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
	case jobSkippedMsg:
		if r := m.row(msg.output); r != nil {
			r.status = rowSkipped
		}
	case jobStartMsg:
		if r := m.row(msg.output); r != nil {
			r.status = rowRunning
			r.stage = pipeline.StatePending.String()
		}
	case jobStageMsg:
		if r := m.row(msg.output); r != nil {
			r.stage = msg.stage
		}
	case jobDoneMsg:
		if r := m.row(msg.output); r != nil {
			r.status = rowDone
			r.removed = msg.removed
			r.duration = msg.duration
			if msg.err != nil {
				r.status = rowFailed
				r.err = msg.err
			}
		}
	case cacheMsg:
		if msg.hit {
			m.cacheHits++
		} else {
			m.cacheMisses++
		}
	case batchDoneMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m JobTableModel) counts() (done, failed, skipped, running int) {
	for _, r := range m.rows {
		switch r.status {
		case rowDone:
			done++
		case rowFailed:
			failed++
		case rowSkipped:
			skipped++
		case rowRunning:
			running++
		}
	}
	return
}

// window returns the rows to show: finished rows scroll off the top so the
// running ones stay visible.
func (m JobTableModel) window() (int, int) {
	first := len(m.rows)
	for i, r := range m.rows {
		if r.status == rowQueued || r.status == rowRunning {
			first = i
			break
		}
	}
	start := max(min(first-2, len(m.rows)-m.height), 0)
	return start, min(start+m.height, len(m.rows))
}

func (m JobTableModel) View() string {
	var b strings.Builder
	done, failed, skipped, running := m.counts()

	b.WriteString(StyleTitle.Render("rrthin batch"))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s elapsed", time.Since(m.started).Round(time.Second))))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s done  %s failed  %s skipped  %s running  %s total  %s\n",
		StyleSuccess.Render(strconv.Itoa(done)),
		StyleError.Render(strconv.Itoa(failed)),
		StyleDim.Render(strconv.Itoa(skipped)),
		StyleNumber.Render(strconv.Itoa(running)),
		StyleValue.Render(strconv.Itoa(len(m.rows))),
		StyleDim.Render(fmt.Sprintf("graph cache %d hit / %d miss", m.cacheHits, m.cacheMisses))))

	start, end := m.window()
	rows := make([][]string, 0, end-start)
	for _, r := range m.rows[start:end] {
		rows = append(rows, []string{
			r.job.Circuit, rateCell(r.job.EdgeRate), muxCell(r.job), m.statusCell(r), m.detailCell(r),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("Circuit", "Edge", "MUX", "Status", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader.Padding(0, 1)
			}
			if start+row >= len(m.rows) {
				return styleCell
			}
			switch m.rows[start+row].status {
			case rowRunning:
				return styleCell.Inherit(rowRunningStyle)
			case rowDone:
				return styleCell.Inherit(rowDoneStyle)
			case rowFailed:
				return styleCell.Inherit(rowFailedStyle)
			default:
				return styleCell.Inherit(rowDimStyle)
			}
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.cancelling && !m.finished {
		b.WriteString(StyleWarning.Render("  cancelling: waiting for running jobs"))
	} else {
		b.WriteString(rowDimStyle.Render("  q quit"))
	}
	return b.String()
}

func (m JobTableModel) statusCell(r jobRow) string {
	switch r.status {
	case rowRunning:
		return r.stage
	case rowDone:
		return iconSuccess + " done"
	case rowFailed:
		return iconError + " failed"
	case rowSkipped:
		return "exists"
	}
	return "queued"
}

func (m JobTableModel) detailCell(r jobRow) string {
	switch r.status {
	case rowDone:
		return fmt.Sprintf("-%d edges  %s", r.removed, r.duration.Round(time.Millisecond))
	case rowFailed:
		return string(errs.GetCode(r.err))
	}
	return ""
}

// =============================================================================
// Runner
// =============================================================================

// runWithTable runs a batch behind a live job table on stderr. Log output is
// discarded while the table is on screen; failures are in the final report.
func runWithTable(ctx context.Context, runner *pipeline.Runner, jobs []batch.Job, opts batch.Options) (*batch.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewJobTableModel(jobs, opts.OutputDir, cancel), tea.WithOutput(os.Stderr))
	hooks := &programHooks{p: p}
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)
	defer func() {
		observability.SetPipelineHooks(observability.NoopPipelineHooks{})
		observability.SetCacheHooks(observability.NoopCacheHooks{})
	}()

	opts.Logger = log.New(io.Discard)

	var (
		report *batch.Report
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		report, runErr = batch.Run(ctx, runner, jobs, opts)
		p.Send(batchDoneMsg{})
	}()

	_, uiErr := p.Run()
	<-done
	if runErr != nil {
		return report, runErr
	}
	if uiErr != nil {
		return report, fmt.Errorf("job table: %w", uiErr)
	}
	return report, nil
}
