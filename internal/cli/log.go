// Package cli implements the rrthin command-line interface.
//
// # Commands
//
//   - thin: thin one rr_graph.xml at one or more rates
//   - batch: run every circuit × rate job of a TOML configuration
//   - analyze: report per-tile inter-die connectivity of a graph
//   - cache: inspect or clear the parsed-graph cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which adds
// per-stage timings. Loggers are passed through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a leveled logger writing "15:04:05.00" timestamps to w.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stopwatch times one long step and logs its end with the elapsed wall
// time as a "duration" field. Not safe for concurrent use.
type stopwatch struct {
	logger *log.Logger
	start  time.Time
}

func startStopwatch(l *log.Logger) *stopwatch {
	return &stopwatch{logger: l, start: time.Now()}
}

// done logs msg at info with keyvals followed by the duration field.
func (s *stopwatch) done(msg string, keyvals ...any) {
	elapsed := time.Since(s.start).Round(time.Millisecond)
	s.logger.Info(msg, append(keyvals, "duration", elapsed)...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger set by the root command's pre-run,
// or log.Default() outside a command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
