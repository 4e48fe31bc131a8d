package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/rrthin/pkg/batch"
	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleBorder = lipgloss.NewStyle().Foreground(colorDim)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Tables
// =============================================================================

// headerRow is the row index lipgloss/table passes for the header.
const headerRow = -1

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader.Padding(0, 1)
			}
			return styleCell
		})
}

// rateCell renders a rate as the percentage used in output names.
func rateCell(rate float64) string {
	return strconv.Itoa(rrgraph.Percent(rate)) + "%"
}

func muxCell(j batch.Job) string {
	if !j.Mux {
		return "-"
	}
	return rateCell(j.MuxRate)
}

// printPlan lists the jobs of a dry run and whether each would be skipped.
func printPlan(jobs []batch.Job, outputDir string) {
	t := newTable("Circuit", "Edge", "MUX", "Output", "")
	pending := 0
	for _, j := range jobs {
		opts := j.Options(outputDir, 0, false)
		status := "run"
		if _, err := os.Stat(opts.OutputPath()); err == nil {
			status = "exists"
		} else {
			pending++
		}
		t.Row(j.Circuit, rateCell(j.EdgeRate), muxCell(j), opts.OutputName(), status)
	}
	fmt.Println(t.Render())
	printInfo("%s jobs planned, %s to run",
		StyleNumber.Render(strconv.Itoa(len(jobs))),
		StyleNumber.Render(strconv.Itoa(pending)))
}

// printReport prints the outcome of a batch.
func printReport(r *batch.Report) {
	switch {
	case r.Failed > 0:
		printError("%d of %d jobs failed", r.Failed, r.Planned)
	case r.Cancelled > 0:
		printWarning("Interrupted: %d jobs not started", r.Cancelled)
	default:
		printSuccess("Batch complete")
	}
	printKeyValue("Run", r.RunID)
	printKeyValue("Written", strconv.Itoa(r.Succeeded))
	printKeyValue("Skipped", strconv.Itoa(r.Skipped))
	if r.Cancelled > 0 {
		printKeyValue("Cancelled", strconv.Itoa(r.Cancelled))
	}
	printKeyValue("Duration", r.Duration.Round(time.Millisecond).String())

	if len(r.Failures) == 0 {
		return
	}
	t := newTable("Circuit", "Edge", "MUX", "Reached", "Error").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader.Padding(0, 1)
			}
			if col == 4 {
				return styleCell.Foreground(colorRed)
			}
			return styleCell
		})
	for _, f := range r.Failures {
		t.Row(f.Job.Circuit, rateCell(f.Job.EdgeRate), muxCell(f.Job), f.State.String(), errs.UserMessage(f.Err))
	}
	fmt.Println(t.Render())
}
