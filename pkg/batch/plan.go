package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/pipeline"
)

// CircuitPlaceholder is replaced by the circuit name in input patterns.
const CircuitPlaceholder = "{circuit}"

// DefaultInputPattern locates a circuit's graph inside a VTR run directory.
const DefaultInputPattern = CircuitPlaceholder + ".blif/common/rr_graph.xml"

// Circuit is a benchmark and the path of its source graph.
type Circuit struct {
	Name  string
	Input string
}

// Matrix lists the rate configurations applied to every circuit.
type Matrix struct {
	EdgeRates []float64 // edge-only jobs

	// MUX jobs: every MuxEdgeRates × MuxRates pair.
	MuxEdgeRates []float64
	MuxRates     []float64
}

// Job is one (circuit, rate configuration) pair.
type Job struct {
	Circuit  string
	Input    string
	EdgeRate float64
	MuxRate  float64
	Mux      bool
}

// Options converts the job into pipeline options.
func (j Job) Options(outputDir string, seed uint64, refresh bool) pipeline.Options {
	return pipeline.Options{
		Circuit:   j.Circuit,
		Input:     j.Input,
		OutputDir: outputDir,
		EdgeRate:  j.EdgeRate,
		MuxRate:   j.MuxRate,
		Mux:       j.Mux,
		Seed:      seed,
		Refresh:   refresh,
	}
}

func (j Job) String() string {
	if j.Mux {
		return fmt.Sprintf("%s@%g/mux%g", j.Circuit, j.EdgeRate, j.MuxRate)
	}
	return fmt.Sprintf("%s@%g", j.Circuit, j.EdgeRate)
}

// Plan returns circuits × m, circuit by circuit: edge-only jobs first, then
// MUX jobs ordered by edge rate, then mux rate. Rates that truncate to the
// same percentage name the same output file; only the first such job is
// kept.
func Plan(circuits []Circuit, m Matrix) []Job {
	jobs := make([]Job, 0, len(circuits)*(len(m.EdgeRates)+len(m.MuxEdgeRates)*len(m.MuxRates)))
	seen := make(map[string]bool, cap(jobs))
	add := func(j Job) {
		opts := j.Options("", 0, false)
		name := opts.OutputName()
		if seen[name] {
			return
		}
		seen[name] = true
		jobs = append(jobs, j)
	}
	for _, c := range circuits {
		for _, r := range m.EdgeRates {
			add(Job{Circuit: c.Name, Input: c.Input, EdgeRate: r})
		}
		for _, r := range m.MuxEdgeRates {
			for _, mr := range m.MuxRates {
				add(Job{Circuit: c.Name, Input: c.Input, EdgeRate: r, MuxRate: mr, Mux: true})
			}
		}
	}
	return jobs
}

// InputPath expands pattern for one circuit under inputDir.
func InputPath(inputDir, pattern, circuit string) string {
	return filepath.Join(inputDir, strings.ReplaceAll(pattern, CircuitPlaceholder, circuit))
}

// ResolveCircuits pairs each named circuit with its input path. Inputs are
// not checked here; a missing one fails only its own jobs.
func ResolveCircuits(inputDir, pattern string, names []string) ([]Circuit, error) {
	out := make([]Circuit, 0, len(names))
	for _, name := range names {
		if err := errs.ValidateCircuitName(name); err != nil {
			return nil, err
		}
		out = append(out, Circuit{Name: name, Input: InputPath(inputDir, pattern, name)})
	}
	return out, nil
}

// DiscoverCircuits lists the circuits of a run directory. Every entry of
// inputDir names a circuit by its prefix up to the first '.'; a circuit is
// kept when its expanded pattern is an existing regular file.
func DiscoverCircuits(inputDir, pattern string) ([]Circuit, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeMissingInput, err, "input dir %s", inputDir)
		}
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	seen := make(map[string]bool)
	var out []Circuit
	for _, e := range entries {
		name, _, _ := strings.Cut(e.Name(), ".")
		if seen[name] || errs.ValidateCircuitName(name) != nil {
			continue
		}
		seen[name] = true
		input := InputPath(inputDir, pattern, name)
		if info, err := os.Stat(input); err == nil && info.Mode().IsRegular() {
			out = append(out, Circuit{Name: name, Input: input})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
