package rrgraph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

const writeBufferSize = 1 << 20

// WriteFile writes g to path. The graph is first written to a hidden
// temporary file in the same directory, which is renamed over path once
// complete.
func WriteFile(g *Graph, path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriterSize(tmp, writeBufferSize)
	if err = Write(bw, g); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Write serializes g to w. Graphs with a [Source] are spliced from their
// source file; all others are encoded from the model.
func Write(w io.Writer, g *Graph) error {
	if g.source != nil {
		return splice(w, g)
	}
	return encode(w, g)
}

// =============================================================================
// Splice mode
// =============================================================================

func splice(w io.Writer, g *Graph) error {
	src := g.source
	f, err := os.Open(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.ErrCodeSourceChanged, err, "source %s disappeared", src.Path)
		}
		return fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src.Path, err)
	}
	if info.Size() != src.Size || !info.ModTime().Equal(src.ModTime) {
		return errs.New(errs.ErrCodeSourceChanged, "source %s was modified after loading", src.Path)
	}

	r := bufio.NewReaderSize(f, readBufferSize)
	var pos int64
	next := 0
	for ord, span := range src.Spans {
		if next < len(g.edges) && g.Origin(EdgeID(next)) == ord {
			next++
			continue
		}
		if _, err := io.CopyN(w, r, span.Start-pos); err != nil {
			return fmt.Errorf("copy %s: %w", src.Path, err)
		}
		if _, err := r.Discard(int(span.End - span.Start)); err != nil {
			return fmt.Errorf("skip edge %d of %s: %w", ord, src.Path, err)
		}
		pos = span.End
	}
	if next != len(g.edges) {
		return errs.New(errs.ErrCodeInternal,
			"edge order does not match source %s (%d of %d edges placed)", src.Path, next, len(g.edges))
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copy %s: %w", src.Path, err)
	}
	return nil
}

// =============================================================================
// Encode mode
// =============================================================================

// encoder appends into a scratch buffer and flushes it per element.
// bufio.Writer errors are sticky, so only the final Flush is checked.
type encoder struct {
	w   *bufio.Writer
	buf []byte
}

func (e *encoder) str(s string) { e.buf = append(e.buf, s...) }

func (e *encoder) attr(name string, v int) {
	e.buf = append(e.buf, ' ')
	e.buf = append(e.buf, name...)
	e.buf = append(e.buf, '=', '"')
	e.buf = strconv.AppendInt(e.buf, int64(v), 10)
	e.buf = append(e.buf, '"')
}

func (e *encoder) flush() {
	e.w.Write(e.buf)
	e.buf = e.buf[:0]
}

func encode(w io.Writer, g *Graph) error {
	e := &encoder{w: bufio.NewWriterSize(w, writeBufferSize), buf: make([]byte, 0, 256)}

	e.str("<rr_graph>\n  <grid>\n")
	for _, loc := range g.grid {
		e.str("    <grid_loc")
		e.attr("x", loc.X)
		e.attr("y", loc.Y)
		e.attr("layer", loc.Layer)
		e.str("/>\n")
		e.flush()
	}
	e.str("  </grid>\n  <rr_nodes>\n")

	for _, n := range g.nodes {
		e.str("    <node")
		e.attr("id", n.ID)
		e.str(` type="`)
		e.str(n.Kind.String())
		e.str("\">\n      <loc")
		e.attr("xlow", n.Low.X)
		e.attr("ylow", n.Low.Y)
		e.attr("xhigh", n.High.X)
		e.attr("yhigh", n.High.Y)
		e.attr("layer", n.High.Layer)
		e.str("/>\n")
		if n.Kind.IsChannel() {
			e.str("      <segment")
			e.attr("segment_id", n.Segment.ID())
			e.str("/>\n")
		}
		e.str("    </node>\n")
		e.flush()
	}
	e.str("  </rr_nodes>\n  <rr_edges>\n")

	for _, edge := range g.edges {
		e.str("    <edge")
		e.attr("src_node", edge.Src)
		e.attr("sink_node", edge.Sink)
		e.attr("switch_id", edge.Switch)
		e.str("/>\n")
		e.flush()
	}
	e.str("  </rr_edges>\n</rr_graph>\n")
	e.flush()

	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}
