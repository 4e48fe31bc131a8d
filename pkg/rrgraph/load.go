package rrgraph

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

const readBufferSize = 1 << 20

// Load reads the graph file at path. The returned graph carries a [Source],
// so [Write] splices the original file instead of re-encoding it.
func Load(path string) (*Graph, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeMissingInput, err, "graph %s", path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, errs.New(errs.ErrCodeMissingInput, "graph %s is a directory", path)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	p := newParser(bufio.NewReaderSize(f, readBufferSize))
	g, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	g.source = &Source{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Spans:   p.spans,
	}
	return g, nil
}

// Read decodes a graph from r. The result has no [Source] and is written
// in encode mode.
func Read(r io.Reader) (*Graph, error) {
	return newParser(r).parse()
}

// =============================================================================
// Streaming parser
// =============================================================================

// parser walks the token stream once. Only the sections the model needs are
// decoded; everything else is skipped without being materialized.
type parser struct {
	d     *xml.Decoder
	grid  []Location
	nodes []Node
	edges []Edge
	spans []Span
	seen  map[string]bool
}

func newParser(r io.Reader) *parser {
	return &parser{
		d:    xml.NewDecoder(r),
		seen: make(map[string]bool, 3),
	}
}

func (p *parser) parse() (*Graph, error) {
	if err := p.root(); err != nil {
		return nil, err
	}
	for _, section := range []string{"grid", "rr_nodes", "rr_edges"} {
		if !p.seen[section] {
			return nil, errs.New(errs.ErrCodeMalformedGraph, "missing <%s> section", section)
		}
	}
	return New(p.grid, p.nodes, p.edges)
}

func (p *parser) token() (xml.Token, error) {
	tok, err := p.d.Token()
	if err != nil {
		if err == io.EOF {
			return nil, errs.New(errs.ErrCodeMalformedGraph, "unexpected end of document")
		}
		return nil, errs.Wrap(errs.ErrCodeMalformedGraph, err, "xml syntax")
	}
	return tok, nil
}

func (p *parser) skip() error {
	if err := p.d.Skip(); err != nil {
		return errs.Wrap(errs.ErrCodeMalformedGraph, err, "xml syntax")
	}
	return nil
}

func (p *parser) root() error {
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.StartElement); ok {
			break
		}
	}
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			switch name {
			case "grid":
				err = p.readGrid()
			case "rr_nodes":
				err = p.readNodes()
			case "rr_edges":
				err = p.readEdges()
			default:
				err = p.skip()
			}
			if err != nil {
				return err
			}
			p.seen[name] = true
		case xml.EndElement:
			return nil
		}
	}
}

func (p *parser) readGrid() error {
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "grid_loc" {
				loc, err := gridLoc(t)
				if err != nil {
					return errs.Wrap(errs.ErrCodeMalformedGraph, err, "grid_loc %d", len(p.grid))
				}
				p.grid = append(p.grid, loc)
			}
			if err := p.skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (p *parser) readNodes() error {
	for {
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "node" {
				if err := p.skip(); err != nil {
					return err
				}
				continue
			}
			n, err := p.readNode(t)
			if err != nil {
				return err
			}
			p.nodes = append(p.nodes, n)
		case xml.EndElement:
			return nil
		}
	}
}

func (p *parser) readNode(se xml.StartElement) (Node, error) {
	id, err := intAttr(se, "id")
	if err != nil {
		return Node{}, errs.Wrap(errs.ErrCodeMalformedGraph, err, "node %d", len(p.nodes))
	}
	typ, ok := attr(se, "type")
	if !ok {
		return Node{}, errs.New(errs.ErrCodeMalformedGraph, "node %d has no type", id)
	}
	kind, ok := ParseNodeKind(typ)
	if !ok {
		return Node{}, errs.New(errs.ErrCodeMalformedGraph, "node %d has unknown type %q", id, typ)
	}

	n := Node{ID: id, Kind: kind}
	hasLoc, hasSeg, segID := false, false, 0
	for done := false; !done; {
		tok, err := p.token()
		if err != nil {
			return Node{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var cerr error
			switch t.Name.Local {
			case "loc":
				n.Low, n.High, cerr = nodeLoc(t)
				hasLoc = true
			case "segment":
				segID, cerr = intAttr(t, "segment_id")
				hasSeg = true
			}
			if cerr != nil {
				return Node{}, errs.Wrap(errs.ErrCodeMalformedGraph, cerr, "node %d", id)
			}
			if err := p.skip(); err != nil {
				return Node{}, err
			}
		case xml.EndElement:
			done = true
		}
	}

	if !hasLoc {
		return Node{}, errs.New(errs.ErrCodeMalformedGraph, "node %d has no <loc>", id)
	}
	if kind.IsChannel() {
		if !hasSeg {
			return Node{}, errs.New(errs.ErrCodeMalformedGraph, "%s node %d has no <segment>", kind, id)
		}
		n.Segment, err = ClassifySegment(segID)
		if err != nil {
			return Node{}, errs.New(errs.ErrCodeUnsupportedSegment,
				"node %d: segment_id %d is not a known wire class (want 0 or 1)", id, segID)
		}
	}
	return n, nil
}

// readEdges records a byte span per edge. A span starts at the whitespace
// run preceding the element, so dropping it also drops the edge's line.
func (p *parser) readEdges() error {
	ws := int64(-1)
	for {
		off := p.d.InputOffset()
		tok, err := p.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				ws = -1
			} else if ws < 0 {
				ws = off
			}
		case xml.StartElement:
			start := off
			if ws >= 0 {
				start = ws
			}
			ws = -1
			if t.Name.Local != "edge" {
				if err := p.skip(); err != nil {
					return err
				}
				continue
			}
			e, err := edgeAttrs(t)
			if err != nil {
				return errs.Wrap(errs.ErrCodeMalformedGraph, err, "edge %d", len(p.edges))
			}
			if err := p.skip(); err != nil {
				return err
			}
			p.edges = append(p.edges, e)
			p.spans = append(p.spans, Span{Start: start, End: p.d.InputOffset()})
		case xml.EndElement:
			return nil
		default:
			ws = -1
		}
	}
}

// =============================================================================
// Attributes
// =============================================================================

func attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func intAttr(se xml.StartElement, name string) (int, error) {
	s, ok := attr(se, name)
	if !ok {
		return 0, fmt.Errorf("<%s> is missing attribute %q", se.Name.Local, name)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("<%s %s=%q> is not an integer", se.Name.Local, name, s)
	}
	return v, nil
}

// coordAttr reads a non-negative coordinate. A missing layer means a
// single-die graph and reads as 0.
func coordAttr(se xml.StartElement, name string) (int, error) {
	if name == "layer" {
		if _, ok := attr(se, name); !ok {
			return 0, nil
		}
	}
	v, err := intAttr(se, name)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("<%s %s=%d> is negative", se.Name.Local, name, v)
	}
	return v, nil
}

func gridLoc(se xml.StartElement) (Location, error) {
	var loc Location
	var err error
	if loc.X, err = coordAttr(se, "x"); err != nil {
		return loc, err
	}
	if loc.Y, err = coordAttr(se, "y"); err != nil {
		return loc, err
	}
	loc.Layer, err = coordAttr(se, "layer")
	return loc, err
}

func nodeLoc(se xml.StartElement) (low, high Location, err error) {
	fields := []struct {
		name string
		dst  *int
	}{
		{"xlow", &low.X},
		{"ylow", &low.Y},
		{"xhigh", &high.X},
		{"yhigh", &high.Y},
		{"layer", &low.Layer},
	}
	for _, f := range fields {
		if *f.dst, err = coordAttr(se, f.name); err != nil {
			return low, high, err
		}
	}
	high.Layer = low.Layer
	return low, high, nil
}

func edgeAttrs(se xml.StartElement) (Edge, error) {
	var e Edge
	var err error
	if e.Src, err = intAttr(se, "src_node"); err != nil {
		return e, err
	}
	if e.Sink, err = intAttr(se, "sink_node"); err != nil {
		return e, err
	}
	e.Switch, err = intAttr(se, "switch_id")
	return e, err
}
