package rrgraph

import (
	"fmt"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

// NodeKind is the type attribute of an RR node.
type NodeKind uint8

const (
	KindUnknown NodeKind = iota
	KindSource
	KindSink
	KindIPin
	KindOPin
	KindChanX
	KindChanY
	KindMux
)

var kindNames = [...]string{
	KindUnknown: "UNKNOWN",
	KindSource:  "SOURCE",
	KindSink:    "SINK",
	KindIPin:    "IPIN",
	KindOPin:    "OPIN",
	KindChanX:   "CHANX",
	KindChanY:   "CHANY",
	KindMux:     "MUX",
}

// String returns the XML spelling of the kind.
func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", k)
}

// IsChannel reports whether nodes of this kind are wire segments
// and therefore carry a segment class.
func (k NodeKind) IsChannel() bool {
	return k == KindChanX || k == KindChanY
}

// ParseNodeKind maps an XML type attribute to a NodeKind.
func ParseNodeKind(s string) (NodeKind, bool) {
	for k := KindSource; int(k) < len(kindNames); k++ {
		if kindNames[k] == s {
			return k, true
		}
	}
	return KindUnknown, false
}

// SegmentClass is the wire-length class of a channel node.
type SegmentClass uint8

const (
	// SegmentNone is the class of every non-channel node.
	SegmentNone SegmentClass = iota
	SegmentL4
	SegmentL16
)

// ClassifySegment maps a segment_id to its wire-length class.
// Only ids 0 (length 4) and 1 (length 16) exist in the architectures this
// tool targets; anything else is UNSUPPORTED_SEGMENT_CLASS.
func ClassifySegment(id int) (SegmentClass, error) {
	switch id {
	case 0:
		return SegmentL4, nil
	case 1:
		return SegmentL16, nil
	}
	return SegmentNone, errs.New(errs.ErrCodeUnsupportedSegment,
		"segment_id %d is not a known wire class (want 0 for L4 or 1 for L16)", id)
}

// Length returns the wire length in tiles, or 0 for SegmentNone.
func (c SegmentClass) Length() int {
	switch c {
	case SegmentL4:
		return 4
	case SegmentL16:
		return 16
	}
	return 0
}

// ID returns the segment_id the class was classified from, or -1.
func (c SegmentClass) ID() int {
	switch c {
	case SegmentL4:
		return 0
	case SegmentL16:
		return 1
	}
	return -1
}

func (c SegmentClass) String() string {
	switch c {
	case SegmentL4:
		return "L4"
	case SegmentL16:
		return "L16"
	}
	return "none"
}
