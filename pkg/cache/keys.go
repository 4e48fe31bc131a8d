package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// SourceKeyOpts identifies one version of a graph file.
type SourceKeyOpts struct {
	Path    string // absolute path
	Size    int64
	ModTime time.Time
	Version int // loader/snapshot version
}

// Keyer derives cache keys.
type Keyer interface {
	// GraphKey returns the key of the parsed-graph snapshot for a source file.
	GraphKey(opts SourceKeyOpts) string
}

// DefaultKeyer hashes every identifying field into the key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GraphKey implements Keyer.
func (DefaultKeyer) GraphKey(opts SourceKeyOpts) string {
	h := sha256.New()
	h.Write([]byte(opts.Path))
	h.Write([]byte{0})
	var buf [8]byte
	for _, v := range []int64{opts.Size, opts.ModTime.UnixNano(), int64(opts.Version)} {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	return "graph:" + hex.EncodeToString(h.Sum(nil))
}

// ScopedKeyer wraps a Keyer with a prefix, so several projects (or
// architectures) can share one Redis instance without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "stratixiv:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GraphKey generates a prefixed graph snapshot key.
func (k *ScopedKeyer) GraphKey(opts SourceKeyOpts) string {
	return k.prefix + k.inner.GraphKey(opts)
}
