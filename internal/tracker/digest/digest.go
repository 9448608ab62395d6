// Package digest computes metadata digests of filesystem entries.
//
// A file digest covers the entry kind, byte length, creation and modification
// timestamps, and the file name. A directory digest covers the directory's own
// metadata followed by, for each child in visiting order, the child's name and
// the child's digest. Access times and permission bits are never folded in.
package digest

import (
	"encoding/binary"
	"io/fs"
	"time"

	"lukechampine.com/blake3"

	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// Kind flags the type of a filesystem entry.
type Kind uint8

const (
	KindFile Kind = 1 << iota
	KindDir
	KindSymlink
)

// Input is the metadata of one entry folded into a digest.
type Input struct {
	Kind     Kind
	Size     uint64
	Created  time.Time
	Modified time.Time
	Name     string
}

// InputFromFileInfo builds an Input from stat results. created may be zero when
// the platform does not report a birth time.
func InputFromFileInfo(name string, info fs.FileInfo, created time.Time) Input {
	var kind Kind
	mode := info.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		kind = KindSymlink
	case mode.IsDir():
		kind = KindDir
	default:
		kind = KindFile
	}
	size := info.Size()
	if size < 0 {
		size = 0
	}
	return Input{
		Kind:     kind,
		Size:     uint64(size),
		Created:  created,
		Modified: info.ModTime(),
		Name:     name,
	}
}

// Hasher accumulates a running digest.
type Hasher struct {
	h   *blake3.Hasher
	buf [8]byte
}

// NewHasher returns an empty accumulator.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New(status.DigestSize, nil)}
}

// WriteMetadata folds kind, size and timestamps. The name is not included.
func (h *Hasher) WriteMetadata(in Input) {
	h.h.Write([]byte{byte(in.Kind)})
	h.writeUint64(in.Size)
	h.writeTime(in.Created)
	h.writeTime(in.Modified)
}

// WriteName folds a length-prefixed entry name.
func (h *Hasher) WriteName(name string) {
	h.writeUint64(uint64(len(name)))
	h.h.Write([]byte(name))
}

// WriteDigest folds an already computed digest.
func (h *Hasher) WriteDigest(d status.Digest) {
	h.h.Write(d[:])
}

// Sum returns the digest of everything written so far.
func (h *Hasher) Sum() status.Digest {
	var d status.Digest
	copy(d[:], h.h.Sum(nil))
	return d
}

func (h *Hasher) writeUint64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	h.h.Write(h.buf[:])
}

func (h *Hasher) writeTime(t time.Time) {
	var nanos int64
	if !t.IsZero() {
		nanos = t.UnixNano()
	}
	h.writeUint64(uint64(nanos))
}

// Entry returns the digest of a single non-directory entry.
func Entry(in Input) status.Digest {
	h := NewHasher()
	h.WriteMetadata(in)
	h.WriteName(in.Name)
	return h.Sum()
}

// Child is one already digested entry of a directory.
type Child struct {
	Name   string
	Digest status.Digest
}

// Directory folds a directory's own metadata and its children in the given
// order. Callers must pass children in a stable order.
func Directory(self Input, children []Child) status.Digest {
	h := NewHasher()
	h.WriteMetadata(self)
	for _, c := range children {
		h.WriteName(c.Name)
		h.WriteDigest(c.Digest)
	}
	return h.Sum()
}
