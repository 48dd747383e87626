// Copyright 2026 The Blocktree Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package input provides the random-access byte stream abstraction the
// block-tree terms dictionary reads through. It plays the role of
// Lucene's IndexInput: a stateful cursor over a file (or a
// memory-mapped region of one) that supports var-int/var-long decode,
// fixed-width reads, absolute seeks, and cheap cloning so that each
// term iterator can own an independent read position into the same
// underlying bytes.
package input

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/blevesearch/mmap-go"
)

// Input is the consumed binary-input contract: read_byte,
// read_vint, read_vlong, read_long, read_exact, seek, length, clone,
// random_access_slice.
type Input interface {
	// ReadByte reads and returns a single byte, advancing the cursor.
	ReadByte() (byte, error)

	// ReadVInt reads a LEB128-style var-int (MSB continuation, 7 bits
	// per byte, little-endian group order).
	ReadVInt() (int32, error)

	// ReadVLong reads a var-long using the same encoding as ReadVInt.
	ReadVLong() (int64, error)

	// ReadLong reads a fixed-width big-endian 8-byte integer.
	ReadLong() (int64, error)

	// ReadExact reads exactly n bytes, advancing the cursor.
	ReadExact(n int) ([]byte, error)

	// Seek moves the cursor to an absolute position.
	Seek(pos int64) error

	// Position returns the current cursor offset.
	Position() int64

	// Length returns the total length of the underlying stream.
	Length() int64

	// Clone returns an independent cursor over the same bytes,
	// positioned at 0. Clones share no mutable state with their
	// origin beyond the underlying immutable byte source.
	Clone() (Input, error)

	// RandomAccessSlice returns a new Input restricted to
	// [offset, offset+length), with its own independent cursor
	// positioned at 0.
	RandomAccessSlice(offset, length int64) (Input, error)

	// Close releases any OS-level resource (file handle, mapping)
	// held by this Input. Only the Input returned by NewFile/NewMMap
	// owns that resource; closing a clone or slice releases nothing,
	// and closing the owner releases it even while clones or slices
	// still refer to it (nothing is reference counted).
	Close() error
}

// errTooLong is returned when a var-int/var-long continues past the
// maximum number of groups representable in the target width. A real
// occurrence indicates corrupt on-disk data, not a programming bug.
// blocktree.Open wraps it as KindCorruptIndex; reads made by a term
// iterator return it unwrapped.
var errTooLong = fmt.Errorf("variable-length integer too long")

// ReadVInt decodes a var-int from any byte source, in terms of a
// caller-supplied ReadByte function. Shared by every Input
// implementation so the decode logic lives in exactly one place.
func ReadVInt(readByte func() (byte, error)) (int32, error) {
	var result int32
	var shift uint
	for {
		b, err := readByte()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift > 31 {
			return 0, errTooLong
		}
	}
}

// ReadVLong decodes a var-long from any byte source.
func ReadVLong(readByte func() (byte, error)) (int64, error) {
	var result int64
	var shift uint
	for {
		b, err := readByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift > 63 {
			return 0, errTooLong
		}
	}
}

// FileInput is an Input backed by a plain *os.File, read through
// io.ReaderAt so concurrent clones never contend on a shared seek
// position. Grounded on bluge_segment_api/data.go's NewDataFile, which
// uses the same io.ReaderAt-over-*os.File shape for its non-mmap path.
type FileInput struct {
	ra   io.ReaderAt
	size int64
	pos  int64
	// closer is non-nil only on the Input that opened the file; clones
	// share ra but do not own the close.
	closer io.Closer
}

// NewFile opens path for random-access reads.
func NewFile(path string) (*FileInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileInput{ra: f, size: fi.Size(), closer: f}, nil
}

func (f *FileInput) ReadByte() (byte, error) {
	var b [1]byte
	_, err := f.ra.ReadAt(b[:], f.pos)
	if err != nil {
		return 0, err
	}
	f.pos++
	return b[0], nil
}

func (f *FileInput) ReadVInt() (int32, error) { return ReadVInt(f.ReadByte) }
func (f *FileInput) ReadVLong() (int64, error) { return ReadVLong(f.ReadByte) }

func (f *FileInput) ReadLong() (int64, error) {
	b, err := f.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (f *FileInput) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := f.ra.ReadAt(buf, f.pos)
	if err != nil {
		return nil, err
	}
	f.pos += int64(n)
	return buf, nil
}

func (f *FileInput) Seek(pos int64) error {
	if pos < 0 || pos > f.size {
		return fmt.Errorf("seek out of range: %d (length %d)", pos, f.size)
	}
	f.pos = pos
	return nil
}

func (f *FileInput) Position() int64 { return f.pos }
func (f *FileInput) Length() int64   { return f.size }

func (f *FileInput) Clone() (Input, error) {
	return &FileInput{ra: f.ra, size: f.size}, nil
}

func (f *FileInput) RandomAccessSlice(offset, length int64) (Input, error) {
	if offset < 0 || length < 0 || offset+length > f.size {
		return nil, fmt.Errorf("slice out of range: [%d,%d) of length %d", offset, offset+length, f.size)
	}
	return &FileInput{ra: io.NewSectionReader(f.ra, offset, length), size: length}, nil
}

func (f *FileInput) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// MMapInput is an Input backed by a memory-mapped file region, using
// github.com/blevesearch/mmap-go. Production segment readers favor
// this path so that random block
// fetches fault pages in instead of issuing a read(2) per block;
// Clone reuses the same mapping with an independent cursor.
type MMapInput struct {
	mem    mmap.MMap
	base   int64 // offset of mem[0] within the logical stream, for slices
	size   int64
	pos    int64
	owner  bool
	closer io.Closer
}

// NewMMap memory-maps path for random-access reads.
func NewMMap(path string) (*MMapInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MMapInput{mem: m, size: fi.Size(), owner: true, closer: f}, nil
}

func (m *MMapInput) ReadByte() (byte, error) {
	if m.pos >= m.size {
		return 0, io.EOF
	}
	b := m.mem[m.pos]
	m.pos++
	return b, nil
}

func (m *MMapInput) ReadVInt() (int32, error)  { return ReadVInt(m.ReadByte) }
func (m *MMapInput) ReadVLong() (int64, error) { return ReadVLong(m.ReadByte) }

func (m *MMapInput) ReadLong() (int64, error) {
	b, err := m.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (m *MMapInput) ReadExact(n int) ([]byte, error) {
	if m.pos+int64(n) > m.size {
		return nil, io.EOF
	}
	b := make([]byte, n)
	copy(b, m.mem[m.pos:m.pos+int64(n)])
	m.pos += int64(n)
	return b, nil
}

func (m *MMapInput) Seek(pos int64) error {
	if pos < 0 || pos > m.size {
		return fmt.Errorf("seek out of range: %d (length %d)", pos, m.size)
	}
	m.pos = pos
	return nil
}

func (m *MMapInput) Position() int64 { return m.pos }
func (m *MMapInput) Length() int64   { return m.size }

func (m *MMapInput) Clone() (Input, error) {
	return &MMapInput{mem: m.mem, base: m.base, size: m.size}, nil
}

func (m *MMapInput) RandomAccessSlice(offset, length int64) (Input, error) {
	if offset < 0 || length < 0 || offset+length > m.size {
		return nil, fmt.Errorf("slice out of range: [%d,%d) of length %d", offset, offset+length, m.size)
	}
	return &MMapInput{mem: m.mem[offset : offset+length], base: m.base + offset, size: length}, nil
}

func (m *MMapInput) Close() error {
	if m.owner {
		if err := m.mem.Unmap(); err != nil {
			return err
		}
		return m.closer.Close()
	}
	return nil
}

// NewBytes wraps an in-memory byte slice as an Input. Used by tests to
// synthesize .tim/.tip byte buffers without touching the filesystem.
func NewBytes(b []byte) Input {
	return &bytesInput{mem: b}
}

type bytesInput struct {
	mem []byte
	pos int64
}

func (b *bytesInput) ReadByte() (byte, error) {
	if b.pos >= int64(len(b.mem)) {
		return 0, io.EOF
	}
	v := b.mem[b.pos]
	b.pos++
	return v, nil
}

func (b *bytesInput) ReadVInt() (int32, error)  { return ReadVInt(b.ReadByte) }
func (b *bytesInput) ReadVLong() (int64, error) { return ReadVLong(b.ReadByte) }

func (b *bytesInput) ReadLong() (int64, error) {
	v, err := b.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(v)), nil
}

func (b *bytesInput) ReadExact(n int) ([]byte, error) {
	if b.pos+int64(n) > int64(len(b.mem)) {
		return nil, io.EOF
	}
	v := b.mem[b.pos : b.pos+int64(n)]
	b.pos += int64(n)
	return v, nil
}

func (b *bytesInput) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(b.mem)) {
		return fmt.Errorf("seek out of range: %d (length %d)", pos, len(b.mem))
	}
	b.pos = pos
	return nil
}

func (b *bytesInput) Position() int64 { return b.pos }
func (b *bytesInput) Length() int64   { return int64(len(b.mem)) }

func (b *bytesInput) Clone() (Input, error) {
	return &bytesInput{mem: b.mem}, nil
}

func (b *bytesInput) RandomAccessSlice(offset, length int64) (Input, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(b.mem)) {
		return nil, fmt.Errorf("slice out of range: [%d,%d) of length %d", offset, offset+length, len(b.mem))
	}
	return &bytesInput{mem: b.mem[offset : offset+length]}, nil
}

func (b *bytesInput) Close() error { return nil }
