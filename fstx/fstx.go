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

// Package fstx implements the finite-state-transducer reader the
// block-tree terms dictionary walks to locate the on-disk block for a
// term prefix with minimal I/O: a deterministic byte-labeled automaton
// whose arcs carry byte-sequence outputs.
//
// It is NOT built on github.com/blevesearch/vellum (which this module
// does not depend on), even though vellum is the FST library that
// vendor/github.com/blugelabs/ice/dict.go actually wraps. vellum's public surface (Load, Contains, Get,
// Search, Reader) is a whole-key/automaton API; it never exposes the
// single-byte arc-transition primitive (root arc,
// find-target-arc-from-a-cursor) that the block-tree's common-prefix
// seek algorithm is built on, and no vellum source is available to
// adapt internals from (see DESIGN.md). The API shape here instead
// mirrors a Rust block-tree implementation's core::util::fst usage:
// RootArc, FindTargetArc, BytesReader.
package fstx

import (
	"encoding/binary"
	"fmt"
)

// arc flag bits, stored alongside each arc's label in the on-disk node
// encoding read by FindTargetArc.
const (
	arcFlagIsFinal  = 0x1
	arcFlagHasTarget = 0x2
)

// Arc is one outgoing transition from an FST node: a byte label, the
// output bytes accumulated along this single hop, whether the
// resulting state is an accepting (final) state, and the address of
// the target node (valid only when HasTarget is true).
type Arc struct {
	Label     byte
	Output    []byte
	IsFinal   bool
	HasTarget bool
	Target    uint64
}

// Empty reports whether this arc has no outgoing transitions, the
// sentinel used for an iterator that has never seeked and has no
// index (field has a root code but no FST).
func (a Arc) Empty() bool { return !a.HasTarget }

// FST is a read-only, sharable finite-state transducer. It is safe
// for concurrent use from multiple BytesReader cursors.
type FST struct {
	data     []byte
	rootAddr uint64
}

// Load parses an FST previously produced by Encode (test-only; see
// fstx_test.go) or an equivalent writer: the trailing 8 bytes are a
// big-endian node address for the root, and everything before that is
// the node arena.
func Load(b []byte) (*FST, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("fst blob too short: %d bytes", len(b))
	}
	root := binary.BigEndian.Uint64(b[len(b)-8:])
	data := b[:len(b)-8]
	if root > uint64(len(data)) {
		return nil, fmt.Errorf("fst root address %d out of range (arena length %d)", root, len(data))
	}
	return &FST{data: data, rootAddr: root}, nil
}

// Read decodes an FST blob that is already in memory; it is the same
// as Load. It does no seeking and reads no length prefix: the caller
// (blocktree's field reader) seeks to the field's index-start file
// pointer, reads the length-prefixed bytes, and hands them over.
func Read(data []byte) (*FST, error) {
	return Load(data)
}

// RootArc returns the synthetic arc whose target is the FST's root
// node. Every term iterator seeds its arc cache (arcs[0]) with this.
func (f *FST) RootArc() Arc {
	return Arc{HasTarget: true, Target: f.rootAddr}
}

// BytesReader returns a new incremental read cursor over the FST's
// shared byte arena. Each term iterator owns one; it is reused across
// calls to FindTargetArc to avoid per-seek allocation.
func (f *FST) BytesReader() *BytesReader {
	return &BytesReader{data: f.data}
}

// FindTargetArc looks for an outgoing arc labeled label from the node
// `from` points at, using cursor as scratch read state. It returns
// (_, false, nil) when no such arc exists (the index is exhausted for
// this byte's FST-descent "on miss" case).
//
// Arcs within a node are stored sorted ascending by label, so the scan
// stops as soon as it passes label.
func (f *FST) FindTargetArc(label byte, from Arc, cursor *BytesReader) (Arc, bool, error) {
	if !from.HasTarget {
		return Arc{}, false, nil
	}
	cursor.pos = int(from.Target)
	numArcs, err := cursor.readVInt()
	if err != nil {
		return Arc{}, false, err
	}
	for i := int32(0); i < numArcs; i++ {
		lbl, err := cursor.readByte()
		if err != nil {
			return Arc{}, false, err
		}
		flags, err := cursor.readByte()
		if err != nil {
			return Arc{}, false, err
		}
		outLen, err := cursor.readVInt()
		if err != nil {
			return Arc{}, false, err
		}
		var out []byte
		if outLen > 0 {
			out, err = cursor.readBytes(int(outLen))
			if err != nil {
				return Arc{}, false, err
			}
		}
		var target uint64
		hasTarget := flags&arcFlagHasTarget != 0
		if hasTarget {
			target, err = cursor.readVLong()
			if err != nil {
				return Arc{}, false, err
			}
		}
		if lbl == label {
			return Arc{
				Label:     lbl,
				Output:    out,
				IsFinal:   flags&arcFlagIsFinal != 0,
				HasTarget: hasTarget,
				Target:    target,
			}, true, nil
		}
		if lbl > label {
			// arcs are sorted ascending; nothing further can match.
			break
		}
	}
	return Arc{}, false, nil
}

// BytesReader is an incremental cursor over an FST's shared byte
// arena, analogous to Lucene's FST.BytesReader. It carries no state
// beyond a read position, so a
// single instance is reused by one term iterator across every
// FindTargetArc call in its lifetime.
type BytesReader struct {
	data []byte
	pos  int
}

func (r *BytesReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("fst bytes reader: read past end of arena at %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *BytesReader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("fst bytes reader: read past end of arena at %d (want %d bytes)", r.pos, n)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *BytesReader) readVInt() (int32, error) {
	var result int32
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func (r *BytesReader) readVLong() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}
