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

// Package postings defines the consumed postings-reader contract:
// decoding posting-list metadata and opening posting iterators is out
// of scope for the block-tree dictionary, but the dictionary drives
// this interface directly, so its shape lives here rather than behind
// an opaque any.
package postings

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/heroiclabs/blocktree/input"
)

// FieldInfo is the minimal per-field description the dictionary and
// postings reader share. A real deployment's FieldInfos component
// (out of scope here) would supply richer metadata; only the pieces
// the dictionary itself consults are modeled.
type FieldInfo struct {
	Name         string
	Number       int
	IndexOptions IndexOptions
}

// IndexOptions mirrors Lucene's per-field indexing granularity, which
// determines whether sum_total_term_freq is tracked for a field.
type IndexOptions int

const (
	// IndexOptionsDocsOnly fields track only which documents contain
	// a term, not frequency.
	IndexOptionsDocsOnly IndexOptions = iota
	IndexOptionsDocsAndFreqs
	IndexOptionsDocsFreqsAndPositions
	IndexOptionsDocsFreqsPositionsAndOffsets
)

// HasFreqs reports whether a field's options track term frequency,
// equivalently, whether its sum_total_term_freq directory entry is
// present rather than the implicit -1.
func (o IndexOptions) HasFreqs() bool { return o >= IndexOptionsDocsAndFreqs }

// BlockTermState is the opaque-to-the-dictionary handle a postings
// reader produces for one term: per-term statistics plus whatever
// longs/bytes it needs to reopen a postings iterator later.
type BlockTermState struct {
	DocFreq       int
	TotalTermFreq int64

	// TermBlockOrd is this term's ordinal within its containing block,
	// used by the dictionary to know how far decodeMetadata must
	// catch up.
	TermBlockOrd int64

	// Longs holds the per-term long values a postings reader encodes
	// directly in the metadata stream; Bytes holds whatever else it wrote.
	Longs []int64
	Bytes []byte
}

// Flags selects which posting features a caller wants materialized
// (frequencies, positions, offsets, payloads), analogous to Lucene's
// PostingsEnum flags.
type Flags int

const (
	FlagFreqs Flags = 1 << iota
	FlagPositions
	FlagOffsets
	FlagPayloads
)

// PostingsIterator is the opaque-to-the-dictionary result of opening a
// postings list; its shape is entirely owned by the postings reader
// implementation (out of scope here).
type PostingsIterator interface {
	Next() (uint64, bool, error)
	Close() error
}

// Reader is the external postings-reader contract the dictionary
// drives: Init binds a reader to a terms-file input and a
// BlockTermState;
// DecodeTerm advances a BlockTermState by one term's worth of metadata
// bytes; Postings opens an iterator for a previously decoded state;
// CheckIntegrity validates the reader's own backing file(s).
//
// Grounded on bluge_segment_api.Dictionary.PostingsList's except
// *roaring.Bitmap parameter (vendor/github.com/blugelabs/bluge_segment_api/segment.go):
// the dictionary never inspects the bitmap, it only threads it
// through to the postings reader on the caller's behalf.
type Reader interface {
	Init(in input.Input, state *BlockTermState) error

	// DecodeTerm reads one term's worth of metadata from the
	// metadata-stream cursor meta, using longs the dictionary has
	// already decoded from the head of this term's record in that same
	// stream. absolute indicates
	// whether this entry's deltas should be interpreted relative to
	// zero (the first term decoded after a frame/floor-block load) or
	// relative to state's previous values.
	DecodeTerm(longs []int64, meta input.Input, field FieldInfo, state *BlockTermState, absolute bool) error

	Postings(field FieldInfo, state *BlockTermState, flags Flags, except *roaring.Bitmap) (PostingsIterator, error)

	CheckIntegrity() error
}
