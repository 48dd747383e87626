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

package blocktree

import (
	"encoding/binary"
	"testing"

	"github.com/RoaringBitmap/roaring"

	"github.com/heroiclabs/blocktree/input"
	"github.com/heroiclabs/blocktree/postings"
)

// No production writer exists for this format (out of scope, see
// DESIGN.md), so every test in this package synthesizes its own
// .tim/.tip-shaped byte buffers with the helpers below.

func vint(v int) []byte {
	var out []byte
	u := uint32(v)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func vlong(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func i64be(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func lenPrefixed(b []byte) []byte {
	return append(vint(len(b)), b...)
}

func codecHeader(name string, version int32, segID [16]byte, suffix string) []byte {
	var b []byte
	b = append(b, u32be(0x3fd76c17)...)
	b = append(b, lenPrefixed([]byte(name))...)
	b = append(b, u32be(uint32(version))...)
	b = append(b, segID[:]...)
	b = append(b, lenPrefixed([]byte(suffix))...)
	return b
}

func codecFooter(checksum int64) []byte {
	var b []byte
	b = append(b, u32be(0x3fd76c17^0xffffffff)...)
	b = append(b, u32be(0)...)
	b = append(b, i64be(checksum)...)
	return b
}

// termEntry is one term's worth of data to bake into a synthesized
// block body.
type termEntry struct {
	term          []byte
	docFreq       int32
	totalTermFreq int64 // ignored when the field has no freqs
}

// encodeLeafBlockBody serializes one leaf block holding only term
// entries, in the order given; it writes no sub-block entries. fp is
// accepted but not used.
func encodeLeafBlockBody(fp int64, entries []termEntry, hasFreqs bool, longsSize int) []byte {
	var suffix, stats, meta []byte
	for i, e := range entries {
		code := (len(e.term) << 1) // term entry: isSubBlock bit clear
		suffix = append(suffix, vint(code)...)
		suffix = append(suffix, e.term...)

		stats = append(stats, vint(int(e.docFreq))...)
		if hasFreqs {
			stats = append(stats, vlong(uint64(e.totalTermFreq-int64(e.docFreq)))...)
		}

		for l := 0; l < longsSize; l++ {
			meta = append(meta, vlong(uint64(i))...)
		}
	}

	header := vint((len(entries) << 1) | 1) // isLeafBlock=1, no sub-blocks
	var body []byte
	body = append(body, header...)
	body = append(body, lenPrefixed(suffix)...)
	body = append(body, lenPrefixed(stats)...)
	body = append(body, lenPrefixed(meta)...)
	return body
}

// fakeFieldInfos is the minimal FieldInfos collaborator the tests
// drive Reader.Open with.
type fakeFieldInfos struct {
	byNumber map[int32]postings.FieldInfo
	maxDoc   int32
}

func (f *fakeFieldInfos) FieldByNumber(number int32) (postings.FieldInfo, bool) {
	fi, ok := f.byNumber[number]
	return fi, ok
}

func (f *fakeFieldInfos) MaxDoc() int32 { return f.maxDoc }

// fakePostingsIterator is a no-op PostingsIterator stand-in; the
// dictionary never inspects postings iterator internals, only opens
// and closes them.
type fakePostingsIterator struct{ closed bool }

func (p *fakePostingsIterator) Next() (uint64, bool, error) { return 0, false, nil }
func (p *fakePostingsIterator) Close() error                { p.closed = true; return nil }

// fakePostingsReader is the minimal postings.Reader the tests drive
// decodeMetadata/Postings with: DecodeTerm just copies the decoded
// longs into the term state, consuming no further metadata bytes.
type fakePostingsReader struct{}

func (r *fakePostingsReader) Init(in input.Input, state *postings.BlockTermState) error {
	return nil
}

func (r *fakePostingsReader) DecodeTerm(longs []int64, meta input.Input, field postings.FieldInfo, state *postings.BlockTermState, absolute bool) error {
	state.Longs = append([]int64(nil), longs...)
	return nil
}

func (r *fakePostingsReader) Postings(field postings.FieldInfo, state *postings.BlockTermState, flags postings.Flags, except *roaring.Bitmap) (postings.PostingsIterator, error) {
	return &fakePostingsIterator{}, nil
}

func (r *fakePostingsReader) CheckIntegrity() error { return nil }

var testSegID = func() [16]byte {
	var id [16]byte
	copy(id[:], "0123456789abcdef")
	return id
}()

// singleBlockFixture builds a one-field, one-block (non-floor, no
// FST) terms+index file pair: the simplest shape Reader.Open accepts.
// entries must already be sorted by term.
func singleBlockFixture(t *testing.T, fieldName string, hasFreqs bool, entries []termEntry) (*Reader, *FieldReader) {
	t.Helper()

	const longsSize = 1
	const version = VersionCurrent
	const maxDoc = 1000

	indexOptions := postings.IndexOptionsDocsOnly
	if hasFreqs {
		indexOptions = postings.IndexOptionsDocsAndFreqs
	}

	// --- terms file ---
	var terms []byte
	terms = append(terms, codecHeader(TermsCodecName, version, testSegID, "")...)

	blockFP := int64(len(terms))
	terms = append(terms, encodeLeafBlockBody(blockFP, entries, hasFreqs, longsSize)...)

	directoryOffset := int64(len(terms))

	var sumDocFreq int64
	var sumTotalTermFreq int64
	for _, e := range entries {
		sumDocFreq += int64(e.docFreq)
		sumTotalTermFreq += e.totalTermFreq
	}

	rootCode := int64(blockFP)<<outputFlagsNumBits | outputFlagHasTerms

	terms = append(terms, vint(1)...) // fieldCount
	terms = append(terms, vint(1)...) // fieldNumber
	terms = append(terms, vlong(uint64(len(entries)))...)
	terms = append(terms, lenPrefixed(vlong(uint64(rootCode)))...)
	if hasFreqs {
		terms = append(terms, vlong(uint64(sumTotalTermFreq))...)
	}
	terms = append(terms, vlong(uint64(sumDocFreq))...)
	terms = append(terms, vint(len(entries))...) // docCount
	terms = append(terms, vint(longsSize)...)
	terms = append(terms, lenPrefixed(entries[0].term)...)
	terms = append(terms, lenPrefixed(entries[len(entries)-1].term)...)

	terms = append(terms, i64be(directoryOffset)...)
	terms = append(terms, codecFooter(1)...)

	// --- index file (no FST: indexStartFP 0) ---
	var idx []byte
	idx = append(idx, codecHeader(TermsIndexCodecName, version, testSegID, "")...)
	idxDirOffset := int64(len(idx))
	idx = append(idx, vlong(0)...) // one field, indexStartFP=0
	idx = append(idx, i64be(idxDirOffset)...)
	idx = append(idx, codecFooter(1)...)

	fieldInfos := &fakeFieldInfos{
		byNumber: map[int32]postings.FieldInfo{
			1: {Name: fieldName, Number: 1, IndexOptions: indexOptions},
		},
		maxDoc: maxDoc,
	}

	r, err := Open(input.NewBytes(terms), input.NewBytes(idx), testSegID, "", fieldInfos, &fakePostingsReader{}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fr, err := r.Terms(fieldName)
	if err != nil {
		t.Fatalf("Terms: %v", err)
	}
	if fr == nil {
		t.Fatalf("field %q not found", fieldName)
	}
	return r, fr
}

// floorSplitFixture builds a single field whose root code is a
// two-sibling floor run: block A (fpOrig, implicit first sibling) and
// block B (explicit floor-table entry), so Next/SeekExact/SeekCeil
// exercise the floor-sibling-advance paths.
func floorSplitFixture(t *testing.T, entriesA, entriesB []termEntry) (*Reader, *FieldReader) {
	t.Helper()

	const longsSize = 1
	const version = VersionCurrent
	const maxDoc = 1000
	const hasFreqs = false

	var terms []byte
	terms = append(terms, codecHeader(TermsCodecName, version, testSegID, "")...)

	fpA := int64(len(terms))
	terms = append(terms, encodeLeafBlockBody(fpA, entriesA, hasFreqs, longsSize)...)
	fpB := int64(len(terms))
	terms = append(terms, encodeLeafBlockBody(fpB, entriesB, hasFreqs, longsSize)...)

	directoryOffset := int64(len(terms))

	allEntries := append(append([]termEntry{}, entriesA...), entriesB...)
	var sumDocFreq int64
	for _, e := range allEntries {
		sumDocFreq += int64(e.docFreq)
	}

	leadLabelB := entriesB[0].term[0]
	var floorTable []byte
	floorTable = append(floorTable, vint(1)...) // numFollow
	floorTable = append(floorTable, leadLabelB)
	floorTable = append(floorTable, vlong(uint64(fpB))...)

	rootCode := int64(fpA)<<outputFlagsNumBits | outputFlagHasTerms | outputFlagIsFloor
	rootCodeBytes := append(vlong(uint64(rootCode)), floorTable...)

	terms = append(terms, vint(1)...)
	terms = append(terms, vint(1)...)
	terms = append(terms, vlong(uint64(len(allEntries)))...)
	terms = append(terms, lenPrefixed(rootCodeBytes)...)
	terms = append(terms, vlong(uint64(sumDocFreq))...)
	terms = append(terms, vint(len(allEntries))...)
	terms = append(terms, vint(longsSize)...)
	terms = append(terms, lenPrefixed(entriesA[0].term)...)
	terms = append(terms, lenPrefixed(entriesB[len(entriesB)-1].term)...)

	terms = append(terms, i64be(directoryOffset)...)
	terms = append(terms, codecFooter(1)...)

	var idx []byte
	idx = append(idx, codecHeader(TermsIndexCodecName, version, testSegID, "")...)
	idxDirOffset := int64(len(idx))
	idx = append(idx, vlong(0)...)
	idx = append(idx, i64be(idxDirOffset)...)
	idx = append(idx, codecFooter(1)...)

	fieldInfos := &fakeFieldInfos{
		byNumber: map[int32]postings.FieldInfo{
			1: {Name: "floorfield", Number: 1, IndexOptions: postings.IndexOptionsDocsOnly},
		},
		maxDoc: maxDoc,
	}

	r, err := Open(input.NewBytes(terms), input.NewBytes(idx), testSegID, "", fieldInfos, &fakePostingsReader{}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fr, err := r.Terms("floorfield")
	if err != nil || fr == nil {
		t.Fatalf("Terms: fr=%v err=%v", fr, err)
	}
	return r, fr
}
