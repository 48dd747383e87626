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
	"github.com/heroiclabs/blocktree/fstx"
	"github.com/heroiclabs/blocktree/input"
	"github.com/heroiclabs/blocktree/postings"
)

// floorEntry is one alternative floor entry point: the sibling block
// starting at fp is entered whenever a seek target's byte at this
// frame's prefix position is >= leadLabel (and < the next entry's
// leadLabel, or unconditionally for the last entry). The implicit
// "first" sibling (leadLabel effectively -infinity) is the frame's own
// fpOrig and is not stored here.
type floorEntry struct {
	leadLabel byte
	fp        int64
}

// frame is one stack entry: an in-memory view of a block currently
// being decoded, plus the frame's position within its parent. Frame
// methods never hold a pointer back to their owning TermIterator;
// instead each method that needs the iterator's shared term buffer,
// terms-in input, or postings reader takes *TermIterator as an
// explicit parameter.
type frame struct {
	ord int

	fp     int64
	fpOrig int64
	prefix int

	entCount int32
	nextEnt  int32 // -1 means "needs (re)loading at fp"

	isLeafBlock bool
	hasTerms    bool
	hasTermsOrig bool
	isFloor     bool

	floorEntries    []floorEntry
	floorSiblingIdx int // -1 = implicit first sibling (fpOrig itself)

	suffixIn input.Input
	statsIn  input.Input
	metaIn   input.Input

	// scratch valid for the entry most recently produced by next()
	suffix    int
	lastSubFP int64

	state        postings.BlockTermState
	termBlockOrd int64
	metadataUpto int64

	// arc is the FST arc this frame was reached through, if any;
	// kept only so callers that re-derive output bytes (e.g. a future
	// intersect/automaton walk) have it at hand; the dictionary's
	// three core operations never read it back.
	arc fstx.Arc
}

func newFrame(ord int) *frame {
	return &frame{ord: ord, fpOrig: -1, nextEnt: -1, floorSiblingIdx: -1}
}

// isLastInFloor reports whether this frame is the final sibling of
// its floor run (or trivially true for a non-floor block).
func (f *frame) isLastInFloor() bool {
	if !f.isFloor {
		return true
	}
	return f.floorSiblingIdx == len(f.floorEntries)-1
}

// setFloorData parses the floor table trailing a root-code/arc-output
// payload, once the IS_FLOOR flag bit has been seen.
func (f *frame) setFloorData(scratch input.Input) error {
	numFollow, err := scratch.ReadVInt()
	if err != nil {
		return err
	}
	if numFollow < 0 {
		return corruptf("negative floor follow-block count %d", numFollow)
	}
	entries := make([]floorEntry, 0, numFollow)
	for i := int32(0); i < numFollow; i++ {
		label, err := scratch.ReadByte()
		if err != nil {
			return err
		}
		fp, err := scratch.ReadVLong()
		if err != nil {
			return err
		}
		entries = append(entries, floorEntry{leadLabel: label, fp: fp})
	}
	f.floorEntries = entries
	f.floorSiblingIdx = -1
	return nil
}

// scanToFloorFrame selects, in O(#floor siblings), the sibling whose
// leading-byte range contains target[f.prefix], and repositions f at
// that sibling's fp if it isn't already there.
// A no-op when f is not a floor block, or target is not long enough
// to have a byte at f.prefix.
func (f *frame) scanToFloorFrame(target []byte) {
	if !f.isFloor || len(target) <= f.prefix || len(f.floorEntries) == 0 {
		return
	}
	targetByte := target[f.prefix]

	if targetByte < f.floorEntries[0].leadLabel {
		if f.floorSiblingIdx != -1 {
			f.floorSiblingIdx = -1
			f.fp = f.fpOrig
			f.nextEnt = -1
		}
		return
	}

	newIdx := 0
	for newIdx+1 < len(f.floorEntries) && f.floorEntries[newIdx+1].leadLabel <= targetByte {
		newIdx++
	}
	if newIdx != f.floorSiblingIdx {
		f.floorSiblingIdx = newIdx
		f.fp = f.floorEntries[newIdx].fp
		f.nextEnt = -1
	}
}

// loadNextFloorBlock sequentially advances to the floor sibling after
// the one currently loaded, and loads it.
func (f *frame) loadNextFloorBlock(it *TermIterator) error {
	f.floorSiblingIdx++
	if f.floorSiblingIdx >= len(f.floorEntries) {
		return illegalStatef("frame %d: no more floor siblings to advance to", f.ord)
	}
	f.fp = f.floorEntries[f.floorSiblingIdx].fp
	f.nextEnt = -1
	return f.loadBlock(it)
}

// block on-disk body, read starting at f.fp:
//
//	vint   header        = (entCount << 1) | isLeafBlock
//	vint   suffixLen      ; suffixLen bytes of suffix stream
//	vint   statsLen       ; statsLen bytes of stats stream
//	vint   metaLen        ; metaLen bytes of metadata stream
//
// Within the suffix stream, entCount entries each encode:
//
//	vint   code           = (suffixLength << 1) | isSubBlock
//	code>>1 bytes of suffix
//	vlong  fpDelta        (sub-block entries only; childFP = fp - fpDelta)
//
// Within the stats stream, one record per TERM entry (sub-blocks have
// none): vint docFreq, and, only when the field has freqs, vlong
// (totalTermFreq - docFreq).
//
// Within the metadata stream, one record per term entry: longsSize
// vlongs followed by whatever bytes the postings reader's DecodeTerm
// consumes.
//
// loadBlock is a no-op if the frame is already loaded for its current
// fp (nextEnt != -1); it is "rewound" instead via rewind().
func (f *frame) loadBlock(it *TermIterator) error {
	if f.nextEnt != -1 {
		return nil
	}

	if err := it.termsIn.Seek(f.fp); err != nil {
		return err
	}
	header, err := it.termsIn.ReadVInt()
	if err != nil {
		return err
	}
	f.isLeafBlock = header&1 != 0
	f.entCount = header >> 1
	if f.entCount <= 0 {
		return corruptf("block at fp %d has non-positive entry count %d", f.fp, f.entCount)
	}

	suffixLen, err := it.termsIn.ReadVInt()
	if err != nil {
		return err
	}
	suffixBytes, err := it.termsIn.ReadExact(int(suffixLen))
	if err != nil {
		return err
	}
	f.suffixIn = input.NewBytes(suffixBytes)

	statsLen, err := it.termsIn.ReadVInt()
	if err != nil {
		return err
	}
	statsBytes, err := it.termsIn.ReadExact(int(statsLen))
	if err != nil {
		return err
	}
	f.statsIn = input.NewBytes(statsBytes)

	metaLen, err := it.termsIn.ReadVInt()
	if err != nil {
		return err
	}
	metaBytes, err := it.termsIn.ReadExact(int(metaLen))
	if err != nil {
		return err
	}
	f.metaIn = input.NewBytes(metaBytes)

	f.nextEnt = 0
	f.termBlockOrd = 0
	f.metadataUpto = 0
	return nil
}

// rewind resets next_ent to the start of the currently-loaded block
// without re-reading it from disk.
func (f *frame) rewind() {
	f.nextEnt = 0
	f.termBlockOrd = 0
	f.metadataUpto = 0
	if f.suffixIn != nil {
		_ = f.suffixIn.Seek(0)
	}
	if f.statsIn != nil {
		_ = f.statsIn.Seek(0)
	}
	if f.metaIn != nil {
		_ = f.metaIn.Seek(0)
	}
}

// next decodes one entry (advancing next_ent) and reports whether it
// was a sub-block pointer (true) or a term (false). The decoded term
// bytes are written into it's shared term buffer at [prefix:prefix+
// suffixLen); for sub-block entries, f.lastSubFP is set; for term
// entries, f.state.DocFreq/TotalTermFreq/TermBlockOrd are set.
// Callers must first ensure next_ent < ent_count.
func (f *frame) next(it *TermIterator) (isSubBlock bool, err error) {
	code, err := f.suffixIn.ReadVInt()
	if err != nil {
		return false, err
	}
	isSubBlock = code&entryIsSubBlock != 0
	suffixLen := int(code >> 1)
	suffixBytes, err := f.suffixIn.ReadExact(suffixLen)
	if err != nil {
		return false, err
	}

	it.growTermTo(f.prefix + suffixLen)
	copy(it.term[f.prefix:f.prefix+suffixLen], suffixBytes)
	it.setTermLen(f.prefix + suffixLen)
	f.suffix = suffixLen

	if isSubBlock {
		fpDelta, err := f.suffixIn.ReadVLong()
		if err != nil {
			return false, err
		}
		f.lastSubFP = f.fp - fpDelta
	} else {
		docFreq, err := f.statsIn.ReadVInt()
		if err != nil {
			return false, err
		}
		if docFreq < 0 {
			return false, corruptf("term entry has negative docFreq %d", docFreq)
		}
		totalTermFreq := int64(-1)
		if it.fr.HasFreqs() {
			delta, err := f.statsIn.ReadVLong()
			if err != nil {
				return false, err
			}
			totalTermFreq = int64(docFreq) + delta
		}
		f.state.DocFreq = int(docFreq)
		f.state.TotalTermFreq = totalTermFreq
		f.termBlockOrd++
		f.state.TermBlockOrd = f.termBlockOrd
	}
	f.nextEnt++
	return isSubBlock, nil
}

// scanToSubBlock advances next_ent through entries already known to
// precede childFP's owning entry, until the sub-block entry pointing
// at childFP has been consumed, leaving next_ent positioned just past
// it. Used when Next() pops back to a parent frame whose cached
// position no longer matches and must be re-derived by re-scanning.
func (f *frame) scanToSubBlock(it *TermIterator, childFP int64) error {
	f.lastSubFP = -1
	for f.nextEnt < f.entCount {
		isSubBlock, err := f.next(it)
		if err != nil {
			return err
		}
		if isSubBlock && f.lastSubFP == childFP {
			return nil
		}
	}
	return illegalStatef("scanToSubBlock: child fp %d not found in parent block at fp %d", childFP, f.fp)
}

// decodeMetadata catches up f.state's postings-reader-owned fields to
// f.termBlockOrd, invoking the postings reader's DecodeTerm once per
// term entry between metadataUpto and termBlockOrd.
func (f *frame) decodeMetadata(it *TermIterator) error {
	longsSize := int(it.fr.meta.longsSize)
	for f.metadataUpto < f.termBlockOrd {
		absolute := f.metadataUpto == 0
		longs := make([]int64, longsSize)
		for i := range longs {
			v, err := f.metaIn.ReadVLong()
			if err != nil {
				return err
			}
			longs[i] = v
		}
		if err := it.postingsReader.DecodeTerm(longs, f.metaIn, it.fr.meta.fieldInfo, &f.state, absolute); err != nil {
			return err
		}
		f.metadataUpto++
	}
	return nil
}
