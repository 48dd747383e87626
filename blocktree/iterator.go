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
	"bytes"

	"github.com/RoaringBitmap/roaring"

	"github.com/heroiclabs/blocktree/fstx"
	"github.com/heroiclabs/blocktree/input"
	"github.com/heroiclabs/blocktree/postings"
)

// TermIterator walks one field's term dictionary: Next() enumerates in
// sorted order, SeekExact/SeekCeil/SeekExactState position it at or
// near an arbitrary target. It holds a frame stack mirroring the path
// from the field's root block to whichever block the most recent
// operation landed in, plus a cache of the FST arcs consumed to get
// there, so that a later seek sharing a prefix with the current
// position can skip re-descending the shared part of both.
type TermIterator struct {
	fr             *FieldReader
	termsIn        input.Input
	postingsReader postings.Reader

	frames          []*frame
	currentFrameOrd int // -1 = the static frame (see staticFrame)
	staticFrame     *frame

	term    []byte
	termLen int

	termExists bool
	eof        bool

	initialized bool

	// usedSeekExactState is set by SeekExactState and cleared the next
	// time Next() (but not a seek) runs: Next() must first replay
	// SeekExact(current term) to rehydrate a real frame stack, since
	// SeekExactState never pushed one.
	usedSeekExactState bool

	// arcs[d] is the arc consumed to reach depth d (arcs[0] is the
	// field's FST root arc, or the zero Arc when the field has no
	// index). validIndexPrefix bounds how much of arcs/term the next
	// seek's common-prefix comparison may trust without re-walking the
	// FST: bytes beyond it were determined by scanning blocks, not the
	// index, and may not correspond to any cached arc.
	arcs             []fstx.Arc
	fstReader        *fstx.BytesReader
	validIndexPrefix int

	// targetBeforeCurrentLength records current_frame_ord at the start
	// of the seek in progress, so a reused cached frame deeper than
	// this point knows it must rewind rather than resume mid-block.
	targetBeforeCurrentLength int
}

func newTermIterator(fr *FieldReader, termsIn input.Input) (*TermIterator, error) {
	it := &TermIterator{
		fr:              fr,
		termsIn:         termsIn,
		postingsReader:  fr.reader.postingsReader,
		currentFrameOrd: -1,
		staticFrame:     newFrame(-1),
		term:            make([]byte, 16),
	}
	if fr.index != nil {
		it.arcs = []fstx.Arc{fr.index.RootArc()}
		it.fstReader = fr.index.BytesReader()
	} else {
		it.arcs = []fstx.Arc{{}}
	}
	return it, nil
}

func (it *TermIterator) currentFrame() *frame {
	if it.currentFrameOrd >= 0 {
		return it.frames[it.currentFrameOrd]
	}
	return it.staticFrame
}

func (it *TermIterator) getFrame(ord int) *frame {
	for len(it.frames) <= ord {
		it.frames = append(it.frames, newFrame(len(it.frames)))
	}
	return it.frames[ord]
}

func (it *TermIterator) cacheArc(depth int, arc fstx.Arc) {
	for len(it.arcs) <= depth {
		it.arcs = append(it.arcs, fstx.Arc{})
	}
	it.arcs[depth] = arc
}

func (it *TermIterator) growTermTo(n int) {
	if len(it.term) < n {
		newCap := n
		if newCap < 2*len(it.term) {
			newCap = 2 * len(it.term)
		}
		newTerm := make([]byte, newCap)
		copy(newTerm, it.term)
		it.term = newTerm
	}
}

func (it *TermIterator) setTermLen(n int) {
	it.growTermTo(n)
	it.termLen = n
}

func (it *TermIterator) setTermBytes(b []byte) {
	it.growTermTo(len(b))
	copy(it.term, b)
	it.termLen = len(b)
}

// ensureInitialized pushes the field's root frame on first use, from
// its directory root code (depth 0).
func (it *TermIterator) ensureInitialized() error {
	if it.initialized {
		return nil
	}
	it.initialized = true
	if _, err := it.pushFrameByData(it.arcs[0], it.fr.index != nil, it.fr.meta.rootCode, 0); err != nil {
		return err
	}
	return nil
}

// pushFrameByFP pushes (or reuses, if it's the same fp already loaded
// at this stack position) the frame at the next stack ord, anchored
// at file pointer fp and representing a prefix of length bytes.
func (it *TermIterator) pushFrameByFP(arc fstx.Arc, hasArc bool, fp int64, length int) *frame {
	idx := it.currentFrameOrd + 1
	f := it.getFrame(idx)
	if hasArc {
		f.arc = arc
	} else {
		f.arc = fstx.Arc{}
	}

	if f.fpOrig == fp && f.nextEnt != -1 {
		if f.ord > it.targetBeforeCurrentLength {
			f.rewind()
		}
	} else {
		f.nextEnt = -1
		f.prefix = length
		f.termBlockOrd = 0
		f.metadataUpto = 0
		f.fp = fp
		f.fpOrig = fp
		f.lastSubFP = -1
		f.hasTerms = true
		f.hasTermsOrig = true
		f.isFloor = false
		f.floorEntries = nil
		f.floorSiblingIdx = -1
	}
	it.currentFrameOrd = idx
	return f
}

// pushFrameByData pushes a frame from a root-code-shaped payload: a
// leading var-long packing (fp << 2 | isFloor<<0 | hasTerms<<1),
// optionally followed by a floor table when isFloor.
// Used for the field's own root code and for any FST arc whose Output
// represents a final state.
func (it *TermIterator) pushFrameByData(arc fstx.Arc, hasArc bool, frameData []byte, length int) (*frame, error) {
	scratch := input.NewBytes(frameData)
	code, err := scratch.ReadVLong()
	if err != nil {
		return nil, err
	}
	fp := code >> outputFlagsNumBits

	f := it.pushFrameByFP(arc, hasArc, fp, length)
	f.hasTerms = code&outputFlagHasTerms != 0
	f.hasTermsOrig = f.hasTerms
	f.isFloor = code&outputFlagIsFloor != 0
	if f.isFloor {
		if err := f.setFloorData(scratch); err != nil {
			return nil, err
		}
	} else {
		f.floorEntries = nil
		f.floorSiblingIdx = -1
	}
	return f, nil
}

func (it *TermIterator) descendIntoSubBlock(parent *frame) (*frame, error) {
	child := it.pushFrameByFP(fstx.Arc{}, false, parent.lastSubFP, it.termLen)
	if err := child.loadBlock(it); err != nil {
		return nil, err
	}
	return child, nil
}

// seekPreamble is the outcome of comparing the current term against a
// seek target along the cached arc/frame path, before any new I/O.
type seekPreamble struct {
	targetUpto int
	output     []byte
	cmp        int // bytes.Compare(currentTerm, target): <0 target greater, 0 equal, >0 target smaller
}

// prepareSeek implements the common-prefix seek preamble shared by
// SeekExact and SeekCeil: compare the current term and target up to
// min(valid_index_prefix, target.len()), accumulating FST output and
// the deepest final arc seen, then extend the comparison (without
// touching the FST) to determine full ordering.
func (it *TermIterator) prepareSeek(target []byte) (*seekPreamble, error) {
	origFrameOrd := it.currentFrameOrd
	it.targetBeforeCurrentLength = origFrameOrd
	it.eof = false

	if !it.initialized {
		if err := it.ensureInitialized(); err != nil {
			return nil, err
		}
		return &seekPreamble{targetUpto: 0}, nil
	}

	cmpLen := it.validIndexPrefix
	if len(target) < cmpLen {
		cmpLen = len(target)
	}

	lastFrameIdx := 0
	var output []byte
	i := 0
	for ; i < cmpLen; i++ {
		if it.term[i] != target[i] {
			break
		}
		output = append(output, it.arcs[i+1].Output...)
		if it.arcs[i+1].IsFinal {
			lastFrameIdx = i + 1
		}
	}
	targetUpto := i

	j := i
	for j < len(target) && j < it.termLen && it.term[j] == target[j] {
		j++
	}
	var cmp int
	switch {
	case j < len(target) && j < it.termLen:
		if it.term[j] < target[j] {
			cmp = -1
		} else {
			cmp = 1
		}
	case it.termLen == len(target):
		cmp = 0
	case it.termLen < len(target):
		cmp = -1
	default:
		cmp = 1
	}

	switch {
	case cmp < 0:
		it.currentFrameOrd = lastFrameIdx
	case cmp > 0:
		it.currentFrameOrd = lastFrameIdx
		it.currentFrame().rewind()
		it.targetBeforeCurrentLength = 0
	}

	return &seekPreamble{targetUpto: targetUpto, output: output, cmp: cmp}, nil
}

// descendAndScan implements the FST-descent loop followed by
// scan_to_term on whichever frame the descent settles on.
//
// shortCircuitMiss is true only when exact is true and the FST missed
// at a frame with no terms: the caller (SeekExact) can report "not
// found" without reading any block.
func (it *TermIterator) descendAndScan(target []byte, targetUpto int, accumOutput []byte, exact bool) (status SeekStatus, shortCircuitMiss bool, err error) {
	for targetUpto < len(target) {
		if it.fr.index == nil {
			break
		}
		arc, ok, err := it.fr.index.FindTargetArc(target[targetUpto], it.arcs[targetUpto], it.fstReader)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			it.validIndexPrefix = it.currentFrame().prefix
			it.currentFrame().scanToFloorFrame(target)
			if !it.currentFrame().hasTerms && exact {
				it.setTermBytes(target[:targetUpto])
				return 0, true, nil
			}
			if err := it.currentFrame().loadBlock(it); err != nil {
				return 0, false, err
			}
			status, err := it.currentFrame().scanToTerm(it, target, exact)
			return status, false, err
		}

		it.growTermTo(targetUpto + 1)
		it.term[targetUpto] = target[targetUpto]
		accumOutput = append(accumOutput, arc.Output...)
		targetUpto++
		it.setTermLen(targetUpto)

		if arc.IsFinal {
			if _, err := it.pushFrameByData(arc, true, accumOutput, targetUpto); err != nil {
				return 0, false, err
			}
		}
		it.cacheArc(targetUpto, arc)
	}

	it.validIndexPrefix = targetUpto
	it.currentFrame().scanToFloorFrame(target)
	if err := it.currentFrame().loadBlock(it); err != nil {
		return 0, false, err
	}
	status, err = it.currentFrame().scanToTerm(it, target, exact)
	return status, false, err
}

// scanToTerm scans forward within f (descending into sub-blocks as
// needed) until it finds target, overshoots it, or exhausts the
// frame.
func (f *frame) scanToTerm(it *TermIterator, target []byte, exact bool) (SeekStatus, error) {
	for {
		if f.nextEnt >= f.entCount {
			return SeekStatusEnd, nil
		}
		isSubBlock, err := f.next(it)
		if err != nil {
			return 0, err
		}
		current := it.term[:it.termLen]

		if isSubBlock {
			if bytes.HasPrefix(target, current) {
				child, err := it.descendIntoSubBlock(f)
				if err != nil {
					return 0, err
				}
				status, err := child.scanToTerm(it, target, exact)
				if err != nil {
					return 0, err
				}
				if status != SeekStatusEnd {
					return status, nil
				}
				it.currentFrameOrd = f.ord
				continue
			}
			if bytes.Compare(current, target) > 0 {
				it.termExists = false
				if !exact {
					// the ceiling is the first term inside this sub-block
					if _, err := it.descendIntoSubBlock(f); err != nil {
						return 0, err
					}
					if _, err := it.Next(); err != nil {
						return 0, err
					}
				}
				return SeekStatusNotFound, nil
			}
			continue
		}

		switch cmp := bytes.Compare(current, target); {
		case cmp == 0:
			it.termExists = true
			return SeekStatusFound, nil
		case cmp > 0:
			it.termExists = false
			return SeekStatusNotFound, nil
		}
	}
}

// SeekExact reports whether target exists in this field, leaving the
// iterator positioned on it if so. On a false return,
// the position of a subsequent Next() is unspecified until another
// seek is issued, mirroring the contract's "result is unspecified"
// note.
func (it *TermIterator) SeekExact(target []byte) (bool, error) {
	pre, err := it.prepareSeek(target)
	if err != nil {
		return false, err
	}
	if pre.cmp == 0 && it.termExists && it.termLen == len(target) {
		return true, nil
	}

	status, shortCircuitMiss, err := it.descendAndScan(target, pre.targetUpto, pre.output, true)
	if err != nil {
		return false, err
	}
	if shortCircuitMiss {
		it.termExists = false
		return false, nil
	}
	it.termExists = status == SeekStatusFound
	return it.termExists, nil
}

// SeekCeil positions the iterator at target if it exists, or at the
// smallest term greater than target otherwise; if no such term
// exists, the iterator is exhausted.
func (it *TermIterator) SeekCeil(target []byte) (SeekStatus, error) {
	pre, err := it.prepareSeek(target)
	if err != nil {
		return 0, err
	}
	if pre.cmp == 0 && it.termExists && it.termLen == len(target) {
		return SeekStatusFound, nil
	}

	status, _, err := it.descendAndScan(target, pre.targetUpto, pre.output, false)
	if err != nil {
		return 0, err
	}
	if status == SeekStatusEnd {
		next, err := it.Next()
		if err != nil {
			return 0, err
		}
		if next == nil {
			return SeekStatusEnd, nil
		}
		return SeekStatusNotFound, nil
	}
	return status, nil
}

// SeekExactOrd is never supported: this codec carries no ordinal
// index.
func (it *TermIterator) SeekExactOrd(ord int64) error {
	return unsupportedf("seek_exact_ord: block-tree terms dictionary does not index term ordinals")
}

// SeekExactState positions the iterator at text using an already-known
// term state, bypassing the frame stack entirely: useful when a caller
// (e.g. a query planner) already resolved text's state some other way
// and now just wants DocFreq/TotalTermFreq/Postings.
func (it *TermIterator) SeekExactState(text []byte, state postings.BlockTermState) error {
	if it.termExists && it.termLen == len(text) && bytes.Equal(it.term[:it.termLen], text) {
		return nil
	}
	it.staticFrame.state = state
	it.staticFrame.termBlockOrd = state.TermBlockOrd
	it.staticFrame.metadataUpto = state.TermBlockOrd
	it.setTermBytes(text)
	it.termExists = true
	it.currentFrameOrd = -1
	it.validIndexPrefix = 0
	it.usedSeekExactState = true
	it.eof = false
	return nil
}

// Next advances to the next term in sorted order, or returns (nil,
// nil) at exhaustion.
func (it *TermIterator) Next() ([]byte, error) {
	if it.eof {
		return nil, nil
	}

	if !it.initialized {
		if err := it.ensureInitialized(); err != nil {
			return nil, err
		}
		if err := it.currentFrame().loadBlock(it); err != nil {
			return nil, err
		}
	}

	if it.usedSeekExactState {
		cur := append([]byte(nil), it.term[:it.termLen]...)
		it.usedSeekExactState = false
		if _, err := it.SeekExact(cur); err != nil {
			return nil, err
		}
	}

	for {
		for it.currentFrame().nextEnt >= it.currentFrame().entCount {
			f := it.currentFrame()
			if !f.isLastInFloor() {
				if err := f.loadNextFloorBlock(it); err != nil {
					return nil, err
				}
				continue
			}
			if f.ord == 0 {
				it.eof = true
				it.setTermLen(0)
				it.termExists = false
				return nil, nil
			}

			childFPOrig := f.fpOrig
			it.currentFrameOrd = f.ord - 1
			parent := it.currentFrame()
			if parent.nextEnt == -1 || parent.lastSubFP != childFPOrig {
				parent.scanToFloorFrame(it.term[:it.termLen])
				if err := parent.loadBlock(it); err != nil {
					return nil, err
				}
				if err := parent.scanToSubBlock(it, childFPOrig); err != nil {
					return nil, err
				}
			}
			if it.validIndexPrefix > parent.prefix {
				it.validIndexPrefix = parent.prefix
			}
		}

		isSubBlock, err := it.currentFrame().next(it)
		if err != nil {
			return nil, err
		}
		if isSubBlock {
			child, err := it.descendIntoSubBlock(it.currentFrame())
			if err != nil {
				return nil, err
			}
			_ = child
			continue
		}
		it.termExists = true
		return append([]byte(nil), it.term[:it.termLen]...), nil
	}
}

// Term returns the bytes of the current term; valid only after a
// successful Next, a SeekExact/SeekCeil that found or landed on a
// term, or SeekExactState.
func (it *TermIterator) Term() []byte {
	return it.term[:it.termLen]
}

func (it *TermIterator) DocFreq() (int, error) {
	f := it.currentFrame()
	if err := f.decodeMetadata(it); err != nil {
		return 0, err
	}
	return f.state.DocFreq, nil
}

func (it *TermIterator) TotalTermFreq() (int64, error) {
	f := it.currentFrame()
	if err := f.decodeMetadata(it); err != nil {
		return 0, err
	}
	return f.state.TotalTermFreq, nil
}

func (it *TermIterator) TermState() (postings.BlockTermState, error) {
	f := it.currentFrame()
	if err := f.decodeMetadata(it); err != nil {
		return postings.BlockTermState{}, err
	}
	return f.state, nil
}

func (it *TermIterator) Postings(flags postings.Flags, except *roaring.Bitmap) (postings.PostingsIterator, error) {
	f := it.currentFrame()
	if err := f.decodeMetadata(it); err != nil {
		return nil, err
	}
	return it.postingsReader.Postings(it.fr.meta.fieldInfo, &f.state, flags, except)
}
