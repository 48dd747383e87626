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
	"fmt"
	"strings"
)

// blockScratch tracks, for one in-progress block (one entry on the
// Stats walk's own shadow stack), whether any term or sub-block entry
// has been seen yet; composition is only known once the block's
// entries have all been visited, i.e. at end_block time.
type blockScratch struct {
	hasTerms     bool
	hasSubBlocks bool
}

// Stats is the report produced by a full depth-first walk of a
// field's block tree. Every count is accumulated
// strictly from what the walk observes; nothing here is read off the
// field's directory entry.
type Stats struct {
	Field string

	TotalBlockCount     int64
	NonFloorBlockCount  int64
	FloorSubBlockCount  int64
	MixedBlockCount     int64
	TermsOnlyBlockCount int64
	SubBlocksOnlyCount  int64

	StartBlockCount int64
	EndBlockCount   int64

	TotalTermCount int64
	TotalTermBytes int64

	// BlocksByPrefixLen buckets TotalBlockCount by the prefix length
	// (depth) each block's start_block was emitted at.
	BlocksByPrefixLen map[int]int64

	stack []*blockScratch
}

func newStats(field string) *Stats {
	return &Stats{Field: field, BlocksByPrefixLen: make(map[int]int64)}
}

// startBlock records a block entering the walk. isFloorContinuation is
// accepted for fidelity with the contract's start_block(frame, bool)
// shape (the caller passes !is_last_in_floor for a block's first
// sibling and true for every subsequent floor sibling) but categorization
// itself keys off frame.isFloor directly, since every floor sibling,
// first or not, belongs in the same bucket.
func (s *Stats) startBlock(f *frame, isFloorContinuation bool) {
	_ = isFloorContinuation
	s.TotalBlockCount++
	s.StartBlockCount++
	if f.isFloor {
		s.FloorSubBlockCount++
	} else {
		s.NonFloorBlockCount++
	}
	s.BlocksByPrefixLen[f.prefix]++
	s.stack = append(s.stack, &blockScratch{})
}

// term records one term entry belonging to whichever block is
// currently on top of the walk's shadow stack.
func (s *Stats) term(term []byte) {
	s.TotalTermCount++
	s.TotalTermBytes += int64(len(term))
	if len(s.stack) > 0 {
		s.stack[len(s.stack)-1].hasTerms = true
	}
}

// subBlock marks the block currently on top of the shadow stack as
// having produced at least one sub-block entry.
func (s *Stats) subBlock() {
	if len(s.stack) > 0 {
		s.stack[len(s.stack)-1].hasSubBlocks = true
	}
}

// endBlock retires the block currently on top of the shadow stack and
// categorizes it by what it contained.
func (s *Stats) endBlock(f *frame) error {
	if len(s.stack) == 0 {
		return illegalStatef("stats: end_block for field %q with no matching start_block", s.Field)
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.EndBlockCount++

	switch {
	case top.hasTerms && top.hasSubBlocks:
		s.MixedBlockCount++
	case top.hasSubBlocks:
		s.SubBlocksOnlyCount++
	default:
		s.TermsOnlyBlockCount++
	}
	return nil
}

// finish checks the walk's closing invariants once
// every block has been popped.
func (s *Stats) finish() error {
	if len(s.stack) != 0 {
		return illegalStatef("stats: field %q walk ended with %d block(s) still open", s.Field, len(s.stack))
	}
	if s.StartBlockCount != s.EndBlockCount {
		return illegalStatef("stats: field %q start_block_count %d != end_block_count %d", s.Field, s.StartBlockCount, s.EndBlockCount)
	}
	if s.TotalBlockCount != s.FloorSubBlockCount+s.NonFloorBlockCount {
		return illegalStatef("stats: field %q total %d != floor_sub %d + non_floor %d", s.Field, s.TotalBlockCount, s.FloorSubBlockCount, s.NonFloorBlockCount)
	}
	if s.TotalBlockCount != s.MixedBlockCount+s.TermsOnlyBlockCount+s.SubBlocksOnlyCount {
		return illegalStatef("stats: field %q total %d != mixed %d + terms_only %d + sub_only %d", s.Field, s.TotalBlockCount, s.MixedBlockCount, s.TermsOnlyBlockCount, s.SubBlocksOnlyCount)
	}
	return nil
}

// String formats a short human-readable report, in the spirit of a
// debug/admin diagnostic rather than a machine-parsed format.
func (s *Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "field %q: %d terms, %d blocks (%d floor, %d non-floor)\n",
		s.Field, s.TotalTermCount, s.TotalBlockCount, s.FloorSubBlockCount, s.NonFloorBlockCount)
	fmt.Fprintf(&b, "  mixed=%d terms-only=%d sub-blocks-only=%d\n",
		s.MixedBlockCount, s.TermsOnlyBlockCount, s.SubBlocksOnlyCount)
	fmt.Fprintf(&b, "  total term bytes=%d\n", s.TotalTermBytes)
	return b.String()
}

// computeStats performs a depth-first walk of fr's block tree,
// reusing the same frame/push/load machinery a TermIterator uses,
// driving a Stats collector through startBlock/term/subBlock/endBlock
// calls as the walk enters and leaves each block.
func computeStats(fr *FieldReader) (*Stats, error) {
	termsInClone, err := fr.reader.termsIn.Clone()
	if err != nil {
		return nil, err
	}
	it, err := newTermIterator(fr, termsInClone)
	if err != nil {
		return nil, err
	}

	stats := newStats(fr.Name())

	if err := it.ensureInitialized(); err != nil {
		return nil, err
	}
	root := it.currentFrame()
	if err := root.loadBlock(it); err != nil {
		return nil, err
	}
	it.validIndexPrefix = 0
	stats.startBlock(root, !root.isLastInFloor())

	for {
		for it.currentFrame().nextEnt >= it.currentFrame().entCount {
			f := it.currentFrame()
			if err := stats.endBlock(f); err != nil {
				return nil, err
			}
			if !f.isLastInFloor() {
				if err := f.loadNextFloorBlock(it); err != nil {
					return nil, err
				}
				stats.startBlock(f, true)
				continue
			}
			if f.ord == 0 {
				if err := stats.finish(); err != nil {
					return nil, err
				}
				return stats, nil
			}
			it.currentFrameOrd = f.ord - 1
		}

		isSubBlock, err := it.currentFrame().next(it)
		if err != nil {
			return nil, err
		}
		if isSubBlock {
			stats.subBlock()
			parent := it.currentFrame()
			child, err := it.descendIntoSubBlock(parent)
			if err != nil {
				return nil, err
			}
			stats.startBlock(child, !child.isLastInFloor())
		} else {
			stats.term(it.Term())
		}
	}
}
