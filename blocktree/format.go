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

// Format constants, matching the Lucene block-tree terms format's own
// naming and version history 1:1.
const (
	TermsExtension      = "tim"
	TermsIndexExtension = "tip"

	TermsCodecName      = "BlockTreeTermsDict"
	TermsIndexCodecName = "BlockTreeTermsIndex"

	// VersionStart is the initial terms format.
	VersionStart = 0
	// VersionAutoPrefixTerms wrote auto-prefix terms unconditionally.
	VersionAutoPrefixTerms = 1
	// VersionAutoPrefixTermsCond records, via a single marker byte,
	// whether a field actually wrote any auto-prefix terms.
	VersionAutoPrefixTermsCond = 2
	// VersionAutoPrefixTermsRemoved: auto-prefix terms were superseded
	// by points; this is VersionCurrent.
	VersionAutoPrefixTermsRemoved = 3
	VersionCurrent                = VersionAutoPrefixTermsRemoved

	// outputFlagsNumBits is the width of the root-code flag field;
	// the remaining bits (right-shifted by this much) are the file
	// pointer.
	outputFlagsNumBits = 2
	outputFlagIsFloor   = 0x1
	outputFlagHasTerms  = 0x2

	// MaxLongsSize bounds how many per-term longs a postings reader
	// may encode directly in a block's metadata stream.
	MaxLongsSize = 32
)

// SeekStatus is the result of seek_ceil.
type SeekStatus int

const (
	// SeekStatusFound means the exact target term exists and is now
	// current.
	SeekStatusFound SeekStatus = iota
	// SeekStatusNotFound means the target does not exist but a term
	// greater than it does; that term is now current.
	SeekStatusNotFound
	// SeekStatusEnd means every term in the field sorts below the
	// target; iteration is now exhausted.
	SeekStatusEnd
)

func (s SeekStatus) String() string {
	switch s {
	case SeekStatusFound:
		return "Found"
	case SeekStatusNotFound:
		return "NotFound"
	case SeekStatusEnd:
		return "End"
	default:
		return "Unknown"
	}
}

// entry codes, stored as the low bit of each suffix-stream entry's
// vint header.
const (
	entryIsSubBlock = 0x1
)
