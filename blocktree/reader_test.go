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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroiclabs/blocktree/input"
	"github.com/heroiclabs/blocktree/postings"
)

func sortedEntries(terms ...string) []termEntry {
	out := make([]termEntry, len(terms))
	for i, s := range terms {
		out[i] = termEntry{term: []byte(s), docFreq: 1, totalTermFreq: 2}
	}
	return out
}

func TestOpen_SingleFieldRoundTrip(t *testing.T) {
	r, fr := singleBlockFixture(t, "body", true, sortedEntries("apple", "banana", "cherry"))

	assert.Equal(t, []string{"body"}, r.Fields())
	assert.Equal(t, 1, r.Size())

	assert.Equal(t, int64(3), fr.NumTerms())
	assert.Equal(t, int64(3), fr.SumDocFreq())
	assert.Equal(t, int32(3), fr.DocCount())
	assert.Equal(t, []byte("apple"), fr.Min())
	assert.Equal(t, []byte("cherry"), fr.Max())
	assert.True(t, fr.HasFreqs())
	assert.Equal(t, int64(6), fr.SumTotalTermFreq())
}

func TestOpen_UnknownFieldIsNil(t *testing.T) {
	r, _ := singleBlockFixture(t, "body", false, sortedEntries("a", "b"))
	fr, err := r.Terms("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, fr)
}

func TestOpen_SegmentIDMismatchIsCorrupt(t *testing.T) {
	const version = VersionCurrent
	entries := sortedEntries("a")

	var terms []byte
	terms = append(terms, codecHeader(TermsCodecName, version, testSegID, "")...)
	blockFP := int64(len(terms))
	terms = append(terms, encodeLeafBlockBody(blockFP, entries, false, 1)...)
	directoryOffset := int64(len(terms))
	rootCode := int64(blockFP)<<outputFlagsNumBits | outputFlagHasTerms
	terms = append(terms, vint(1)...)
	terms = append(terms, vint(1)...)
	terms = append(terms, vlong(1)...)
	terms = append(terms, lenPrefixed(vlong(uint64(rootCode)))...)
	terms = append(terms, vlong(1)...)
	terms = append(terms, vint(1)...)
	terms = append(terms, vint(1)...)
	terms = append(terms, lenPrefixed(entries[0].term)...)
	terms = append(terms, lenPrefixed(entries[0].term)...)
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
			1: {Name: "body", Number: 1, IndexOptions: postings.IndexOptionsDocsOnly},
		},
		maxDoc: 1000,
	}

	var wrongSegID [16]byte
	copy(wrongSegID[:], "zzzzzzzzzzzzzzzz")

	_, err := Open(input.NewBytes(terms), input.NewBytes(idx), wrongSegID, "", fieldInfos, &fakePostingsReader{}, nil)
	require.Error(t, err)
	var btErr *Error
	require.ErrorAs(t, err, &btErr)
	assert.Equal(t, KindCorruptIndex, btErr.Kind)
}

func TestOpen_EmptyFieldNameLooksUpNothing(t *testing.T) {
	r, _ := singleBlockFixture(t, "body", false, sortedEntries("a"))
	fr, err := r.Terms("")
	require.NoError(t, err)
	assert.Nil(t, fr)
}
