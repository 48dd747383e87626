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
)

func TestTermIterator_NextEnumeratesInOrder(t *testing.T) {
	want := []string{"apple", "banana", "cherry", "date"}
	_, fr := singleBlockFixture(t, "body", true, sortedEntries(want...))

	it, err := fr.Iterator()
	require.NoError(t, err)

	var got []string
	for {
		term, err := it.Next()
		require.NoError(t, err)
		if term == nil {
			break
		}
		got = append(got, string(term))
	}
	assert.Equal(t, want, got)

	// exhausted iterators keep returning (nil, nil).
	term, err := it.Next()
	require.NoError(t, err)
	assert.Nil(t, term)
}

func TestTermIterator_SeekExact(t *testing.T) {
	_, fr := singleBlockFixture(t, "body", false, sortedEntries("apple", "banana", "cherry"))

	it, err := fr.Iterator()
	require.NoError(t, err)

	ok, err := it.SeekExact([]byte("banana"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("banana"), it.Term())

	docFreq, err := it.DocFreq()
	require.NoError(t, err)
	assert.Equal(t, 1, docFreq)

	ok, err = it.SeekExact([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = it.SeekExact([]byte("zzz-beyond-max"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTermIterator_SeekCeil(t *testing.T) {
	_, fr := singleBlockFixture(t, "body", false, sortedEntries("apple", "banana", "cherry"))

	it, err := fr.Iterator()
	require.NoError(t, err)

	status, err := it.SeekCeil([]byte("banana"))
	require.NoError(t, err)
	assert.Equal(t, SeekStatusFound, status)

	status, err = it.SeekCeil([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, SeekStatusNotFound, status)
	assert.Equal(t, []byte("banana"), it.Term())

	status, err = it.SeekCeil([]byte("zzzzz"))
	require.NoError(t, err)
	assert.Equal(t, SeekStatusEnd, status)
}

func TestTermIterator_SeekExactStateBypassesFrameStack(t *testing.T) {
	_, fr := singleBlockFixture(t, "body", true, sortedEntries("apple", "banana", "cherry"))

	it, err := fr.Iterator()
	require.NoError(t, err)

	ok, err := it.SeekExact([]byte("cherry"))
	require.NoError(t, err)
	require.True(t, ok)
	state, err := it.TermState()
	require.NoError(t, err)

	fresh, err := fr.Iterator()
	require.NoError(t, err)
	require.NoError(t, fresh.SeekExactState([]byte("cherry"), state))
	assert.Equal(t, []byte("cherry"), fresh.Term())

	docFreq, err := fresh.DocFreq()
	require.NoError(t, err)
	assert.Equal(t, 1, docFreq)

	totalTermFreq, err := fresh.TotalTermFreq()
	require.NoError(t, err)
	assert.Equal(t, int64(2), totalTermFreq)
}

func TestTermIterator_SeekExactOrdUnsupported(t *testing.T) {
	_, fr := singleBlockFixture(t, "body", false, sortedEntries("a"))
	it, err := fr.Iterator()
	require.NoError(t, err)
	assert.Error(t, it.SeekExactOrd(0))
}

func TestTermIterator_FloorSplitEnumeratesBothSiblings(t *testing.T) {
	entriesA := sortedEntries("apple", "avocado")
	entriesB := sortedEntries("banana", "blueberry", "cherry")
	_, fr := floorSplitFixture(t, entriesA, entriesB)

	it, err := fr.Iterator()
	require.NoError(t, err)

	var got []string
	for {
		term, err := it.Next()
		require.NoError(t, err)
		if term == nil {
			break
		}
		got = append(got, string(term))
	}
	assert.Equal(t, []string{"apple", "avocado", "banana", "blueberry", "cherry"}, got)
}

// Seeks whose target's leading byte sorts below the first floor-table
// label stay in the floor run's implicit first sibling; crossing into
// later siblings via loadNextFloorBlock is covered by
// TestTermIterator_FloorSplitEnumeratesBothSiblings.
func TestTermIterator_FloorSplitSeekWithinFirstSibling(t *testing.T) {
	entriesA := sortedEntries("apple", "avocado")
	entriesB := sortedEntries("banana", "blueberry", "cherry")
	_, fr := floorSplitFixture(t, entriesA, entriesB)

	it, err := fr.Iterator()
	require.NoError(t, err)

	ok, err := it.SeekExact([]byte("avocado"))
	require.NoError(t, err)
	assert.True(t, ok)

	status, err := it.SeekCeil([]byte("aardvark"))
	require.NoError(t, err)
	assert.Equal(t, SeekStatusNotFound, status)
	assert.Equal(t, []byte("apple"), it.Term())
}
