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

package postings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexOptions_HasFreqs(t *testing.T) {
	assert.False(t, IndexOptionsDocsOnly.HasFreqs())
	assert.True(t, IndexOptionsDocsAndFreqs.HasFreqs())
	assert.True(t, IndexOptionsDocsFreqsAndPositions.HasFreqs())
	assert.True(t, IndexOptionsDocsFreqsPositionsAndOffsets.HasFreqs())
}
