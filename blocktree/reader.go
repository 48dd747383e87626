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

	"go.uber.org/zap"

	"github.com/heroiclabs/blocktree/codec"
	"github.com/heroiclabs/blocktree/fstx"
	"github.com/heroiclabs/blocktree/input"
	"github.com/heroiclabs/blocktree/postings"
)

// FieldInfos is the consumed field-metadata collaborator:
// enough of a segment's field catalog for the dictionary to validate
// field numbers and translate them to names.
type FieldInfos interface {
	FieldByNumber(number int32) (postings.FieldInfo, bool)
	MaxDoc() int32
}

// fieldMetadata is one per-field directory entry.
type fieldMetadata struct {
	fieldInfo postings.FieldInfo

	numTerms         int64
	rootCode         []byte
	sumTotalTermFreq int64 // -1 when absent
	sumDocFreq       int64
	docCount         int32
	longsSize        int32
	minTerm          []byte
	maxTerm          []byte

	indexStartFP int64
}

// Reader is the top-level, immutable, thread-shareable entry point:
// it owns the opened terms-in/index-in inputs and one FieldReader per
// indexed field.
type Reader struct {
	logger *zap.Logger

	termsIn input.Input
	indexIn input.Input

	postingsReader postings.Reader

	version            int32
	anyAutoPrefixTerms bool

	fields     map[string]*FieldReader
	fieldOrder []string
}

// Open parses both files' directory regions and constructs one
// FieldReader per field entry. termsIn and indexIn must
// already be positioned at the start of their respective files;
// segmentID/suffix identify the segment these files belong to, for
// codec-header validation.
func Open(termsIn, indexIn input.Input, segmentID [16]byte, suffix string,
	fieldInfos FieldInfos, postingsReader postings.Reader, logger *zap.Logger) (*Reader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	termsHeader, err := codec.ReadHeader(termsIn)
	if err != nil {
		return nil, wrapCorrupt(err, "reading terms header")
	}
	if err := codec.CheckHeader(termsHeader, TermsCodecName, VersionStart, VersionCurrent, segmentID, suffix); err != nil {
		logger.Warn("terms header check failed", zap.Error(err))
		return nil, wrapCorrupt(err, "terms header")
	}

	indexHeader, err := codec.ReadHeader(indexIn)
	if err != nil {
		return nil, wrapCorrupt(err, "reading terms-index header")
	}
	if err := codec.CheckHeader(indexHeader, TermsIndexCodecName, VersionStart, VersionCurrent, segmentID, suffix); err != nil {
		logger.Warn("terms-index header check failed", zap.Error(err))
		return nil, wrapCorrupt(err, "terms-index header")
	}

	if termsHeader.Version != indexHeader.Version {
		return nil, corruptf("terms version %d != terms-index version %d", termsHeader.Version, indexHeader.Version)
	}
	version := termsHeader.Version

	var anyAutoPrefixTerms bool
	switch {
	case version == VersionAutoPrefixTermsCond:
		marker, err := termsIn.ReadByte()
		if err != nil {
			return nil, wrapCorrupt(err, "reading any_auto_prefix_terms marker")
		}
		switch marker {
		case 0:
			anyAutoPrefixTerms = false
		case 1:
			anyAutoPrefixTerms = true
		default:
			return nil, corruptf("invalid any_auto_prefix_terms marker byte %d", marker)
		}
	case version >= VersionAutoPrefixTermsRemoved:
		anyAutoPrefixTerms = false
	case version == VersionAutoPrefixTerms:
		anyAutoPrefixTerms = true
	default:
		anyAutoPrefixTerms = false
	}

	// Retrieve (not verify) the data-file checksum: cheap truncation
	// detection only.
	if _, err := codec.RetrieveChecksum(termsIn); err != nil {
		return nil, wrapCorrupt(err, "retrieving terms checksum")
	}
	if _, err := codec.RetrieveChecksum(indexIn); err != nil {
		return nil, wrapCorrupt(err, "retrieving terms-index checksum")
	}

	if _, err := codec.SeekDirectory(termsIn); err != nil {
		return nil, wrapCorrupt(err, "seeking terms directory")
	}
	if _, err := codec.SeekDirectory(indexIn); err != nil {
		return nil, wrapCorrupt(err, "seeking terms-index directory")
	}

	fieldCount, err := termsIn.ReadVInt()
	if err != nil {
		return nil, wrapCorrupt(err, "reading field count")
	}
	if fieldCount < 0 {
		return nil, corruptf("negative field count %d", fieldCount)
	}

	indexStartFPs := make([]int64, 0, fieldCount)
	for i := int32(0); i < fieldCount; i++ {
		fp, err := indexIn.ReadVLong()
		if err != nil {
			return nil, wrapCorrupt(err, "reading index-start offset %d", i)
		}
		indexStartFPs = append(indexStartFPs, fp)
	}

	r := &Reader{
		logger:             logger,
		termsIn:            termsIn,
		indexIn:            indexIn,
		postingsReader:     postingsReader,
		version:            version,
		anyAutoPrefixTerms: anyAutoPrefixTerms,
		fields:             make(map[string]*FieldReader, fieldCount),
		fieldOrder:         make([]string, 0, fieldCount),
	}

	maxDoc := fieldInfos.MaxDoc()
	seenFields := make(map[string]bool, fieldCount)

	for i := int32(0); i < fieldCount; i++ {
		fieldNumber, err := termsIn.ReadVInt()
		if err != nil {
			return nil, wrapCorrupt(err, "reading field number %d", i)
		}
		fi, ok := fieldInfos.FieldByNumber(fieldNumber)
		if !ok {
			return nil, corruptf("unknown field number %d", fieldNumber)
		}
		if seenFields[fi.Name] {
			return nil, corruptf("duplicate field entry for %q", fi.Name)
		}
		seenFields[fi.Name] = true

		numTerms, err := termsIn.ReadVLong()
		if err != nil {
			return nil, wrapCorrupt(err, "reading term count for field %q", fi.Name)
		}
		if numTerms <= 0 {
			return nil, corruptf("field %q has non-positive term count %d", fi.Name, numTerms)
		}

		rootCodeLen, err := termsIn.ReadVInt()
		if err != nil {
			return nil, wrapCorrupt(err, "reading root-code length for field %q", fi.Name)
		}
		if rootCodeLen < 0 {
			return nil, corruptf("field %q has negative root-code length %d", fi.Name, rootCodeLen)
		}
		rootCode, err := termsIn.ReadExact(int(rootCodeLen))
		if err != nil {
			return nil, wrapCorrupt(err, "reading root code for field %q", fi.Name)
		}

		sumTotalTermFreq := int64(-1)
		if fi.IndexOptions.HasFreqs() {
			sumTotalTermFreq, err = termsIn.ReadVLong()
			if err != nil {
				return nil, wrapCorrupt(err, "reading sum-total-term-freq for field %q", fi.Name)
			}
		}

		sumDocFreq, err := termsIn.ReadVLong()
		if err != nil {
			return nil, wrapCorrupt(err, "reading sum-doc-freq for field %q", fi.Name)
		}

		docCount, err := termsIn.ReadVInt()
		if err != nil {
			return nil, wrapCorrupt(err, "reading doc-count for field %q", fi.Name)
		}
		if docCount < 0 || docCount > maxDoc {
			return nil, corruptf("field %q doc-count %d out of range [0,%d]", fi.Name, docCount, maxDoc)
		}

		longsSize, err := termsIn.ReadVInt()
		if err != nil {
			return nil, wrapCorrupt(err, "reading longs-size for field %q", fi.Name)
		}
		if longsSize < 0 || longsSize > MaxLongsSize {
			return nil, corruptf("field %q longs-size %d out of range [0,%d]", fi.Name, longsSize, MaxLongsSize)
		}

		minTerm, err := readLengthPrefixed(termsIn)
		if err != nil {
			return nil, wrapCorrupt(err, "reading min-term for field %q", fi.Name)
		}
		maxTerm, err := readLengthPrefixed(termsIn)
		if err != nil {
			return nil, wrapCorrupt(err, "reading max-term for field %q", fi.Name)
		}

		if sumDocFreq < int64(docCount) {
			return nil, corruptf("field %q sum_doc_freq %d < doc_count %d", fi.Name, sumDocFreq, docCount)
		}
		if sumTotalTermFreq != -1 && sumTotalTermFreq < sumDocFreq {
			return nil, corruptf("field %q sum_total_term_freq %d < sum_doc_freq %d", fi.Name, sumTotalTermFreq, sumDocFreq)
		}

		if int(i) >= len(indexStartFPs) {
			return nil, corruptf("field %q has no matching terms-index entry", fi.Name)
		}

		meta := fieldMetadata{
			fieldInfo:        fi,
			numTerms:         numTerms,
			rootCode:         rootCode,
			sumTotalTermFreq: sumTotalTermFreq,
			sumDocFreq:       sumDocFreq,
			docCount:         docCount,
			longsSize:        longsSize,
			minTerm:          minTerm,
			maxTerm:          maxTerm,
			indexStartFP:     indexStartFPs[i],
		}

		fr, err := newFieldReader(r, meta)
		if err != nil {
			return nil, err
		}
		r.fields[fi.Name] = fr
		r.fieldOrder = append(r.fieldOrder, fi.Name)
	}

	return r, nil
}

func readLengthPrefixed(in input.Input) ([]byte, error) {
	length, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("negative length-prefixed byte count %d", length)
	}
	if length == 0 {
		return nil, nil
	}
	return in.ReadExact(int(length))
}

// Fields returns the names of all fields this reader indexes, in
// directory order.
func (r *Reader) Fields() []string {
	out := make([]string, len(r.fieldOrder))
	copy(out, r.fieldOrder)
	return out
}

// Size returns the number of indexed fields.
func (r *Reader) Size() int { return len(r.fieldOrder) }

// Terms returns the FieldReader for name, or nil if this segment does
// not index that field.
func (r *Reader) Terms(name string) (*FieldReader, error) {
	fr, ok := r.fields[name]
	if !ok {
		return nil, nil
	}
	return fr, nil
}

// FieldReader holds one field's root metadata (root block pointer,
// root FST arc via the field's own FST, counts, and min/max term)
// and is the factory for that field's term iterators.
type FieldReader struct {
	reader *Reader
	meta   fieldMetadata
	index  *fstx.FST
}

func newFieldReader(r *Reader, meta fieldMetadata) (*FieldReader, error) {
	fr := &FieldReader{reader: r, meta: meta}

	if len(meta.rootCode) == 0 {
		return nil, corruptf("field %q has empty root code", meta.fieldInfo.Name)
	}

	if meta.indexStartFP > 0 {
		if err := r.indexIn.Seek(meta.indexStartFP); err != nil {
			return nil, wrapCorrupt(err, "seeking to FST for field %q", meta.fieldInfo.Name)
		}
		fstLen, err := r.indexIn.ReadVInt()
		if err != nil {
			return nil, wrapCorrupt(err, "reading FST length for field %q", meta.fieldInfo.Name)
		}
		if fstLen < 0 {
			return nil, corruptf("field %q has negative FST length %d", meta.fieldInfo.Name, fstLen)
		}
		fstBytes, err := r.indexIn.ReadExact(int(fstLen))
		if err != nil {
			return nil, wrapCorrupt(err, "reading FST bytes for field %q", meta.fieldInfo.Name)
		}
		fst, err := fstx.Load(fstBytes)
		if err != nil {
			return nil, wrapCorrupt(err, "decoding FST for field %q", meta.fieldInfo.Name)
		}
		fr.index = fst
	}

	return fr, nil
}

func (fr *FieldReader) Name() string               { return fr.meta.fieldInfo.Name }
func (fr *FieldReader) NumTerms() int64             { return fr.meta.numTerms }
func (fr *FieldReader) SumTotalTermFreq() int64     { return fr.meta.sumTotalTermFreq }
func (fr *FieldReader) SumDocFreq() int64           { return fr.meta.sumDocFreq }
func (fr *FieldReader) DocCount() int32             { return fr.meta.docCount }
func (fr *FieldReader) Min() []byte                 { return fr.meta.minTerm }
func (fr *FieldReader) Max() []byte                 { return fr.meta.maxTerm }
func (fr *FieldReader) HasFreqs() bool              { return fr.meta.fieldInfo.IndexOptions.HasFreqs() }
func (fr *FieldReader) HasPositions() bool {
	return fr.meta.fieldInfo.IndexOptions >= postings.IndexOptionsDocsFreqsAndPositions
}
func (fr *FieldReader) HasOffsets() bool {
	return fr.meta.fieldInfo.IndexOptions >= postings.IndexOptionsDocsFreqsPositionsAndOffsets
}

// Iterator constructs a fresh term iterator for this field, cloning
// the reader's shared terms-in input.
func (fr *FieldReader) Iterator() (*TermIterator, error) {
	termsInClone, err := fr.reader.termsIn.Clone()
	if err != nil {
		return nil, err
	}
	return newTermIterator(fr, termsInClone)
}

// Stats performs a full depth-first walk of this field's block tree
// and returns the resulting report.
func (fr *FieldReader) Stats() (*Stats, error) {
	return computeStats(fr)
}
