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

// Package codec implements the small slice of Lucene-style codec
// header/footer handling the block-tree dictionary needs: header
// validation, footer parsing, checksum retrieval (not verification;
// the checksum algorithm itself is out of scope), and
// the directory-offset convention shared by the terms and terms-index
// files.
//
// Layout mirrors vendor/github.com/blugelabs/ice/footer.go: fixed-width
// fields read back-to-front from the end of the data, big-endian
// throughout.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/heroiclabs/blocktree/input"
)

// HeaderMagic prefixes every codec header, matching the magic number
// Lucene's CodecUtil uses to distinguish a real codec header from
// random bytes.
const HeaderMagic uint32 = 0x3fd76c17

// FooterMagic closes every codec footer.
const FooterMagic uint32 = 0x3fd76c17 ^ 0xffffffff

// FooterLength is the fixed size, in bytes, of the trailing footer:
// magic(4) + algorithmID(4) + checksum(8).
const FooterLength = 4 + 4 + 8

// Header is the fixed-format preamble of every block-tree file.
type Header struct {
	Name      string
	Version   int32
	SegmentID [16]byte
	Suffix    string
}

// ReadHeader reads and validates the codec header's magic number, then
// decodes name/version/segment id/suffix. Callers compare the result
// against their expectations with CheckHeader.
func ReadHeader(in input.Input) (*Header, error) {
	magicBytes, err := in.ReadExact(4)
	if err != nil {
		return nil, err
	}
	magic := binary.BigEndian.Uint32(magicBytes)
	if magic != HeaderMagic {
		return nil, fmt.Errorf("codec header mismatch: read %x, expected %x (corrupt file, or not a block-tree file)", magic, HeaderMagic)
	}

	name, err := readString(in)
	if err != nil {
		return nil, err
	}

	versionBytes, err := in.ReadExact(4)
	if err != nil {
		return nil, err
	}
	version := int32(binary.BigEndian.Uint32(versionBytes))

	var segID [16]byte
	idBytes, err := in.ReadExact(16)
	if err != nil {
		return nil, err
	}
	copy(segID[:], idBytes)

	suffix, err := readString(in)
	if err != nil {
		return nil, err
	}

	return &Header{Name: name, Version: version, SegmentID: segID, Suffix: suffix}, nil
}

// CheckHeader validates a decoded header against the expected codec
// name, inclusive version range, segment id, and suffix.
func CheckHeader(h *Header, name string, minVersion, maxVersion int32, segmentID [16]byte, suffix string) error {
	if h.Name != name {
		return fmt.Errorf("codec mismatch: file codec %q, expected %q", h.Name, name)
	}
	if h.Version < minVersion || h.Version > maxVersion {
		return fmt.Errorf("version out of range: got %d, expected [%d,%d]", h.Version, minVersion, maxVersion)
	}
	if h.SegmentID != segmentID {
		return fmt.Errorf("segment id mismatch: file does not belong to this segment")
	}
	if h.Suffix != suffix {
		return fmt.Errorf("suffix mismatch: file suffix %q, expected %q", h.Suffix, suffix)
	}
	return nil
}

func readString(in input.Input) (string, error) {
	length, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("invalid string length %d", length)
	}
	b, err := in.ReadExact(int(length))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Footer is the trailing {magic, algorithmID, checksum} block every
// block-tree file ends with.
type Footer struct {
	AlgorithmID int32
	Checksum    int64
}

// ReadFooter reads the footer located at the input's current position
// (callers first seek to Length()-FooterLength).
func ReadFooter(in input.Input) (*Footer, error) {
	magicBytes, err := in.ReadExact(4)
	if err != nil {
		return nil, err
	}
	magic := binary.BigEndian.Uint32(magicBytes)
	if magic != FooterMagic {
		return nil, fmt.Errorf("footer magic mismatch: read %x, expected %x (truncated or corrupt file)", magic, FooterMagic)
	}
	algoBytes, err := in.ReadExact(4)
	if err != nil {
		return nil, err
	}
	algoID := int32(binary.BigEndian.Uint32(algoBytes))
	checksum, err := in.ReadLong()
	if err != nil {
		return nil, err
	}
	return &Footer{AlgorithmID: algoID, Checksum: checksum}, nil
}

// RetrieveChecksum seeks to and parses the footer at the end of in,
// returning the stored checksum without verifying it against the
// file's actual contents, a cheap truncation check only. Verifying
// the checksum is a separate algorithm's job, not the dictionary's.
func RetrieveChecksum(in input.Input) (int64, error) {
	if in.Length() < FooterLength {
		return 0, fmt.Errorf("file length %d smaller than footer length %d: truncated", in.Length(), FooterLength)
	}
	if err := in.Seek(in.Length() - FooterLength); err != nil {
		return 0, err
	}
	footer, err := ReadFooter(in)
	if err != nil {
		return 0, err
	}
	return footer.Checksum, nil
}

// SeekDirectory seeks in to, and returns, the per-field directory
// offset stored in the 8 bytes immediately preceding the footer.
//
// This always recomputes the position from
// in.Length()-FooterLength-8 rather than trusting any caller-supplied
// offset; there is no offset parameter here for exactly that reason,
// accepting one would invite a caller to believe it has effect.
func SeekDirectory(in input.Input) (int64, error) {
	pos := in.Length() - FooterLength - 8
	if pos < 0 {
		return 0, fmt.Errorf("file length %d too small to hold a directory offset and footer", in.Length())
	}
	if err := in.Seek(pos); err != nil {
		return 0, err
	}
	offset, err := in.ReadLong()
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset > pos {
		return 0, fmt.Errorf("invalid directory offset %d (file length %d)", offset, in.Length())
	}
	if err := in.Seek(offset); err != nil {
		return 0, err
	}
	return offset, nil
}
