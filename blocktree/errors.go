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

import "fmt"

// Kind classifies a blocktree.Error into one of a small set of
// reasons. I/O errors from the input layer are never wrapped in a
// Kind; they propagate unchanged.
type Kind int

const (
	// KindCorruptIndex marks any on-disk invariant violation: bad
	// magic, bad version, bad counts, unknown field number, duplicate
	// field, invalid flag byte, missing footer.
	KindCorruptIndex Kind = iota
	// KindIllegalState marks API misuse, e.g. iterating without a
	// loaded terms index, or a stats invariant violated (treated as a
	// bug, not user error, but surfaced the same
	// way since both indicate the reader was driven incorrectly).
	KindIllegalState
	// KindIllegalArgument marks a caller-supplied field name unknown
	// to this reader.
	KindIllegalArgument
	// KindUnsupportedOperation marks seek_exact_ord, which this codec
	// never supports (it does not index ordinals).
	KindUnsupportedOperation
)

func (k Kind) String() string {
	switch k {
	case KindCorruptIndex:
		return "CorruptIndex"
	case KindIllegalState:
		return "IllegalState"
	case KindIllegalArgument:
		return "IllegalArgument"
	case KindUnsupportedOperation:
		return "UnsupportedOperation"
	default:
		return "Unknown"
	}
}

// Error is the block-tree dictionary's error type. Grounded on
// heroiclabs-nakama/server/db_error.go's statusError: a small struct
// pairing a classification with a message and an optional cause,
// exposing Unwrap so callers can still errors.Is/As through to the
// underlying I/O error when there is one.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func corruptf(format string, args ...interface{}) error {
	return &Error{Kind: KindCorruptIndex, Msg: fmt.Sprintf(format, args...)}
}

func illegalStatef(format string, args ...interface{}) error {
	return &Error{Kind: KindIllegalState, Msg: fmt.Sprintf(format, args...)}
}

func illegalArgumentf(format string, args ...interface{}) error {
	return &Error{Kind: KindIllegalArgument, Msg: fmt.Sprintf(format, args...)}
}

func unsupportedf(format string, args ...interface{}) error {
	return &Error{Kind: KindUnsupportedOperation, Msg: fmt.Sprintf(format, args...)}
}

func wrapCorrupt(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindCorruptIndex, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
