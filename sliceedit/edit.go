// Copyright 2023 Jesus Ruiz. All rights reserved.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package sliceedit extends the functionalities of rsc.io/edit to
// implement eficient buffered editing of strings and byte slices.
// Edits are expressed against offsets of the original data and applied
// in a single pass, so callers can scan the source once and queue every change.
package sliceedit

import "rsc.io/edit"

// A Buffer is a queue of edits to apply to a given byte slice.
// Queued edits must not overlap; rsc.io/edit panics if they do.
type Buffer struct {
	ed    *edit.Buffer
	buf   []byte
	edits int
}

// NewBuffer returns a new buffer to accumulate changes to an initial data slice.
// The returned buffer maintains a reference to the data, so the caller must ensure
// the data is not modified until after the Buffer is done being used.
func NewBuffer(buf []byte) *Buffer {
	b := &Buffer{}
	b.buf = buf // Just for our internal queries, we do not modify anything in it
	b.ed = edit.NewBuffer(buf)
	return b
}

// NewBufferString is like NewBuffer for a string source.
func NewBufferString(s string) *Buffer {
	return NewBuffer([]byte(s))
}

// Delete deletes the original bytes in [start, end).
func (b *Buffer) Delete(start, end int) {
	if start >= end {
		return
	}
	b.ed.Delete(start, end)
	b.edits++
}

// Replace replaces the original bytes in [start, end) with new.
func (b *Buffer) Replace(start, end int, new string) {
	b.ed.Replace(start, end, new)
	b.edits++
}

// Insert inserts new at offset pos of the original data.
func (b *Buffer) Insert(pos int, new string) {
	b.ed.Insert(pos, new)
	b.edits++
}

// Edits returns the number of queued edits.
func (b *Buffer) Edits() int {
	return b.edits
}

// String returns a string containing the original data
// with the queued edits applied.
func (b *Buffer) String() string {
	if b.edits == 0 {
		return string(b.buf)
	}
	return b.ed.String()
}
