/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package wire implements the small length-prefixed buffered-primitive
// codec that tlv, template, ebox and recovery build on. It stands in
// for the SSH-style buffered serializer pivy builds its wire format on:
// no available library exports pivy's exact sshbuf semantics, so this
// is a narrow, standard-library primitive layer (see DESIGN.md).
package wire

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// ErrTruncated is returned whenever a Get* call needs more bytes than
// remain in the buffer.
var ErrTruncated = fmt.Errorf("wire: truncated")

// Reader parses length-prefixed primitives out of a byte slice. All
// reads are bounds-checked against the slice the Reader was created
// with; no read may run past it.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps b for sequential reads. b is not copied or retained
// beyond the Reader's lifetime in any way that would let a caller
// mutate state out from under an in-progress parse.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.off }

// Bytes returns the remaining unread bytes without consuming them.
func (r *Reader) Bytes() []byte { return r.buf[r.off:] }

func (r *Reader) need(n int) error {
	if r.Len() < n {
		return ErrTruncated
	}
	return nil
}

// U8 reads a single byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

// U32 reads a big-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// U64 reads a big-endian uint64.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// Fixed reads exactly n raw bytes with no length prefix, e.g. a GUID.
func (r *Reader) Fixed(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := append([]byte(nil), r.buf[r.off:r.off+n]...)
	r.off += n
	return v, nil
}

// String reads a u32-length-prefixed byte string, the SSH wire
// convention this package mirrors.
func (r *Reader) String() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	return r.Fixed(int(n))
}

// Bignum reads a u32-length-prefixed big-endian unsigned integer, used
// to carry EC point coordinates when a part is re-encoded in a form
// that cannot be passed through as raw compressed-point bytes.
func (r *Reader) Bignum() (*big.Int, error) {
	b, err := r.String()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// Writer builds up length-prefixed primitives into a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the buffer written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// PutU8 appends a single byte.
func (w *Writer) PutU8(v uint8) { w.buf = append(w.buf, v) }

// PutU32 appends a big-endian uint32.
func (w *Writer) PutU32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// PutU64 appends a big-endian uint64.
func (w *Writer) PutU64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// PutFixed appends raw bytes with no length prefix.
func (w *Writer) PutFixed(b []byte) { w.buf = append(w.buf, b...) }

// PutString appends a u32-length-prefixed byte string.
func (w *Writer) PutString(b []byte) {
	w.PutU32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// PutBignum appends a big-endian unsigned integer as a length-prefixed
// string, the counterpart to Reader.Bignum.
func (w *Writer) PutBignum(n *big.Int) {
	if n == nil || n.Sign() == 0 {
		w.PutString(nil)
		return
	}
	w.PutString(n.Bytes())
}
