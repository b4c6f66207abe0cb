// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package wire implements the SSH wire primitives (RFC 4251 §5): big-endian
// u32 length-prefixed strings and integers, and the mpint encoding used by
// DSS/RSA public-key and private-key components. The blobs this module frames
// itself (PQ, hybrid and security-key public keys, signature blobs, and the
// PQ/hybrid private-key container) are built and parsed through a
// Writer/Reader pair from this package; classical public keys and
// certificates are marshaled by golang.org/x/crypto/ssh. Nothing here knows
// about key algorithms.
package wire

import (
	"encoding/binary"
	"errors"
	"math/big"
)

// ErrTruncated is returned when a Reader runs out of bytes mid-field.
var ErrTruncated = errors.New("wire: truncated buffer")

// Writer accumulates SSH wire-format fields into a single byte buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteByte appends a single raw byte.
func (w *Writer) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteRaw appends bytes with no length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteUint32 appends a bare big-endian u32 (used, e.g., for SK counters and
// as a length prefix primitive by WriteString).
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteString appends an SSH string: u32 length followed by the raw bytes.
func (w *Writer) WriteString(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteNameString appends name as an SSH string.
func (w *Writer) WriteNameString(name string) {
	w.WriteString([]byte(name))
}

// WriteMPInt appends an SSH multiple-precision integer: a string whose
// content is the big-endian magnitude of n, minimal length, with a leading
// 0x00 byte inserted if the high bit of the first byte would otherwise be
// set (so it isn't misread as negative). The sign of a negative n is not
// encoded. Per RFC 4251 §5, the encoding of zero is an empty string.
func (w *Writer) WriteMPInt(n *big.Int) {
	if n == nil || n.Sign() == 0 {
		w.WriteUint32(0)
		return
	}
	b := n.Bytes()
	if len(b) > 0 && b[0]&0x80 != 0 {
		padded := make([]byte, len(b)+1)
		copy(padded[1:], b)
		b = padded
	}
	w.WriteString(b)
}

// Reader consumes SSH wire-format fields from a byte buffer in order.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns (a view of) the unread tail of the buffer.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

// ReadByte reads a single raw byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.Len() < 1 {
		return 0, ErrTruncated
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadRaw reads exactly n raw bytes with no length prefix.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadUint32 reads a bare big-endian u32.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadRaw(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadString reads an SSH string: u32 length followed by that many bytes.
func (r *Reader) ReadString() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return r.ReadRaw(int(n))
}

// ReadNameString reads an SSH string and returns it as a string.
func (r *Reader) ReadNameString() (string, error) {
	b, err := r.ReadString()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadMPInt reads an SSH mpint as a *big.Int.
func (r *Reader) ReadMPInt() (*big.Int, error) {
	b, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
