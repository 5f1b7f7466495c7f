// Package ioframe implements the framed, CRC-tracked binary I/O primitives
// that every persistent TQDB component is built on: a buffered writer and
// reader pair threading one running IEEE-802.3 CRC32 through every byte
// that passes through them, with a sticky error flag so callers can chain
// primitive calls without checking an error after each one.
//
// Grounded on tqdb_binary_io.c (the buffered-flush writer, the fill-on-demand
// reader, the skip-still-feeds-the-CRC rule) and on the framing conventions
// of internal/wal/types.go (fixed-width little-endian primitives, length-
// prefixed strings).
package ioframe

import (
	"encoding/binary"
	"hash/crc32"
	"io"
)

// ByteOrder is the byte order used for every on-disk integer.
var ByteOrder = binary.LittleEndian

// MaxStringLen caps a single serialized string, matching TQDB_MAX_STRING_LEN
// in the original C implementation.
const MaxStringLen = 4096

// Writer buffers writes to an io.Writer, feeding every byte into a running
// CRC32 seed and flushing to the underlying writer only when the buffer
// fills or a write would not fit in it.
type Writer struct {
	w       io.Writer
	buf     []byte
	pos     int
	crc     uint32
	err     error
	written int64
}

// NewWriter wraps w with a CRC-tracked buffer of buf (which the caller
// owns and may reuse between writers; buf's length becomes the internal
// buffer size).
func NewWriter(w io.Writer, buf []byte) *Writer {
	return &Writer{w: w, buf: buf, crc: 0xFFFFFFFF}
}

// Err returns the sticky error, if any primitive write has failed.
func (w *Writer) Err() error { return w.err }

// Written returns the number of bytes handed to Write/WriteX so far,
// including bytes still sitting in the internal buffer.
func (w *Writer) Written() int64 { return w.written }

// CRC returns the finalized (one's-complemented) running CRC32.
func (w *Writer) CRC() uint32 { return w.crc ^ 0xFFFFFFFF }

// Flush pushes any buffered bytes to the underlying writer.
func (w *Writer) Flush() {
	if w.err != nil || w.pos == 0 {
		return
	}
	if _, err := w.w.Write(w.buf[:w.pos]); err != nil {
		w.err = err
	}
	w.pos = 0
}

// WriteRaw writes len(p) bytes, updating the CRC over every byte regardless
// of whether the write is buffered, bypassed, or fails partway.
func (w *Writer) WriteRaw(p []byte) {
	if w.err != nil {
		return
	}
	w.crc = crc32.Update(w.crc, crc32.IEEETable, p)
	w.written += int64(len(p))

	if len(p) <= len(w.buf)-w.pos {
		copy(w.buf[w.pos:], p)
		w.pos += len(p)
		return
	}

	w.Flush()
	if w.err != nil {
		return
	}

	if len(p) >= len(w.buf) {
		if _, err := w.w.Write(p); err != nil {
			w.err = err
		}
		return
	}

	copy(w.buf, p)
	w.pos = len(p)
}

func (w *Writer) WriteU8(v uint8) { w.WriteRaw([]byte{v}) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	ByteOrder.PutUint16(b[:], v)
	w.WriteRaw(b[:])
}

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	ByteOrder.PutUint32(b[:], v)
	w.WriteRaw(b[:])
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteI64(v int64) {
	var b [8]byte
	ByteOrder.PutUint64(b[:], uint64(v))
	w.WriteRaw(b[:])
}

// WriteStr writes a 16-bit length prefix followed by the string's bytes,
// truncating to MaxStringLen (and to 0xFFFF, which MaxStringLen is already
// well under).
func (w *Writer) WriteStr(s string) {
	b := []byte(s)
	if len(b) > MaxStringLen {
		b = b[:MaxStringLen]
	}
	w.WriteU16(uint16(len(b)))
	if len(b) > 0 {
		w.WriteRaw(b)
	}
}

// WriteBytes writes a 32-bit length prefix followed by raw bytes, used for
// entity payloads whose length is not known to fit in 16 bits (WAL entries,
// optionally-compressed payloads).
func (w *Writer) WriteBytes(b []byte) {
	w.WriteU32(uint32(len(b)))
	if len(b) > 0 {
		w.WriteRaw(b)
	}
}
