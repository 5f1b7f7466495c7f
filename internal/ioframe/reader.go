package ioframe

import (
	"fmt"
	"hash/crc32"
	"io"
)

// Reader fills a caller-owned buffer on demand from an io.Reader, feeding
// every byte it hands out (including skipped bytes) into a running CRC32
// seed, with a sticky error flag mirroring Writer's.
type Reader struct {
	r       io.Reader
	buf     []byte
	pos     int
	filled  int
	crc     uint32
	err     error
	nread   int64
}

// NewReader wraps r with a CRC-tracked buffer of buf.
func NewReader(r io.Reader, buf []byte) *Reader {
	return &Reader{r: r, buf: buf, crc: 0xFFFFFFFF}
}

// Err returns the sticky error, if any primitive read has failed.
func (r *Reader) Err() error { return r.err }

// CRC returns the finalized (one's-complemented) running CRC32.
func (r *Reader) CRC() uint32 { return r.crc ^ 0xFFFFFFFF }

// fill refills the internal buffer; a zero-length read is treated as
// unexpected EOF and sets the sticky error, mirroring the C reader's
// fread-returns-zero convention.
func (r *Reader) fill() {
	n, err := r.r.Read(r.buf)
	r.filled = n
	r.pos = 0
	if n == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
	}
}

// ReadRaw reads exactly len(p) bytes, feeding them into the CRC.
func (r *Reader) ReadRaw(p []byte) {
	if r.err != nil {
		return
	}
	want := len(p)
	written := 0
	for written < want && r.err == nil {
		avail := r.filled - r.pos
		if avail > 0 {
			n := want - written
			if n > avail {
				n = avail
			}
			copy(p[written:], r.buf[r.pos:r.pos+n])
			r.pos += n
			written += n
			continue
		}
		r.fill()
	}
	if r.err == nil {
		r.crc = crc32.Update(r.crc, crc32.IEEETable, p)
		r.nread += int64(len(p))
	}
}

func (r *Reader) ReadU8() uint8 {
	var b [1]byte
	r.ReadRaw(b[:])
	return b[0]
}

func (r *Reader) ReadU16() uint16 {
	var b [2]byte
	r.ReadRaw(b[:])
	return ByteOrder.Uint16(b[:])
}

func (r *Reader) ReadU32() uint32 {
	var b [4]byte
	r.ReadRaw(b[:])
	return ByteOrder.Uint32(b[:])
}

func (r *Reader) ReadI32() int32 { return int32(r.ReadU32()) }

func (r *Reader) ReadI64() int64 {
	var b [8]byte
	r.ReadRaw(b[:])
	return int64(ByteOrder.Uint64(b[:]))
}

// ReadStr reads a 16-bit length prefix followed by that many bytes.
func (r *Reader) ReadStr() string {
	n := r.ReadU16()
	if r.err != nil {
		return ""
	}
	if n > MaxStringLen {
		r.err = fmt.Errorf("ioframe: string length %d exceeds max %d", n, MaxStringLen)
		return ""
	}
	if n == 0 {
		return ""
	}
	b := make([]byte, n)
	r.ReadRaw(b)
	if r.err != nil {
		return ""
	}
	return string(b)
}

// ReadBytes reads a 32-bit length prefix followed by that many raw bytes.
func (r *Reader) ReadBytes() []byte {
	n := r.ReadU32()
	if r.err != nil {
		return nil
	}
	if n == 0 {
		return nil
	}
	b := make([]byte, n)
	r.ReadRaw(b)
	if r.err != nil {
		return nil
	}
	return b
}

// Skip fast-forwards n bytes, still feeding them into the running CRC —
// the CRC is over the byte stream, not over what the caller materializes.
func (r *Reader) Skip(n int) {
	for n > 0 && r.err == nil {
		avail := r.filled - r.pos
		if avail > 0 {
			k := n
			if k > avail {
				k = avail
			}
			r.crc = crc32.Update(r.crc, crc32.IEEETable, r.buf[r.pos:r.pos+k])
			r.pos += k
			n -= k
			continue
		}
		r.fill()
	}
}

// SkipStr reads a length prefix and skips that many bytes without
// allocating a string.
func (r *Reader) SkipStr() {
	n := r.ReadU16()
	if r.err != nil {
		return
	}
	if n > MaxStringLen {
		r.err = fmt.Errorf("ioframe: string length %d exceeds max %d", n, MaxStringLen)
		return
	}
	if n > 0 {
		r.Skip(int(n))
	}
}
