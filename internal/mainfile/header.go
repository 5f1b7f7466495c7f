// Package mainfile implements the durable, atomically-swapped database file:
// a 16-byte header, a per-type record-count table, and entity sections in
// registration order, plus the single streaming rewrite engine every
// mutating operation (add/update/delete/filter/modify/vacuum) funnels
// through.
//
// Grounded on tqdb_core.c's write_header/read_header, open_for_read, and
// stream_modify, adapted to the atomic-rename pattern used by the teacher's
// storage/writer/writer.go.
package mainfile

import (
	"encoding/binary"
	"io"
)

// Magic identifies a TQDB main file ("TQDB" in ASCII, big-endian reading
// order matches tqdb_core.c's TQDB_MAGIC constant).
const Magic uint32 = 0x42445154

// Version is the current on-disk format version this package writes; it
// also accepts any file whose version is <= Version.
const Version uint16 = 1

// HeaderSize is the fixed byte size of Header on disk.
const HeaderSize = 16

// Header is the first 16 bytes of every main file. CRC covers every byte
// from offset HeaderSize to EOF (the per-type counts table plus every
// entity section) — never the header itself.
type Header struct {
	Magic    uint32
	Version  uint16
	Flags    uint16
	CRC      uint32
	Reserved uint32
}

func writeHeader(w io.Writer, h Header) error {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint16(b[6:8], h.Flags)
	binary.LittleEndian.PutUint32(b[8:12], h.CRC)
	binary.LittleEndian.PutUint32(b[12:16], h.Reserved)
	_, err := w.Write(b[:])
	return err
}

func readHeader(r io.Reader, h *Header) error {
	var b [HeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	h.Magic = binary.LittleEndian.Uint32(b[0:4])
	h.Version = binary.LittleEndian.Uint16(b[4:6])
	h.Flags = binary.LittleEndian.Uint16(b[6:8])
	h.CRC = binary.LittleEndian.Uint32(b[8:12])
	h.Reserved = binary.LittleEndian.Uint32(b[12:16])
	return nil
}
