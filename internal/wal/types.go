// Package wal implements TQDB's write-ahead log: entities are appended here
// first and only folded into the main file when a checkpoint runs, so a
// burst of writes costs one small append instead of a full file rewrite.
//
// Grounded on tqdb_wal.c — the 16-byte header, the per-entry layout, the
// entry-count/size checkpoint thresholds, and the deferred-recovery gate
// (a WAL recovered before any trait is registered sits pending until the
// first data-path call after registration).
package wal

// Magic identifies a TQDB WAL file, matching tqdb_wal.c's TQDB_WAL_MAGIC.
const Magic uint32 = 0x4C415754

// Version is the on-disk WAL format version this package writes.
const Version uint16 = 1

// HeaderSize is the fixed byte size of the WAL header.
const HeaderSize = 16

// DefaultMaxEntries and DefaultMaxSize are the thresholds a WAL is
// auto-checkpointed at when Open is given a zero value for either. They are
// this package's own fallback; the root package's Configure passes its
// 100-entry / 65536-byte defaults instead.
const (
	DefaultMaxEntries = 1000
	DefaultMaxSize    = 4 * 1024 * 1024
)

// Header is the first 16 bytes of a WAL file.
type Header struct {
	Magic      uint32
	Version    uint16
	Flags      uint16
	DBCRC      uint32
	EntryCount uint32
}

// Op names what a WAL entry does to (type_idx, id).
type Op uint8

const (
	OpAdd Op = iota + 1
	OpUpdate
	OpDelete
)

// compressedBit is stashed in the otherwise-unused high bit of an entry's
// type-index byte (registry.MaxTypes is 8, well under 0x80) to record
// whether its payload was snappy-compressed, without widening the entry
// layout.
const compressedBit = 0x80

// entryFixedSize is the per-entry framing before the payload: entry_crc(4)
// + op(1) + type_idx(1) + id(4) + data_len(4).
const entryFixedSize = 14
