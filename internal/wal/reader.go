package wal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/ioframe"
	"github.com/acvigue/tqdb-go/internal/payload"
)

// FindResult distinguishes "not present in the WAL at all" (the caller
// should fall through to the main file) from "the WAL explicitly records
// this id as deleted" (the caller must not fall through).
type FindResult int

const (
	NotInWAL FindResult = iota
	FoundInWAL
	DeletedInWAL
)

// rawEntry is one decoded, CRC-verified WAL record.
type rawEntry struct {
	op      Op
	typeIdx int
	id      uint32
	data    []byte // raw bytes after payload.Decode; nil for deletes
}

// scan reads up to the header's entry_count entries from the WAL file in
// order, verifying each one's CRC. Bytes past the counted entries are
// ignored. The first entry that is short or whose CRC fails to verify ends
// the scan there — the WAL's effective length is truncated at that point
// rather than trusting anything past a corrupt entry.
func (m *Manager) scan() ([]rawEntry, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	if _, err := f.Seek(HeaderSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	var entries []rawEntry
	for uint32(len(entries)) < m.entryCount {
		var crcBuf [4]byte
		if _, rerr := io.ReadFull(f, crcBuf[:]); rerr != nil {
			break
		}
		entryCRC := binary.LittleEndian.Uint32(crcBuf[:])

		var fixed [entryFixedSize - 4]byte
		if _, rerr := io.ReadFull(f, fixed[:]); rerr != nil {
			break
		}
		dataLen := binary.LittleEndian.Uint32(fixed[6:10])

		data := make([]byte, dataLen)
		if dataLen > 0 {
			if _, rerr := io.ReadFull(f, data); rerr != nil {
				break
			}
		}

		body := make([]byte, 0, len(fixed)+len(data))
		body = append(body, fixed[:]...)
		body = append(body, data...)
		if crc32.ChecksumIEEE(body) != entryCRC {
			m.log.Warn("wal entry failed crc check, truncating effective wal length here")
			break
		}

		typeByte := fixed[1]
		compressed := typeByte&compressedBit != 0
		entries = append(entries, rawEntry{
			op:      Op(fixed[0]),
			typeIdx: int(typeByte &^ compressedBit),
			id:      binary.LittleEndian.Uint32(fixed[2:6]),
			data:    decodeOrNil(data, compressed),
		})
	}
	return entries, nil
}

func decodeOrNil(data []byte, compressed bool) []byte {
	if len(data) == 0 {
		return nil
	}
	raw, err := payload.Decode(data, compressed)
	if err != nil {
		return nil
	}
	return raw
}

// Find looks up (typeIdx, id) in the WAL, returning the last recorded
// operation for that id.
func (m *Manager) Find(typeIdx int, id uint32) (entity any, result FindResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entryCount == 0 {
		return nil, NotInWAL, nil
	}

	entries, err := m.scan()
	if err != nil {
		return nil, NotInWAL, err
	}

	var last *rawEntry
	for i := range entries {
		e := &entries[i]
		if e.typeIdx == typeIdx && e.id == id {
			last = e
		}
	}
	if last == nil {
		return nil, NotInWAL, nil
	}
	if last.op == OpDelete {
		return nil, DeletedInWAL, nil
	}

	trait, terr := m.reg.At(typeIdx)
	if terr != nil {
		return nil, NotInWAL, terr
	}
	r := ioframe.NewReader(bytes.NewReader(last.data), make([]byte, len(last.data)+1))
	decoded := trait.Read(r)
	if r.Err() != nil {
		return nil, NotInWAL, fmt.Errorf("%w: %v", errs.ErrCorrupt, r.Err())
	}
	return decoded, FoundInWAL, nil
}
