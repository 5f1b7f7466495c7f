package wal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/acvigue/tqdb-go/internal/cache"
	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/ioframe"
	"github.com/acvigue/tqdb-go/internal/payload"
)

// Append serializes entity (nil for OpDelete) and appends one entry to the
// WAL, then triggers a checkpoint if the configured thresholds have been
// crossed.
//
// Each entry's CRC is computed fresh over just that entry's bytes — not
// continued from a running CRC across entries — matching tqdb_wal_append,
// and it covers op, type index, id, length, and payload together so a
// truncated or bit-flipped entry is caught on the next read.
func (m *Manager) Append(typeIdx int, id uint32, op Op, entity any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var raw []byte
	if op != OpDelete {
		trait, err := m.reg.At(typeIdx)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		w := ioframe.NewWriter(&buf, make([]byte, 4096))
		trait.Write(w, entity)
		w.Flush()
		if w.Err() != nil {
			return fmt.Errorf("%w: %v", errs.ErrIO, w.Err())
		}
		raw = buf.Bytes()
	}

	data, compressed := payload.Encode(raw, m.compress)

	typeByte := uint8(typeIdx)
	if compressed {
		typeByte |= compressedBit
	}

	body := make([]byte, entryFixedSize-4+len(data))
	body[0] = uint8(op)
	body[1] = typeByte
	binary.LittleEndian.PutUint32(body[2:6], id)
	binary.LittleEndian.PutUint32(body[6:10], uint32(len(data)))
	copy(body[10:], data)

	crc := crc32.ChecksumIEEE(body)
	var crcBytes [4]byte
	binary.LittleEndian.PutUint32(crcBytes[:], crc)

	if _, err := os.Stat(m.path); err != nil {
		// The WAL file is missing (removed out from under us, or this is
		// the first append after a fresh create() raced with an external
		// deletion) — recreate it with a fresh header stamped with the
		// main file's current CRC, matching tqdb_wal.c's recreate-on-missing
		// append path.
		if err := m.create(); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	defer f.Close()

	entryStart, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	if _, err := f.Write(crcBytes[:]); err != nil {
		_ = f.Truncate(entryStart)
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Truncate(entryStart)
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	m.entryCount++
	m.fileSize = entryStart + 4 + int64(len(body))

	if err := rewriteEntryCount(f, m.entryCount); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	if m.c != nil {
		if op == OpDelete {
			m.c.Invalidate(typeIdx, id)
		} else {
			m.c.Put(typeIdx, id, entity, cache.Op(op))
		}
	}

	if m.shouldCheckpoint() {
		return m.checkpointLocked()
	}
	return nil
}
