package mainfile

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/ioframe"
	"github.com/acvigue/tqdb-go/internal/registry"
)

// perTypeFunc streams the existing records of one registered type (reading
// `existing` entities from r when hasSrc is true) and writes whatever
// should survive through w, returning the final record count for that
// type. It is called once per registered type, in registration order.
//
// Both Rewrite (single add/update/delete/filter/modify) and CheckpointMerge
// (a whole batch of WAL overrides) are one call into streamEngine with a
// differently-shaped perTypeFunc — the C implementation had two largely
// duplicated copies of this skeleton (stream_modify and the body of
// tqdb_checkpoint_merge); this Go port keeps it as a single engine.
type perTypeFunc func(typeIdx int, trait registry.Trait, hasSrc bool, existing uint32, r *ioframe.Reader, w *ioframe.Writer) uint32

// streamEngine drives one full read-old/write-new pass over every
// registered type and atomically swaps the result into place. The header
// CRC is always recomputed from the final on-disk bytes after the counts
// table is fixed up, and the destination file is fsynced before the
// rename sequence begins.
func (m *Manager) streamEngine(process perTypeFunc) error {
	half := m.scratchSize / 2
	readBuf := make([]byte, half)
	writeBuf := make([]byte, half)

	src, _, srcErr := m.openForRead()
	hasSrc := srcErr == nil
	if srcErr != nil && srcErr != errs.ErrNotFound {
		return srcErr
	}
	if hasSrc {
		defer src.Close()
	}

	dst, err := os.Create(m.tmpPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	abort := func(cause error) error {
		dst.Close()
		os.Remove(m.tmpPath)
		return cause
	}

	if err := writeHeader(dst, Header{Magic: Magic, Version: Version}); err != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, err))
	}

	w := ioframe.NewWriter(dst, writeBuf)

	n := m.reg.Count()
	counts := make([]uint32, n)
	if hasSrc {
		var b [4]byte
		for i := 0; i < n; i++ {
			if _, rerr := src.Read(b[:]); rerr != nil {
				break
			}
			c := leUint32(b[:])
			trait, terr := m.reg.At(i)
			if terr != nil {
				continue
			}
			if c > trait.MaxCount() {
				return abort(fmt.Errorf("%w: count %d for type %q exceeds MaxCount %d", errs.ErrCorrupt, c, trait.TypeName(), trait.MaxCount()))
			}
			counts[i] = c
		}
	}

	countsPos, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, err))
	}
	for i := 0; i < n; i++ {
		w.WriteU32(0)
	}

	var r *ioframe.Reader
	if hasSrc {
		r = ioframe.NewReader(src, readBuf)
	}

	actualCounts := make([]uint32, n)
	m.reg.Each(func(typeIdx int, trait registry.Trait) {
		actualCounts[typeIdx] = process(typeIdx, trait, hasSrc, counts[typeIdx], r, w)
	})

	if hasSrc && r.Err() != nil {
		m.logger.Warn("main file truncated mid-rewrite, aborting swap", "error", r.Err())
		return abort(fmt.Errorf("%w: %v", errs.ErrCorrupt, r.Err()))
	}
	if werr := w.Err(); werr != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, werr))
	}
	w.Flush()
	if werr := w.Err(); werr != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, werr))
	}

	if _, serr := dst.Seek(countsPos, io.SeekStart); serr != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, serr))
	}
	for i := 0; i < n; i++ {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], actualCounts[i])
		if _, werr := dst.Write(b[:]); werr != nil {
			return abort(fmt.Errorf("%w: %v", errs.ErrIO, werr))
		}
	}

	crc, cerr := trailingCRC(dst, HeaderSize)
	if cerr != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, cerr))
	}
	if _, serr := dst.Seek(8, io.SeekStart); serr != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, serr))
	}
	var crcBytes [4]byte
	binary.LittleEndian.PutUint32(crcBytes[:], crc)
	if _, werr := dst.Write(crcBytes[:]); werr != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, werr))
	}

	if serr := dst.Sync(); serr != nil {
		return abort(fmt.Errorf("%w: %v", errs.ErrIO, serr))
	}
	if cerr := dst.Close(); cerr != nil {
		os.Remove(m.tmpPath)
		return fmt.Errorf("%w: %v", errs.ErrIO, cerr)
	}
	if hasSrc {
		src.Close()
	}

	return m.swap()
}

// swap performs the atomic rename sequence: main -> .bak, .tmp -> main,
// rolling .bak back on failure so a crash never leaves the dataset
// unreadable.
func (m *Manager) swap() error {
	_ = os.Remove(m.bakPath)
	hadMain := true
	if err := os.Rename(m.dbPath, m.bakPath); err != nil {
		hadMain = false
	}
	if err := os.Rename(m.tmpPath, m.dbPath); err != nil {
		if hadMain {
			_ = os.Rename(m.bakPath, m.dbPath)
		}
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	_ = os.Remove(m.bakPath)
	return nil
}

func destroy(t registry.Trait, entity any) {
	if d, ok := t.(registry.Destroyer); ok {
		d.Destroy(entity)
	}
}

// trailingCRC computes the IEEE CRC32 of f's bytes from offset `from` to
// EOF, leaving the file's position past EOF; callers reposition afterward.
func trailingCRC(f *os.File, from int64) (uint32, error) {
	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return 0, err
	}
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}
