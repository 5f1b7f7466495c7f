package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/acvigue/tqdb-go/internal/cache"
	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/mainfile"
	"github.com/acvigue/tqdb-go/internal/registry"
)

// Manager owns one WAL file alongside a mainfile.Manager, appending entries
// and periodically folding them back with CheckpointMerge.
type Manager struct {
	mu sync.Mutex

	path string
	reg  *registry.Registry
	main *mainfile.Manager
	c    *cache.Cache // nil when the cache layer is disabled
	log  *slog.Logger

	compress bool

	maxEntries uint32
	maxSize    int64

	entryCount      uint32
	fileSize        int64
	dbCRC           uint32
	recoveryPending bool
}

// Options configures a new Manager.
type Options struct {
	Path       string
	MaxEntries uint32
	MaxSize    int64
	Compress   bool
	Cache      *cache.Cache
	Logger     *slog.Logger
}

// Open opens (creating if necessary) the WAL at opts.Path and validates its
// header, mirroring tqdb_wal_recover: a missing or corrupt WAL is replaced
// with a fresh one stamped with the main file's current CRC; a WAL with
// pending entries is flagged recoveryPending until the caller's traits are
// registered and CheckRecovery runs the deferred checkpoint.
func Open(reg *registry.Registry, main *mainfile.Manager, opts Options) (*Manager, error) {
	if opts.MaxEntries == 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Manager{
		path:       opts.Path,
		reg:        reg,
		main:       main,
		c:          opts.Cache,
		log:        opts.Logger,
		compress:   opts.Compress,
		maxEntries: opts.MaxEntries,
		maxSize:    opts.MaxSize,
	}

	if err := m.recover(); err != nil {
		return nil, err
	}
	return m, nil
}

// recover validates the on-disk WAL header, or creates a fresh WAL stamped
// with the main file's current CRC if the file is missing or corrupt.
func (m *Manager) recover() error {
	f, err := os.Open(m.path)
	if err != nil {
		return m.create()
	}
	defer f.Close()

	var hdr Header
	if rerr := readHeader(f, &hdr); rerr != nil || hdr.Magic != Magic || hdr.Version > Version {
		f.Close()
		return m.create()
	}

	info, serr := f.Stat()
	if serr != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, serr)
	}

	m.dbCRC = hdr.DBCRC
	m.entryCount = hdr.EntryCount
	m.fileSize = info.Size()
	if m.entryCount > 0 {
		m.recoveryPending = true
	}
	return nil
}

// create truncates (or makes) the WAL file and writes a fresh header
// stamped with the main file's current CRC.
func (m *Manager) create() error {
	crc, err := m.computeDBCRC()
	if err != nil {
		return err
	}

	f, err := os.Create(m.path)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	defer f.Close()

	hdr := Header{Magic: Magic, Version: Version, DBCRC: crc}
	if err := writeHeader(f, hdr); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	m.dbCRC = crc
	m.entryCount = 0
	m.fileSize = HeaderSize
	m.recoveryPending = false
	return nil
}

// computeDBCRC streams the current main file through CRC32, matching
// tqdb_wal_compute_db_crc; a missing main file hashes as an empty stream.
func (m *Manager) computeDBCRC() (uint32, error) {
	f, err := os.Open(m.main.Path())
	if err != nil {
		return 0, nil
	}
	defer f.Close()

	h := crc32.NewIEEE()
	buf := make([]byte, 256)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, fmt.Errorf("%w: %v", errs.ErrIO, rerr)
		}
	}
	return h.Sum32(), nil
}

// CheckRecovery performs the deferred checkpoint once traits are
// registered. A WAL recovered with pending entries before any Register
// call cannot yet deserialize them; every data-path entry point
// (Add/Get/Update/Delete/Exists/Count/ForEach) calls this first.
func (m *Manager) CheckRecovery() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recoveryPending || m.reg.Count() == 0 {
		return nil
	}
	m.recoveryPending = false
	return m.checkpointLocked()
}

// shouldCheckpoint reports whether the configured entry-count or
// file-size threshold has been crossed.
func (m *Manager) shouldCheckpoint() bool {
	return m.entryCount >= m.maxEntries || m.fileSize >= m.maxSize
}

// Stats returns the current entry count and file size.
func (m *Manager) Stats() (entryCount uint32, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entryCount, m.fileSize
}

// Checkpoint folds every pending WAL entry into the main file and resets
// the WAL to empty.
func (m *Manager) Checkpoint() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpointLocked()
}

func writeHeader(w io.Writer, h Header) error {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint16(b[6:8], h.Flags)
	binary.LittleEndian.PutUint32(b[8:12], h.DBCRC)
	binary.LittleEndian.PutUint32(b[12:16], h.EntryCount)
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
	h.DBCRC = binary.LittleEndian.Uint32(b[8:12])
	h.EntryCount = binary.LittleEndian.Uint32(b[12:16])
	return nil
}

// rewriteEntryCount patches just the entry-count field of the header in
// place, used after every successful append.
func rewriteEntryCount(f *os.File, count uint32) error {
	if _, err := f.Seek(12, io.SeekStart); err != nil {
		return err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], count)
	_, err := f.Write(b[:])
	return err
}
