package mainfile

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/registry"
)

// DefaultScratchSize is the split-in-half read/write scratch buffer size
// used while streaming the file when New is given a non-positive size. It
// is this package's own fallback; the root package's Configure passes its
// 8192-byte default instead.
const DefaultScratchSize = 64 * 1024

// Manager owns the three sibling paths (main, .tmp, .bak) and the streaming
// rewrite engine that is the only writer of the main file.
type Manager struct {
	dbPath, tmpPath, bakPath string
	reg                      *registry.Registry
	scratchSize              int
	logger                   *slog.Logger
}

// New returns a Manager for dbPath. tmpPath/bakPath default to
// dbPath+".tmp"/dbPath+".bak" when empty.
func New(dbPath, tmpPath, bakPath string, reg *registry.Registry, scratchSize int, logger *slog.Logger) *Manager {
	if scratchSize <= 0 {
		scratchSize = DefaultScratchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tmpPath == "" {
		tmpPath = dbPath + ".tmp"
	}
	if bakPath == "" {
		bakPath = dbPath + ".bak"
	}
	return &Manager{
		dbPath:      dbPath,
		tmpPath:     tmpPath,
		bakPath:     bakPath,
		reg:         reg,
		scratchSize: scratchSize,
		logger:      logger,
	}
}

// Path returns the main file's path.
func (m *Manager) Path() string { return m.dbPath }

// openForRead opens the main file, self-healing from a stale .tmp or .bak
// sibling left behind by a rewrite that crashed mid-rename, then validates
// the header. Returns errs.ErrNotFound when no file (main, tmp, or bak)
// exists, and errs.ErrCorrupt for a bad magic/version.
func (m *Manager) openForRead() (*os.File, Header, error) {
	f, err := os.Open(m.dbPath)
	if err != nil {
		if tmp, terr := os.Open(m.tmpPath); terr == nil {
			tmp.Close()
			_ = os.Rename(m.tmpPath, m.dbPath)
			f, err = os.Open(m.dbPath)
		} else if bak, berr := os.Open(m.bakPath); berr == nil {
			bak.Close()
			_ = os.Rename(m.bakPath, m.dbPath)
			f, err = os.Open(m.dbPath)
		}
	} else {
		_ = os.Remove(m.tmpPath)
	}

	if err != nil {
		return nil, Header{}, errs.ErrNotFound
	}

	var hdr Header
	if err := readHeader(f, &hdr); err != nil || hdr.Magic != Magic || hdr.Version > Version {
		f.Close()
		return nil, Header{}, fmt.Errorf("%w: bad main file header", errs.ErrCorrupt)
	}
	return f, hdr, nil
}

// readCounts reads the fixed-order, one-uint32-per-registered-trait counts
// table immediately following the header. A short read leaves the
// remaining counts at zero (a truncated file); a count exceeding its
// trait's declared MaxCount is treated as corruption rather than trusted,
// per tqdb_core.c's "c <= db->traits[i]->max_count" guard.
func (m *Manager) readCounts(f *os.File) ([]uint32, error) {
	n := m.reg.Count()
	counts := make([]uint32, n)
	var b [4]byte
	for i := 0; i < n; i++ {
		if _, err := f.Read(b[:]); err != nil {
			break
		}
		c := leUint32(b[:])
		trait, terr := m.reg.At(i)
		if terr != nil {
			continue
		}
		if c > trait.MaxCount() {
			return nil, fmt.Errorf("%w: count %d for type %q exceeds MaxCount %d", errs.ErrCorrupt, c, trait.TypeName(), trait.MaxCount())
		}
		counts[i] = c
	}
	return counts, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
