// Package errs holds the sentinel errors shared by every storage-engine
// layer (registry, main-file manager, WAL, cache). They live in their own
// leaf package so that internal subpackages and the root tqdb package can
// both depend on the same error identities without an import cycle; the
// root package re-exports each one as e.g. tqdb.ErrNotFound.
package errs

import "errors"

var (
	// ErrInvalidArg reports a nil entity, a zero id, or an oversize string.
	ErrInvalidArg = errors.New("tqdb: invalid argument")
	// ErrNoMem reports a scratch buffer too small to hold a record.
	ErrNoMem = errors.New("tqdb: out of scratch memory")
	// ErrNotFound reports a missing entity or an absent database file.
	ErrNotFound = errors.New("tqdb: not found")
	// ErrExists reports a duplicate trait name at registration time.
	ErrExists = errors.New("tqdb: already exists")
	// ErrIO reports any underlying file operation failure.
	ErrIO = errors.New("tqdb: io error")
	// ErrCorrupt reports a bad main-file header, a main-file section count
	// above its trait's MaxCount, a main-file record that fails to read, or
	// a WAL payload that fails to deserialize. A bad WAL header is replaced
	// with a fresh WAL and a failed WAL entry CRC ends the scan; neither
	// returns ErrCorrupt.
	ErrCorrupt = errors.New("tqdb: corrupt data")
	// ErrFull reports a registry at capacity.
	ErrFull = errors.New("tqdb: registry full")
	// ErrTimeout reports a lock acquisition that exceeded its deadline.
	ErrTimeout = errors.New("tqdb: lock timeout")
	// ErrNotRegistered reports an unknown type name.
	ErrNotRegistered = errors.New("tqdb: type not registered")
)
