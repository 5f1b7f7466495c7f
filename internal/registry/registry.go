// Package registry holds the fixed-capacity table of registered entity
// traits, grounded on tqdb_core.c's tqdb_register and the trait_t contract
// declared in tqdb.h.
//
// Trait is declared locally, in terms of *ioframe.Writer/*ioframe.Reader,
// rather than imported from the root tqdb package. Go's structural interface
// typing means the root package's exported Trait (built from type aliases
// Writer = ioframe.Writer, Reader = ioframe.Reader) satisfies this interface
// automatically wherever a caller hands one in — so this package never needs
// to import the module root, which would otherwise form an import cycle
// (root -> registry -> root).
package registry

import (
	"sync"

	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/ioframe"
)

// MaxTypes bounds the number of distinct entity types a single Registry can
// hold, matching TQDB_MAX_TRAITS (renamed MaxTypes to match the public
// Config/registry vocabulary).
const MaxTypes = 8

// Trait is the structural shape every registered entity type must satisfy.
type Trait interface {
	TypeName() string
	GetID(entity any) uint32
	SetID(entity any, id uint32)
	New() any
	Write(w *ioframe.Writer, entity any)
	Read(r *ioframe.Reader) any
	// MaxCount bounds the per-type count this trait's section of the main
	// file header is allowed to declare; a stored count above this value is
	// treated as corruption rather than trusted, matching tqdb_core.c's
	// `c <= db->traits[i]->max_count` guard.
	MaxCount() uint32
}

// Initer is an optional hook a Trait may also implement; the root package's
// Register calls it once, right after registration.
type Initer interface {
	Init() error
}

// Destroyer is an optional hook called on an entity read from the main file
// once a rewrite has written or dropped it, or once it has been read only to
// be skipped, mirroring trait_t's destroy callback. Cached entities are not
// passed to it.
type Destroyer interface {
	Destroy(entity any)
}

// Skipper is an optional hook letting a trait skip over a serialized entity
// without fully deserializing it (used by the main-file read path to pass
// over the sections of lower-indexed types; the streaming rewrite engine
// always reads every record in full).
type Skipper interface {
	Skip(r *ioframe.Reader)
}

// entry pairs a registered Trait with its auto-increment id counter.
type entry struct {
	trait  Trait
	nextID uint32
}

// Registry is the fixed-size, name-indexed table of registered traits. A
// zero-value Registry is not usable; use New.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	byName  map[string]int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make([]entry, 0, MaxTypes),
		byName:  make(map[string]int, MaxTypes),
	}
}

// Register adds t under its TypeName. The first registration for a given
// name wins; a second attempt returns ErrExists. Returns ErrFull once
// MaxTypes entries are registered, and ErrInvalidArg for an empty name.
func (r *Registry) Register(t Trait) (index int, err error) {
	name := t.TypeName()
	if name == "" {
		return 0, errs.ErrInvalidArg
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return 0, errs.ErrExists
	}
	if len(r.entries) >= MaxTypes {
		return 0, errs.ErrFull
	}

	idx := len(r.entries)
	r.entries = append(r.entries, entry{trait: t})
	r.byName[name] = idx
	return idx, nil
}

// Count returns the number of registered traits.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IndexOf returns the registration index for name, or ErrNotRegistered.
func (r *Registry) IndexOf(name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[name]
	if !ok {
		return 0, errs.ErrNotRegistered
	}
	return idx, nil
}

// At returns the Trait registered at index, in registration order — the
// same order entity sections appear in the main file and per-type counts
// appear in its header.
func (r *Registry) At(index int) (Trait, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.entries) {
		return nil, errs.ErrNotRegistered
	}
	return r.entries[index].trait, nil
}

// ByName returns the Trait registered under name.
func (r *Registry) ByName(name string) (Trait, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[name]
	if !ok {
		return nil, 0, errs.ErrNotRegistered
	}
	return r.entries[idx].trait, idx, nil
}

// Each calls fn once per registered trait, in registration order.
func (r *Registry) Each(fn func(index int, t Trait)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, e := range r.entries {
		fn(i, e.trait)
	}
}

// NextID returns the next auto-assigned id for the trait at index and
// advances its counter. IDs start at 1; 0 is reserved to mean "unassigned".
func (r *Registry) NextID(index int) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[index].nextID++
	return r.entries[index].nextID
}

// Observe advances the auto-increment counter for index so it stays ahead of
// id, without allocating a new id. Nothing in this module calls it while
// opening a main file or replaying the WAL, so in a new process NextID
// counts from 1 regardless of the ids already on disk.
func (r *Registry) Observe(index int, id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id > r.entries[index].nextID {
		r.entries[index].nextID = id
	}
}
