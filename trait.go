// Package tqdb is an embedded, file-backed, trait-driven record store.
// Applications register entity types by supplying serialization and
// identity callbacks through a Trait; the store then provides durable
// add/get/update/delete/iterate operations with crash-safe atomic rewrites
// and an optional write-ahead log.
package tqdb

import "github.com/acvigue/tqdb-go/internal/ioframe"

// Writer and Reader are the framed I/O primitives a Trait serializes
// through. They are aliases, not wrappers, so a Trait written against this
// package automatically satisfies internal/registry.Trait's structurally
// identical, lower-level shape without either package importing the other.
type (
	Writer = ioframe.Writer
	Reader = ioframe.Reader
)

// Trait is the required quartet (plus identity) every registered entity
// type supplies: a unique name, serialize/deserialize callbacks through the
// framed I/O, and an identifier accessor pair.
type Trait interface {
	// TypeName returns this trait's unique registration name.
	TypeName() string
	// New returns a zero-value entity. The store never calls it; Read
	// returns the entity it materializes.
	New() any
	// Write serializes entity's fields through w.
	Write(w *Writer, entity any)
	// Read deserializes one entity's fields from r and returns it.
	Read(r *Reader) any
	// GetID returns entity's identifier.
	GetID(entity any) uint32
	// SetID assigns entity's identifier, used after auto-id assignment.
	SetID(entity any, id uint32)
	// MaxCount bounds how large this type's count in the main file header
	// is allowed to be; a stored count above this value is treated as
	// corruption instead of being trusted.
	MaxCount() uint32
}

// Initer is an optional Trait extension called once by Register, for traits
// that need to prepare shared state before any entity flows through them.
type Initer interface {
	Init() error
}

// Destroyer is an optional Trait extension called on an entity read from the
// main file once a rewrite has written or dropped it, or once it has been
// read only to be skipped, for traits whose entities own resources that must
// be released deterministically. Cached entities are not passed to it.
type Destroyer interface {
	Destroy(entity any)
}

// Skipper is an optional Trait extension letting a type fast-forward past a
// serialized entity without fully deserializing it, used by the main-file
// read path to pass over the sections of lower-indexed types. The streaming
// rewrite engine always reads every entity in full.
type Skipper interface {
	Skip(r *Reader)
}

// Predicate reports whether entity should be included (ForEach, DeleteWhere)
// or modified (the filter half of ModifyWhere).
type Predicate func(entity any) bool

// Mutator mutates entity in place; used by ModifyWhere.
type Mutator func(entity any)
