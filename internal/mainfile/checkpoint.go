package mainfile

import (
	"github.com/acvigue/tqdb-go/internal/ioframe"
	"github.com/acvigue/tqdb-go/internal/registry"
)

// OverrideOp names what a WAL entry did to a given id, for the purposes of
// merging it into the main file.
type OverrideOp uint8

const (
	OverrideAdd OverrideOp = iota + 1
	OverrideUpdate
	OverrideDelete
)

// Override is one deduplicated WAL entry (already reduced to "last op per
// id" by the caller) to fold into the main file during a checkpoint.
type Override struct {
	ID     uint32
	Op     OverrideOp
	Entity any // nil for OverrideDelete
}

// CheckpointMerge folds a batch of per-type overrides (the deduplicated
// contents of the WAL) into the main file in one streaming pass, reusing
// the same engine Rewrite uses rather than a second, parallel
// implementation of the read-old/write-new/atomic-swap sequence.
//
// Grounded on tqdb_core.c's tqdb_checkpoint_merge.
func (m *Manager) CheckpointMerge(overrides map[int][]Override) error {
	return m.streamEngine(func(typeIdx int, trait registry.Trait, hasSrc bool, existing uint32, r *ioframe.Reader, w *ioframe.Writer) uint32 {
		byID := make(map[uint32]*Override, len(overrides[typeIdx]))
		for i := range overrides[typeIdx] {
			o := &overrides[typeIdx][i]
			byID[o.ID] = o
		}

		written := uint32(0)

		if hasSrc {
			for i := uint32(0); i < existing && r.Err() == nil; i++ {
				entity := trait.Read(r)
				if r.Err() != nil {
					break
				}
				id := trait.GetID(entity)

				if o, ok := byID[id]; ok {
					switch o.Op {
					case OverrideDelete:
						destroy(trait, entity)
						delete(byID, id)
						continue
					case OverrideUpdate:
						// A nil Entity means the WAL entry that
						// superseded this record failed to deserialize;
						// the original is still dropped (not written)
						// rather than silently falling back to it.
						if o.Entity != nil {
							trait.Write(w, o.Entity)
							written++
						}
						destroy(trait, entity)
						delete(byID, id)
						continue
					}
				}

				trait.Write(w, entity)
				written++
				destroy(trait, entity)
			}
		}

		// An UPDATE or DELETE override whose id never matched an existing
		// record (e.g. the add that created it was itself superseded and
		// dropped upstream) is simply not applied — mirrors
		// tqdb_checkpoint_merge, whose final pass only replays unmatched
		// ADD entries.
		for _, o := range overrides[typeIdx] {
			if _, pending := byID[o.ID]; !pending {
				continue
			}
			if o.Op == OverrideAdd && o.Entity != nil {
				trait.Write(w, o.Entity)
				written++
			}
		}

		return written
	})
}
