package mainfile

import (
	"github.com/acvigue/tqdb-go/internal/ioframe"
	"github.com/acvigue/tqdb-go/internal/registry"
)

// Mutation describes a single pass of the streaming rewrite engine. Every
// mutating store operation (add/update/delete/filter/modify/vacuum) is one
// Mutation; an all-"none" Mutation is a pure vacuum/rewrite.
//
// Grounded on tqdb_core.c's stream_ctx_t.
type Mutation struct {
	AddTypeIdx int
	AddEntity  any

	DeleteTypeIdx int
	DeleteID      uint32

	UpdateTypeIdx int
	UpdateID      uint32
	UpdateEntity  any

	FilterTypeIdx int
	// Filter returns false to drop the entity.
	Filter func(entity any) bool

	ModifyTypeIdx int
	// ModifyFilter, if non-nil, gates whether Modify runs for a given
	// entity; nil means modify unconditionally.
	ModifyFilter func(entity any) bool
	Modify       func(entity any)
}

// NoopMutation returns a Mutation that touches nothing — a pure rewrite,
// used by vacuum.
func NoopMutation() Mutation {
	return Mutation{AddTypeIdx: -1, DeleteTypeIdx: -1, UpdateTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1}
}

// Rewrite streams the current main file (if any) through mut into a fresh
// .tmp file, then atomically swaps it into place. This is how add, update,
// delete, delete_where, modify_where, and vacuum are all implemented: one
// call each with a differently-populated Mutation.
func (m *Manager) Rewrite(mut Mutation) error {
	return m.streamEngine(func(typeIdx int, trait registry.Trait, hasSrc bool, existing uint32, r *ioframe.Reader, w *ioframe.Writer) uint32 {
		written := uint32(0)

		if hasSrc {
			for i := uint32(0); i < existing && r.Err() == nil; i++ {
				entity := trait.Read(r)
				if r.Err() != nil {
					break
				}
				id := trait.GetID(entity)

				switch {
				case mut.DeleteTypeIdx == typeIdx && mut.DeleteID != 0 && id == mut.DeleteID:
					destroy(trait, entity)
					continue
				case mut.FilterTypeIdx == typeIdx && mut.Filter != nil && !mut.Filter(entity):
					destroy(trait, entity)
					continue
				case mut.UpdateTypeIdx == typeIdx && mut.UpdateID != 0 && id == mut.UpdateID:
					trait.Write(w, mut.UpdateEntity)
					written++
					destroy(trait, entity)
					continue
				}

				if mut.ModifyTypeIdx == typeIdx && mut.Modify != nil {
					if mut.ModifyFilter == nil || mut.ModifyFilter(entity) {
						mut.Modify(entity)
					}
				}

				trait.Write(w, entity)
				written++
				destroy(trait, entity)
			}
		}

		if mut.AddTypeIdx == typeIdx && mut.AddEntity != nil {
			trait.Write(w, mut.AddEntity)
			written++
		}

		return written
	})
}
