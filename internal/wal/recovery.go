package wal

import (
	"bytes"
	"fmt"

	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/ioframe"
	"github.com/acvigue/tqdb-go/internal/mainfile"
)

// checkpointLocked folds every pending WAL entry into the main file and
// resets the WAL to empty. Caller must hold m.mu.
//
// Grounded on tqdb_checkpoint_merge, but the merge itself is delegated to
// mainfile.CheckpointMerge instead of duplicating the read-old/write-new
// streaming loop a second time.
func (m *Manager) checkpointLocked() error {
	if m.entryCount == 0 {
		return nil
	}

	entries, err := m.dedupLast()
	if err != nil {
		return err
	}

	byType := make(map[int][]mainfile.Override)
	for _, e := range entries {
		ov := mainfile.Override{ID: e.id}
		switch e.op {
		case OpAdd:
			ov.Op = mainfile.OverrideAdd
		case OpUpdate:
			ov.Op = mainfile.OverrideUpdate
		case OpDelete:
			ov.Op = mainfile.OverrideDelete
		default:
			continue
		}
		if e.op != OpDelete {
			entity, derr := m.decodeEntity(e.typeIdx, e.data)
			if derr != nil {
				// The id is still recorded below with a nil Entity: it
				// still shadows (and thereby drops) whatever version of
				// this record the main file currently holds, matching
				// tqdb_checkpoint_merge's behavior of marking the id
				// processed even when its entity failed to deserialize.
				// That is a real bug in the original — a corrupt last
				// WAL entry for an id silently erases the record — kept
				// here rather than "fixed" into an implicit fallback to
				// an older version, but made loud instead of silent.
				m.log.Warn("wal entry failed to deserialize during checkpoint; record will be dropped",
					"type_index", e.typeIdx, "id", e.id, "error", derr)
			} else {
				ov.Entity = entity
			}
		}
		byType[e.typeIdx] = append(byType[e.typeIdx], ov)
	}

	if err := m.main.CheckpointMerge(byType); err != nil {
		return err
	}

	if m.c != nil {
		m.c.InvalidateAll()
	}

	return m.create()
}

func (m *Manager) decodeEntity(typeIdx int, data []byte) (any, error) {
	trait, err := m.reg.At(typeIdx)
	if err != nil {
		return nil, err
	}
	r := ioframe.NewReader(bytes.NewReader(data), make([]byte, len(data)+1))
	entity := trait.Read(r)
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorrupt, r.Err())
	}
	return entity, nil
}
