package wal

// dedupLast scans the WAL and keeps only the last entry recorded for each
// (typeIdx, id), in WAL order — the same "last operation wins" reduction
// checkpointLocked performs, reused here for read-path composition so Count
// and ForEach never disagree with what a checkpoint would produce.
func (m *Manager) dedupLast() ([]rawEntry, error) {
	entries, err := m.scan()
	if err != nil {
		return nil, err
	}
	type key struct {
		typeIdx int
		id      uint32
	}
	last := make(map[key]int, len(entries))
	for i, e := range entries {
		last[key{e.typeIdx, e.id}] = i
	}
	out := make([]rawEntry, 0, len(last))
	for i, e := range entries {
		if last[key{e.typeIdx, e.id}] == i {
			out = append(out, e)
		}
	}
	return out, nil
}

// MergedCount folds pending WAL adds/deletes for typeIdx into base (the
// main file's on-disk count for that type). An update never changes the
// count; an add always does (auto-assigned ids are never already present
// in the main file); a delete only does if the id it names actually exists
// there (deleting an id that only ever existed inside this WAL, because its
// own add was superseded, nets to nothing).
func (m *Manager) MergedCount(typeIdx int, base uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entryCount == 0 {
		return base, nil
	}
	entries, err := m.dedupLast()
	if err != nil {
		return 0, err
	}

	count := int64(base)
	for _, e := range entries {
		if e.typeIdx != typeIdx {
			continue
		}
		switch e.op {
		case OpAdd:
			count++
		case OpDelete:
			existed, eerr := m.main.Exists(typeIdx, e.id)
			if eerr != nil {
				return 0, eerr
			}
			if existed {
				count--
			}
		}
	}
	if count < 0 {
		count = 0
	}
	return uint32(count), nil
}

// Overlay returns the deduplicated WAL state for typeIdx, split into
// updates (id -> new entity), deletes (ids to drop), and adds (entities
// never present in the main file), in WAL order for adds.
func (m *Manager) Overlay(typeIdx int) (updates map[uint32]any, deletes map[uint32]bool, adds []any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updates = make(map[uint32]any)
	deletes = make(map[uint32]bool)

	if m.entryCount == 0 {
		return updates, deletes, nil, nil
	}
	entries, derr := m.dedupLast()
	if derr != nil {
		return nil, nil, nil, derr
	}

	for _, e := range entries {
		if e.typeIdx != typeIdx {
			continue
		}
		switch e.op {
		case OpDelete:
			deletes[e.id] = true
		case OpUpdate:
			entity, eerr := m.decodeEntity(e.typeIdx, e.data)
			if eerr != nil {
				return nil, nil, nil, eerr
			}
			updates[e.id] = entity
		case OpAdd:
			entity, eerr := m.decodeEntity(e.typeIdx, e.data)
			if eerr != nil {
				return nil, nil, nil, eerr
			}
			adds = append(adds, entity)
		}
	}
	return updates, deletes, adds, nil
}
