package mainfile

import (
	"fmt"
	"io"

	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/ioframe"
	"github.com/acvigue/tqdb-go/internal/registry"
)

// skipType advances r past n serialized entities of trait t, without
// materializing them when t implements registry.Skipper, matching
// tqdb_core.c's "skip to target type" loop used by Get/Exists/ForEach.
func skipType(r *ioframe.Reader, t registry.Trait, n uint32) {
	skipper, canSkip := t.(registry.Skipper)
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		if canSkip {
			skipper.Skip(r)
			continue
		}
		entity := t.Read(r)
		if d, ok := t.(registry.Destroyer); ok {
			d.Destroy(entity)
		}
	}
}

// Get reads a single entity of the given type index and id directly from
// the main file, skipping over every preceding type's section first.
func (m *Manager) Get(typeIdx int, id uint32) (any, error) {
	f, _, err := m.openForRead()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	counts, err := m.readCounts(f)
	if err != nil {
		return nil, err
	}

	scratch := make([]byte, m.scratchSize)
	r := ioframe.NewReader(f, scratch)

	for i := 0; i < typeIdx; i++ {
		t, terr := m.reg.At(i)
		if terr != nil {
			return nil, terr
		}
		skipType(r, t, counts[i])
	}

	trait, err := m.reg.At(typeIdx)
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < counts[typeIdx] && r.Err() == nil; i++ {
		entity := trait.Read(r)
		if r.Err() != nil {
			break
		}
		if trait.GetID(entity) == id {
			return entity, nil
		}
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorrupt, r.Err())
	}
	return nil, errs.ErrNotFound
}

// Exists reports whether an entity of the given type index and id is
// present in the main file.
func (m *Manager) Exists(typeIdx int, id uint32) (bool, error) {
	_, err := m.Get(typeIdx, id)
	if err == nil {
		return true, nil
	}
	if err == errs.ErrNotFound {
		return false, nil
	}
	return false, err
}

// Count returns the on-disk record count for typeIdx, or 0 if the main
// file does not exist yet.
func (m *Manager) Count(typeIdx int) (uint32, error) {
	f, _, err := m.openForRead()
	if err != nil {
		if err == errs.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	if _, err := f.Seek(int64(HeaderSize+typeIdx*4), io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	var b [4]byte
	if _, err := f.Read(b[:]); err != nil {
		return 0, nil
	}
	return leUint32(b[:]), nil
}

// ForEach streams every entity of typeIdx in the main file to fn, stopping
// early if fn returns false.
func (m *Manager) ForEach(typeIdx int, fn func(entity any) bool) error {
	f, _, err := m.openForRead()
	if err != nil {
		if err == errs.ErrNotFound {
			return nil
		}
		return err
	}
	defer f.Close()

	counts, err := m.readCounts(f)
	if err != nil {
		return err
	}

	scratch := make([]byte, m.scratchSize)
	r := ioframe.NewReader(f, scratch)

	for i := 0; i < typeIdx; i++ {
		t, terr := m.reg.At(i)
		if terr != nil {
			return terr
		}
		skipType(r, t, counts[i])
	}

	trait, err := m.reg.At(typeIdx)
	if err != nil {
		return err
	}

	for i := uint32(0); i < counts[typeIdx] && r.Err() == nil; i++ {
		entity := trait.Read(r)
		if r.Err() != nil {
			break
		}
		if !fn(entity) {
			return nil
		}
	}
	if r.Err() != nil {
		return fmt.Errorf("%w: %v", errs.ErrCorrupt, r.Err())
	}
	return nil
}
