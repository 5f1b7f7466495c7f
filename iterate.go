package tqdb

import (
	"context"

	"github.com/acvigue/tqdb-go/internal/mainfile"
)

// ForEach calls fn once for every entity of typeName, stopping early if fn
// returns false. With a WAL enabled, main-file entities are streamed in
// their on-disk order with pending updates substituted in place and
// pending deletes skipped, followed by pending adds in WAL order —
// matching tqdb_foreach's id-set-based merge.
func ForEach(s *Store, typeName string, fn func(entity any) bool) error {
	ctx := context.Background()
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.cfg.Locker.Unlock()

	if err := s.checkRecovery(); err != nil {
		return err
	}

	idx, trait, err := s.resolve(typeName)
	if err != nil {
		return err
	}

	if s.w == nil {
		return s.main.ForEach(idx, fn)
	}

	updates, deletes, adds, err := s.w.Overlay(idx)
	if err != nil {
		return err
	}

	stopped := false
	walkErr := s.main.ForEach(idx, func(entity any) bool {
		id := trait.GetID(entity)
		if deletes[id] {
			return true
		}
		if updated, ok := updates[id]; ok {
			entity = updated
		}
		if !fn(entity) {
			stopped = true
			return false
		}
		return true
	})
	if walkErr != nil {
		return walkErr
	}
	if stopped {
		return nil
	}

	for _, entity := range adds {
		if !fn(entity) {
			break
		}
	}
	return nil
}

// ModifyWhere applies modify to every entity of typeName for which filter
// returns true, in one streaming rewrite pass. Requires the WAL, if any, to
// have nothing pending for typeName — callers typically call Checkpoint
// first if they need ModifyWhere to see WAL-only records (matching
// tqdb_modify_where's direct-rewrite-only semantics in the C original).
func ModifyWhere(s *Store, typeName string, filter Predicate, modify Mutator) error {
	ctx := context.Background()
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.cfg.Locker.Unlock()

	if err := s.checkRecovery(); err != nil {
		return err
	}

	idx, _, err := s.resolve(typeName)
	if err != nil {
		return err
	}
	if s.w != nil {
		if err := s.w.Checkpoint(); err != nil {
			return err
		}
	}

	mut := mainfile.NoopMutation()
	mut.ModifyTypeIdx = idx
	mut.ModifyFilter = func(e any) bool { return filter == nil || filter(e) }
	mut.Modify = func(e any) { modify(e) }

	if err := s.main.Rewrite(mut); err != nil {
		return err
	}
	if s.c != nil {
		s.c.InvalidateAll()
	}
	return nil
}

// DeleteWhere removes every entity of typeName for which filter returns
// true, in one streaming rewrite pass.
func DeleteWhere(s *Store, typeName string, filter Predicate) error {
	ctx := context.Background()
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.cfg.Locker.Unlock()

	if err := s.checkRecovery(); err != nil {
		return err
	}

	idx, _, err := s.resolve(typeName)
	if err != nil {
		return err
	}
	if s.w != nil {
		if err := s.w.Checkpoint(); err != nil {
			return err
		}
	}

	mut := mainfile.NoopMutation()
	mut.FilterTypeIdx = idx
	mut.Filter = func(e any) bool { return filter == nil || !filter(e) }

	if err := s.main.Rewrite(mut); err != nil {
		return err
	}
	if s.c != nil {
		s.c.InvalidateAll()
	}
	return nil
}
