package tqdb

import (
	"context"
	"fmt"

	"github.com/acvigue/tqdb-go/internal/cache"
	"github.com/acvigue/tqdb-go/internal/mainfile"
	"github.com/acvigue/tqdb-go/internal/wal"
)

// resolve looks up typeName's registration index and trait, wrapped with
// ErrNotRegistered on failure.
func (s *Store) resolve(typeName string) (int, Trait, error) {
	trait, idx, err := s.reg.ByName(typeName)
	if err != nil {
		return 0, nil, err
	}
	t, ok := trait.(Trait)
	if !ok {
		return 0, nil, fmt.Errorf("%w: trait %q does not satisfy tqdb.Trait", ErrInvalidArg, typeName)
	}
	return idx, t, nil
}

// Add assigns entity a fresh auto-incremented id through SetID, then
// durably stores it — through the WAL if enabled, else via a direct
// streaming rewrite of the main file.
func Add[T any](s *Store, typeName string, entity *T) error {
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
	if entity == nil {
		return fmt.Errorf("%w: nil entity", ErrInvalidArg)
	}

	id := s.reg.NextID(idx)
	trait.SetID(entity, id)

	if s.w != nil {
		return s.w.Append(idx, id, wal.OpAdd, entity)
	}
	return s.main.Rewrite(mainfile.Mutation{
		AddTypeIdx:    idx,
		AddEntity:     entity,
		DeleteTypeIdx: -1,
		UpdateTypeIdx: -1,
		FilterTypeIdx: -1,
		ModifyTypeIdx: -1,
	})
}

// Get returns the current value for (typeName, id), composing cache, WAL,
// and main file into one logically consistent view.
func Get(s *Store, typeName string, id uint32) (any, error) {
	ctx := context.Background()
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.cfg.Locker.Unlock()

	if err := s.checkRecovery(); err != nil {
		return nil, err
	}

	idx, _, err := s.resolve(typeName)
	if err != nil {
		return nil, err
	}

	if s.c != nil {
		if entity, op, ok := s.c.Get(idx, id); ok {
			if op == cache.OpDelete {
				return nil, ErrNotFound
			}
			return entity, nil
		}
	}

	if s.w != nil {
		entity, result, err := s.w.Find(idx, id)
		if err != nil {
			return nil, err
		}
		switch result {
		case wal.FoundInWAL:
			s.cachePut(idx, id, entity)
			return entity, nil
		case wal.DeletedInWAL:
			s.cacheDelete(idx, id)
			return nil, ErrNotFound
		}
	}

	entity, err := s.main.Get(idx, id)
	if err != nil {
		return nil, err
	}
	s.cachePut(idx, id, entity)
	return entity, nil
}

// Update overwrites the entity stored at (typeName, id) with entity.
func Update(s *Store, typeName string, id uint32, entity any) error {
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
	if id == 0 || entity == nil {
		return fmt.Errorf("%w: zero id or nil entity", ErrInvalidArg)
	}
	trait.SetID(entity, id)

	if s.w != nil {
		return s.w.Append(idx, id, wal.OpUpdate, entity)
	}
	if err := s.main.Rewrite(mainfile.Mutation{
		UpdateTypeIdx: idx,
		UpdateID:      id,
		UpdateEntity:  entity,
		AddTypeIdx:    -1,
		DeleteTypeIdx: -1,
		FilterTypeIdx: -1,
		ModifyTypeIdx: -1,
	}); err != nil {
		return err
	}
	s.cachePut(idx, id, entity)
	return nil
}

// Delete removes the entity stored at (typeName, id), if present.
func Delete(s *Store, typeName string, id uint32) error {
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
	if id == 0 {
		return fmt.Errorf("%w: zero id", ErrInvalidArg)
	}

	if s.w != nil {
		return s.w.Append(idx, id, wal.OpDelete, nil)
	}
	if err := s.main.Rewrite(mainfile.Mutation{
		DeleteTypeIdx: idx,
		DeleteID:      id,
		AddTypeIdx:    -1,
		UpdateTypeIdx: -1,
		FilterTypeIdx: -1,
		ModifyTypeIdx: -1,
	}); err != nil {
		return err
	}
	s.cacheDelete(idx, id)
	return nil
}

// Exists reports whether (typeName, id) currently has a value, composing
// cache, WAL, and main file exactly as Get does.
func Exists(s *Store, typeName string, id uint32) (bool, error) {
	_, err := Get(s, typeName, id)
	if err == nil {
		return true, nil
	}
	if err == ErrNotFound {
		return false, nil
	}
	return false, err
}

// Count returns the number of entities of typeName, merging any
// not-yet-checkpointed WAL adds/deletes into the main file's count.
func Count(s *Store, typeName string) (uint32, error) {
	ctx := context.Background()
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.cfg.Locker.Unlock()

	if err := s.checkRecovery(); err != nil {
		return 0, err
	}

	idx, _, err := s.resolve(typeName)
	if err != nil {
		return 0, err
	}

	base, err := s.main.Count(idx)
	if err != nil {
		return 0, err
	}
	if s.w == nil {
		return base, nil
	}
	return s.w.MergedCount(idx, base)
}

func (s *Store) cachePut(typeIdx int, id uint32, entity any) {
	if s.c != nil {
		s.c.Put(typeIdx, id, entity, cache.OpAdd)
	}
}

func (s *Store) cacheDelete(typeIdx int, id uint32) {
	if s.c != nil {
		s.c.Put(typeIdx, id, nil, cache.OpDelete)
	}
}
