package tqdb

import (
	"context"

	"github.com/acvigue/tqdb-go/internal/mainfile"
)

// Vacuum rewrites the main file with no mutation applied, compacting away
// whatever slack a prior filter/delete pass left behind. Idempotent: a
// second Vacuum produces a byte-identical file (modulo nothing, since the
// header CRC is always recomputed fresh from the final bytes).
func Vacuum(s *Store) error {
	ctx := context.Background()
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.cfg.Locker.Unlock()

	if err := s.checkRecovery(); err != nil {
		return err
	}
	return s.main.Rewrite(mainfile.NoopMutation())
}

// Flush is a reserved no-op: every mutation in this implementation is
// already durable (WAL-appended-and-synced, or streaming-rewritten and
// synced) by the time its call returns, so there is nothing left to flush.
func Flush(s *Store) error {
	return nil
}

// Checkpoint folds any pending WAL entries into the main file and resets
// the WAL to empty. A no-op when the WAL is disabled or already empty.
func Checkpoint(s *Store) error {
	ctx := context.Background()
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.cfg.Locker.Unlock()

	if s.w == nil {
		return nil
	}
	return s.w.Checkpoint()
}

// WALStats reports the WAL's current entry count and byte size. Both are
// zero when the WAL is disabled.
func WALStats(s *Store) (entries uint32, size uint32) {
	if s.w == nil {
		return 0, 0
	}
	e, sz := s.w.Stats()
	return e, uint32(sz)
}

// CacheClear empties the read cache and resets its hit/miss counters. A
// no-op when the cache is disabled.
func CacheClear(s *Store) {
	if s.c != nil {
		s.c.Clear()
	}
}

// CacheStats reports the cache's cumulative hit and miss counts. Both are
// zero when the cache is disabled.
func CacheStats(s *Store) (hits, misses uint64) {
	if s.c == nil {
		return 0, 0
	}
	return s.c.Stats()
}
