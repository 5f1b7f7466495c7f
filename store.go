package tqdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/acvigue/tqdb-go/internal/cache"
	"github.com/acvigue/tqdb-go/internal/logging"
	"github.com/acvigue/tqdb-go/internal/mainfile"
	"github.com/acvigue/tqdb-go/internal/registry"
	"github.com/acvigue/tqdb-go/internal/wal"
)

// Store is a single open database handle: one main file, an optional WAL,
// an optional LRU cache, and the registry of types it knows how to
// serialize. Two handles must never point at the same path.
type Store struct {
	cfg Config
	reg *registry.Registry

	main *mainfile.Manager
	w    *wal.Manager // nil when WAL is disabled
	c    *cache.Cache // nil when the cache is disabled

	sessionID string
	logClose  func()
}

// Open opens (creating if necessary) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("%w: Config.DBPath is required", ErrInvalidArg)
	}
	if cfg.Locker == nil {
		cfg.Locker = NopLocker{}
	}

	logger := cfg.Logger
	var logClose func()
	if logger == nil {
		logger, logClose = logging.Setup(logging.Options{})
	}

	sessionID := uuid.New().String()
	logger = logger.With("session_id", sessionID, "db_path", cfg.DBPath)

	reg := registry.New()
	main := mainfile.New(cfg.DBPath, cfg.TmpPath, cfg.BakPath, reg, cfg.ScratchSize, logger)

	s := &Store{
		cfg:       cfg,
		reg:       reg,
		main:      main,
		sessionID: sessionID,
		logClose:  logClose,
	}

	if cfg.EnableCache {
		s.c = cache.New(cfg.CacheSize)
	}

	if cfg.EnableWAL {
		walPath := cfg.WALPath
		if walPath == "" {
			walPath = cfg.DBPath + ".wal"
		}
		m, err := wal.Open(reg, main, wal.Options{
			Path:       walPath,
			MaxEntries: cfg.WALMaxEntries,
			MaxSize:    cfg.WALMaxSize,
			Compress:   cfg.CompressPayloads,
			Cache:      s.c,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		s.w = m
	}

	logger.Info("store opened", "wal_enabled", cfg.EnableWAL, "cache_enabled", cfg.EnableCache)
	return s, nil
}

// Register adds trait to s's type registry. Must be called for every type
// before any operation referencing it by name, including after reopening a
// database whose WAL has pending entries (see the deferred recovery
// policy documented on Store.checkRecovery).
func Register(s *Store, trait Trait) error {
	if _, err := s.reg.Register(trait); err != nil {
		return err
	}
	if initer, ok := trait.(Initer); ok {
		if err := initer.Init(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the store's logging resources. The main file and WAL need
// no explicit close: every operation opens and closes its own file handles.
func (s *Store) Close() error {
	if s.logClose != nil {
		s.logClose()
	}
	return nil
}

// checkRecovery runs the deferred WAL checkpoint once traits are
// registered, mirroring tqdb_wal_check_recovery(db) being the first thing
// every data-path operation does in the C original.
func (s *Store) checkRecovery() error {
	if s.w == nil {
		return nil
	}
	return s.w.CheckRecovery()
}

func (s *Store) lock(ctx context.Context) error {
	return s.cfg.Locker.Lock(ctx)
}
