package tqdb

import (
	"log/slog"

	"github.com/acvigue/tqdb-go/internal/logging"
)

const (
	defaultScratchSize   = 8192
	defaultWALMaxEntries = 100
	defaultWALMaxSize    = 65536
	defaultCacheSize     = 16
)

// Config assembles every Open parameter. Only DBPath is required; callers
// who prefer the functional-options idiom build one with Configure instead
// of populating this struct literally.
type Config struct {
	DBPath  string
	TmpPath string
	BakPath string

	Locker      Locker
	ScratchSize int

	EnableWAL     bool
	WALPath       string
	WALMaxEntries uint32
	WALMaxSize    int64

	EnableCache bool
	CacheSize   int

	CompressPayloads bool

	Logger *slog.Logger
}

// ConfigOption mutates a Config under construction, the teacher's
// functional-options rendering of tqdb_config_t's struct-of-optionals.
type ConfigOption func(*Config)

// Configure builds a Config for dbPath with every default applied, then
// layers opts on top in order.
func Configure(dbPath string, opts ...ConfigOption) Config {
	cfg := Config{
		DBPath:        dbPath,
		TmpPath:       dbPath + ".tmp",
		BakPath:       dbPath + ".bak",
		Locker:        NopLocker{},
		ScratchSize:   defaultScratchSize,
		WALMaxEntries: defaultWALMaxEntries,
		WALMaxSize:    defaultWALMaxSize,
		CacheSize:     defaultCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger, _ = logging.Setup(logging.Options{})
	}
	return cfg
}

// WithWAL enables the write-ahead log at path, auto-checkpointing once
// either threshold is crossed. A zero maxEntries/maxSize keeps that
// threshold's package default.
func WithWAL(path string, maxEntries uint32, maxSize int64) ConfigOption {
	return func(c *Config) {
		c.EnableWAL = true
		c.WALPath = path
		if maxEntries > 0 {
			c.WALMaxEntries = maxEntries
		}
		if maxSize > 0 {
			c.WALMaxSize = maxSize
		}
	}
}

// WithCache enables the LRU read cache with the given slot capacity.
func WithCache(size int) ConfigOption {
	return func(c *Config) {
		c.EnableCache = true
		if size > 0 {
			c.CacheSize = size
		}
	}
}

// WithLocker overrides the default NopLocker.
func WithLocker(l Locker) ConfigOption {
	return func(c *Config) { c.Locker = l }
}

// WithLogger overrides the default ambient logger.
func WithLogger(l *slog.Logger) ConfigOption {
	return func(c *Config) { c.Logger = l }
}

// WithCompression snappy-compresses WAL entity payloads at or above
// internal/payload.MinCompressSize.
func WithCompression() ConfigOption {
	return func(c *Config) { c.CompressPayloads = true }
}

// WithScratchSize overrides the default 8KiB streaming scratch buffer.
func WithScratchSize(n int) ConfigOption {
	return func(c *Config) {
		if n > 0 {
			c.ScratchSize = n
		}
	}
}

// WithPaths overrides the default {DBPath}.tmp/{DBPath}.bak siblings.
func WithPaths(tmpPath, bakPath string) ConfigOption {
	return func(c *Config) {
		if tmpPath != "" {
			c.TmpPath = tmpPath
		}
		if bakPath != "" {
			c.BakPath = bakPath
		}
	}
}
