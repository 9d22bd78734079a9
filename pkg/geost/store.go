package geost

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Store is the main entry point for geost: a feature store for one schema
// backed by a sorted key-value database, with a query planner on top.
type Store struct {
	db     *badger.DB
	path   string
	closed bool
	mu     sync.RWMutex

	schema  *Schema
	planner *Planner
	log     *slog.Logger
}

// StoreOptions configures a Store instance.
type StoreOptions struct {
	// Path is the directory where the database files will be stored.
	Path string

	// InMemory, if true, runs Badger in memory-only mode (no persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites, if true, syncs writes to disk immediately.
	// Slower but safer. Default is false (async writes).
	SyncWrites bool

	// Logger receives store and Badger internal logging.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Stats supplies scan cost estimates to the planner. Optional.
	Stats StatsProvider

	// MaxRanges caps the number of ranges per curve decomposition.
	// Zero means DefaultMaxRanges.
	MaxRanges int
}

func DefaultStoreOptions(path string) StoreOptions {
	return StoreOptions{
		Path: path,
	}
}

// OpenStore creates or opens a Store at the given path for the given schema.
// If the path already holds a schema with a different layout, OpenStore fails
// with ErrSchemaMismatch.
func OpenStore(schema *Schema, opts StoreOptions) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites)

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(slogAdapter{opts.Logger})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	badgerOpts = badgerOpts.
		WithNumMemtables(4).
		WithValueLogFileSize(256 << 20).
		WithCompression(options.Snappy)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	s := &Store{
		db:     db,
		path:   opts.Path,
		schema: schema,
		log:    log,
		planner: NewPlanner(schema, PlannerOptions{
			Stats:     opts.Stats,
			MaxRanges: opts.MaxRanges,
		}),
	}
	if err := s.persistSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// persistSchema stores the schema row on first open and verifies layout
// equality on every later open.
func (s *Store) persistSchema() error {
	key := EncodeSchemaKey(s.schema.Name)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			val, err := json.Marshal(s.schema)
			if err != nil {
				return fmt.Errorf("failed to encode schema: %w", err)
			}
			return txn.Set(key, val)
		}
		if err != nil {
			return err
		}
		var stored Schema
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return fmt.Errorf("failed to decode stored schema: %w", err)
		}
		if stored.ID() != s.schema.ID() {
			return fmt.Errorf("%w: stored layout for %q differs", ErrSchemaMismatch, s.schema.Name)
		}
		return nil
	})
}

// Close closes the store, releasing all resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// Path returns the filesystem path of the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Badger() *badger.DB {
	return s.db
}

func (s *Store) Schema() *Schema {
	return s.schema
}

func (s *Store) Planner() *Planner {
	return s.planner
}

// slogAdapter bridges Badger's printf-style logger onto slog. Badger appends
// trailing newlines, which slog would render literally.
type slogAdapter struct {
	log *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...interface{}) {
	a.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Warningf(format string, args ...interface{}) {
	a.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Infof(format string, args ...interface{}) {
	a.log.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Debugf(format string, args ...interface{}) {
	a.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
