package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jsondb/JsonDB/core"
	"github.com/jsondb/JsonDB/ps"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	ErrLoadCorrupted = errors.New("failed to load backing file")
	ErrPersistFailed = errors.New("failed to persist database")
	ErrInvalidRecord = errors.New("value is not JSON-representable")
)

// Store is the document store engine. It owns the in-memory database, an
// insertion-ordered mapping from table name to table contents, loaded once
// from the persistence layer at construction and written back in full after
// every mutating call.
//
// Mutating operations report success as a bool. Failures are logged and
// additionally recorded, so strict callers can inspect LastError after a
// false result (or after a persist failure, which mutators deliberately do
// not surface in their return value).
//
// A Store is safe for concurrent use by multiple goroutines. Concurrent
// access to the same backing file from multiple processes is undefined
// behavior: the last writer wins.
type Store struct {
	mu          sync.RWMutex
	persistence *ps.Persistence
	identity    core.Identity
	logger      *slog.Logger

	data *core.Mapping

	errMu   sync.Mutex
	lastErr error
}

// NewStore creates a Store on top of the given persistence layer and loads
// the backing file. A malformed or unreadable file degrades to an empty
// database rather than failing construction; the condition is logged and
// recorded. A nil logger falls back to slog.Default().
func NewStore(persistence *ps.Persistence, identity core.Identity, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		persistence: persistence,
		identity:    identity,
		logger:      logger,
		data:        core.NewMapping(),
	}
	s.load()
	return s
}

// load reads the backing file into memory. Blank contents yield an empty
// database; corruption degrades to an empty database with the condition
// recorded.
func (s *Store) load() {
	raw, err := s.persistence.Load()
	if err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %v", ErrLoadCorrupted, err), "using empty database")
		s.data = core.NewMapping()
		return
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		s.data = core.NewMapping()
		return
	}

	database, err := core.DecodeDatabase(trimmed)
	if err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %v", ErrLoadCorrupted, err), "using empty database")
		s.data = core.NewMapping()
		return
	}

	s.data = database
}

// persist serializes the full in-memory database and overwrites the backing
// file. Write failures are reported but not raised: the in-memory state is
// kept and may silently diverge from disk.
func (s *Store) persist(message string) {
	encoded, err := core.EncodeIndent(s.data)
	if err != nil {
		s.report(slog.LevelError, fmt.Errorf("%w: %v", ErrPersistFailed, err), "in-memory state diverged from disk")
		return
	}

	if _, err := s.persistence.Save(encoded, s.identity, message); err != nil {
		s.report(slog.LevelError, fmt.Errorf("%w: %v", ErrPersistFailed, err), "in-memory state diverged from disk")
	}
}

func (s *Store) report(level slog.Level, err error, detail string) {
	s.logger.Log(context.Background(), level, err.Error(), "detail", detail)

	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
}

// LastError returns the most recently recorded condition: load corruption,
// persist failure, missing or duplicate table, or an unencodable value. It
// is not cleared by successful operations.
func (s *Store) LastError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// CreateTable creates a new table. With nil initialData the table starts as
// an empty sequence. Returns false, without mutation, if the table already
// exists.
func (s *Store) CreateTable(name string, initialData core.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTable(name, initialData)
}

func (s *Store) createTable(name string, initialData core.Record) bool {
	if _, exists := s.data.Get(name); exists {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %s", ErrTableExists, name), "create ignored")
		return false
	}

	contents := core.Record([]any{})
	if initialData != nil {
		normalized, err := core.Normalize(initialData)
		if err != nil {
			s.report(slog.LevelWarn, fmt.Errorf("%w: %v", ErrInvalidRecord, err), "create aborted")
			return false
		}
		contents = normalized
	}

	s.data.Set(name, contents)
	s.persist(fmt.Sprintf("Creating table %s", name))
	return true
}

// InsertData adds a value to a table, creating the table first if it does
// not exist. Dispatch depends on the table's current shape: sequences
// append, mappings merge mapping values (colliding keys overwritten), and
// any other combination promotes the table to a two-element sequence of the
// old and new values.
func (s *Store) InsertData(name string, value core.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := core.Normalize(value)
	if err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %v", ErrInvalidRecord, err), "insert aborted")
		return false
	}

	current, exists := s.data.Get(name)
	if !exists {
		s.logger.Warn("table not found, creating", "table", name)
		s.createTable(name, nil)
		current, _ = s.data.Get(name)
	}

	switch table := current.(type) {
	case []any:
		s.data.Set(name, append(table, normalized))
	case *core.Mapping:
		if m, ok := normalized.(*core.Mapping); ok {
			core.Merge(table, m)
		} else {
			s.data.Set(name, []any{current, normalized})
		}
	default:
		s.data.Set(name, []any{current, normalized})
	}

	s.persist(fmt.Sprintf("Inserting into table %s", name))
	return true
}

// UpdateData updates a table. With a nil condition the entire table contents
// are replaced with newData. With a condition and a sequence-shaped table,
// every matching element is replaced with the same newData value. A
// condition on a non-sequence table changes nothing but still persists and
// reports success. Returns false if the table does not exist.
func (s *Store) UpdateData(name string, condition core.Condition, newData core.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data.Get(name)
	if !exists {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %s", ErrTableNotFound, name), "update aborted")
		return false
	}

	normalized, err := core.Normalize(newData)
	if err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %v", ErrInvalidRecord, err), "update aborted")
		return false
	}

	if condition == nil {
		s.data.Set(name, normalized)
	} else if sequence, ok := current.([]any); ok {
		for i, item := range sequence {
			if condition(item) {
				sequence[i] = normalized
			}
		}
	}

	s.persist(fmt.Sprintf("Updating table %s", name))
	return true
}

// DeleteData deletes from a table. With deleteAll, sequence and mapping
// tables are cleared but keep their shape; any other shape is reset to null.
// With a condition and a sequence-shaped table, matching elements are
// filtered out. With neither, the call is a no-op that still persists.
// Returns false if the table does not exist.
func (s *Store) DeleteData(name string, condition core.Condition, deleteAll bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data.Get(name)
	if !exists {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %s", ErrTableNotFound, name), "delete aborted")
		return false
	}

	if deleteAll {
		switch current.(type) {
		case []any:
			s.data.Set(name, []any{})
		case *core.Mapping:
			s.data.Set(name, core.NewMapping())
		default:
			s.data.Set(name, nil)
		}
	} else if condition != nil {
		if sequence, ok := current.([]any); ok {
			kept := make([]any, 0, len(sequence))
			for _, item := range sequence {
				if !condition(item) {
					kept = append(kept, item)
				}
			}
			s.data.Set(name, kept)
		}
	}

	s.persist(fmt.Sprintf("Deleting from table %s", name))
	return true
}

// GetData returns a table's contents. The second return value is false when
// the table does not exist. The returned value is a direct reference into
// the store; callers must not assume isolation from subsequent mutations.
func (s *Store) GetData(name string) (core.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data.Get(name)
	if !exists {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %s", ErrTableNotFound, name), "get returned nothing")
		return nil, false
	}
	return value, true
}

// Database returns the full in-memory database as a direct reference.
// Callers must not assume isolation from subsequent mutations.
func (s *Store) Database() *core.Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// ListTables returns the table names in insertion order.
func (s *Store) ListTables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, s.data.Len())
	for pair := s.data.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// TableExists reports whether a table exists. No side effects.
func (s *Store) TableExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data.Get(name)
	return exists
}

// GetTableInfo describes a table: shape tag, length and contents. For an
// absent table only the Exists flag is set.
func (s *Store) GetTableInfo(name string) core.TableInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data.Get(name)
	if !exists {
		return core.TableInfo{Exists: false}
	}

	return core.TableInfo{
		Exists: true,
		Name:   name,
		Shape:  core.ShapeOf(value),
		Length: core.Length(value),
		Data:   value,
	}
}

// History returns all recorded transactions, newest first. Nil unless the
// persistence layer is versioned.
func (s *Store) History() []ps.Transaction {
	return s.persistence.History()
}

// LatestTransaction returns the most recent transaction, or the zero
// Transaction when there is no history.
func (s *Store) LatestTransaction() ps.Transaction {
	return s.persistence.LatestTransaction()
}

// RestoreTo rewinds the database to the state recorded by the given
// transaction and reloads the in-memory database from it.
func (s *Store) RestoreTo(asof ps.Transaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.persistence.RestoreTo(asof, s.identity)
	if err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("restore failed: %w", err), "database unchanged")
		return false
	}

	database, err := core.DecodeDatabase(bytes.TrimSpace(data))
	if err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %v", ErrLoadCorrupted, err), "restored contents unreadable, database unchanged")
		return false
	}

	s.data = database
	return true
}

// ExportTo copies the backing file to target (local path, file:// or s3://
// URL).
func (s *Store) ExportTo(ctx context.Context, target string, cfg *ps.BackupConfig) bool {
	if err := s.persistence.Export(ctx, target, cfg); err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("export failed: %w", err), "backup not written")
		return false
	}
	return true
}

// ImportFrom replaces the database with contents fetched from source (local
// path, file://, http(s):// or s3:// URL). The fetched contents must be a
// JSON object; a malformed import leaves the database unchanged.
func (s *Store) ImportFrom(ctx context.Context, source string, cfg *ps.BackupConfig) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.persistence.Import(ctx, source, cfg)
	if err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("import failed: %w", err), "database unchanged")
		return false
	}

	database, err := core.DecodeDatabase(bytes.TrimSpace(raw))
	if err != nil {
		s.report(slog.LevelWarn, fmt.Errorf("%w: %v", ErrLoadCorrupted, err), "imported contents unreadable, database unchanged")
		return false
	}

	s.data = database
	s.persist(fmt.Sprintf("Importing from %s", source))
	return true
}
