package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// ErrNotFound is returned by a Session when the key has never been written.
var ErrNotFound = errors.New("session: key not found")

// Session is the persistent key/value store behind Versioned caches.
// It survives daemon restarts but is not shared between displays.
type Session interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

// ---------- leveldb ----------

// LevelSession persists cache records in a leveldb database.
type LevelSession struct {
	db *leveldb.DB
}

const sessionPrefix = "s:"

// OpenLevelSession opens (or creates) the database at path.
func OpenLevelSession(path string) (*LevelSession, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", path, err)
	}
	return &LevelSession{db: db}, nil
}

// NewLevelSessionMem returns a leveldb session on in-memory storage.
func NewLevelSessionMem() (*LevelSession, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelSession{db: db}, nil
}

func (s *LevelSession) Get(key string) ([]byte, error) {
	b, err := s.db.Get([]byte(sessionPrefix+key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return b, err
}

// Put writes synchronously so a crash right after a write keeps the record.
func (s *LevelSession) Put(key string, value []byte) error {
	return s.db.Put([]byte(sessionPrefix+key), value, &opt.WriteOptions{Sync: true})
}

func (s *LevelSession) Close() error {
	return s.db.Close()
}

// OpenSession opens the leveldb session at path. An empty path or an open
// failure yields a memory-only session; the cache keeps working either way.
func OpenSession(path string, logger *slog.Logger) Session {
	if path == "" {
		return NewMemorySession()
	}
	s, err := OpenLevelSession(path)
	if err != nil {
		logger.Warn("session storage unavailable, caching in memory only", "path", path, "error", err)
		return NewMemorySession()
	}
	return s
}

// ---------- memory ----------

// MemorySession keeps records for the lifetime of the process only.
type MemorySession struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemorySession() *MemorySession {
	return &MemorySession{data: make(map[string][]byte)}
}

func (m *MemorySession) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemorySession) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(value))
	copy(b, value)
	m.data[key] = b
	return nil
}

func (m *MemorySession) Close() error { return nil }
