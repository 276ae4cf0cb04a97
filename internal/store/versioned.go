package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Record is the cached state of one data source.
// A nil Timestamp always comes with a nil Payload.
type Record[T any] struct {
	Payload   *T     `json:"payload"`
	Timestamp *int64 `json:"timestamp"` // epoch milliseconds
	Degraded  bool   `json:"degraded"`
}

// Time returns the record timestamp, or the zero time when the record is empty.
func (r Record[T]) Time() time.Time {
	if r.Timestamp == nil {
		return time.Time{}
	}
	return time.UnixMilli(*r.Timestamp)
}

// TTL holds the revalidation windows for primary and fallback data.
type TTL struct {
	Full     time.Duration
	Fallback time.Duration
}

// For returns the window that applies to a record with the given degraded flag.
func (t TTL) For(degraded bool) time.Duration {
	if degraded {
		return t.Fallback
	}
	return t.Full
}

func (t TTL) validate() error {
	if t.Full <= 0 || t.Fallback <= 0 {
		return errors.New("ttl windows must be positive")
	}
	if t.Fallback >= t.Full {
		return fmt.Errorf("fallback ttl %s must be shorter than full ttl %s", t.Fallback, t.Full)
	}
	return nil
}

// Versioned is a read-through cache slot persisted in the session store.
// The version is part of the storage key so a payload shape change starts
// from an empty record instead of decoding stale data.
type Versioned[T any] struct {
	key     string
	ttl     TTL
	session Session
	now     func() time.Time
	logger  *slog.Logger

	// writeMu orders writers so the session always ends up holding the
	// same record as memory.
	writeMu sync.Mutex

	mu       sync.RWMutex
	hydrated bool
	record   Record[T]
}

// NewVersioned returns a cache slot stored under name:v<version>.
func NewVersioned[T any](name string, version int, ttl TTL, session Session, logger *slog.Logger) (*Versioned[T], error) {
	if err := ttl.validate(); err != nil {
		return nil, fmt.Errorf("cache %s: %w", name, err)
	}
	if session == nil {
		session = NewMemorySession()
	}
	return &Versioned[T]{
		key:     fmt.Sprintf("%s:v%d", name, version),
		ttl:     ttl,
		session: session,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// SetClock replaces the time source.
func (v *Versioned[T]) SetClock(now func() time.Time) {
	v.mu.Lock()
	v.now = now
	v.mu.Unlock()
}

// Key returns the storage key of this slot.
func (v *Versioned[T]) Key() string { return v.key }

// TTL returns the configured windows.
func (v *Versioned[T]) TTL() TTL { return v.ttl }

// Hydrate loads the persisted record. Only the first call per process reads
// from the session; malformed or missing data leaves an empty record.
func (v *Versioned[T]) Hydrate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hydrateLocked()
}

func (v *Versioned[T]) hydrateLocked() {
	if v.hydrated {
		return
	}
	v.hydrated = true

	b, err := v.session.Get(v.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			v.logger.Warn("cache hydrate failed", "key", v.key, "error", err)
		}
		return
	}

	var rec Record[T]
	if err := json.Unmarshal(b, &rec); err != nil {
		v.logger.Warn("cache record malformed", "key", v.key, "error", err)
		return
	}
	if rec.Timestamp == nil {
		rec.Payload = nil
	}
	v.record = rec
}

// Read returns the in-memory record, hydrating it first if needed.
func (v *Versioned[T]) Read() Record[T] {
	v.mu.RLock()
	if v.hydrated {
		rec := v.record
		v.mu.RUnlock()
		return rec
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.hydrateLocked()
	return v.record
}

// Write stores payload stamped with the current time.
func (v *Versioned[T]) Write(payload *T, degraded bool) Record[T] {
	v.mu.RLock()
	now := v.now()
	v.mu.RUnlock()
	return v.WriteAt(payload, degraded, now)
}

// WriteAt stores payload with an explicit timestamp. Persistence failures are
// logged and the record stays memory-only. Concurrent writers are serialized
// through the persist.
func (v *Versioned[T]) WriteAt(payload *T, degraded bool, at time.Time) Record[T] {
	ts := at.UnixMilli()
	rec := Record[T]{Payload: payload, Timestamp: &ts, Degraded: degraded}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.Lock()
	v.hydrated = true
	v.record = rec
	v.mu.Unlock()

	b, err := json.Marshal(rec)
	if err != nil {
		v.logger.Warn("cache encode failed", "key", v.key, "error", err)
		return rec
	}
	if err := v.session.Put(v.key, b); err != nil {
		v.logger.Warn("cache persist failed", "key", v.key, "error", err)
	}
	return rec
}

// IsExpired reports whether rec must be revalidated at now.
func (v *Versioned[T]) IsExpired(rec Record[T], now time.Time) bool {
	return Expired(rec, v.ttl, now)
}

// Expired reports whether a record with the given policy is stale at now.
func Expired[T any](rec Record[T], ttl TTL, now time.Time) bool {
	if rec.Timestamp == nil {
		return true
	}
	return now.UnixMilli()-*rec.Timestamp >= ttl.For(rec.Degraded).Milliseconds()
}

// Fresh returns the record and whether it is still within its window.
func (v *Versioned[T]) Fresh() (Record[T], bool) {
	rec := v.Read()
	v.mu.RLock()
	now := v.now()
	v.mu.RUnlock()
	return rec, !v.IsExpired(rec, now)
}
