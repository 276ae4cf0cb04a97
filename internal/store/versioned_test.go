package store_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/raffaelramalhorosa/smart-display/internal/store"
)

type payload struct {
	Value string `json:"value"`
}

var testTTL = store.TTL{Full: 10 * time.Minute, Fallback: 2 * time.Minute}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newSlot(t *testing.T, session store.Session) *store.Versioned[payload] {
	t.Helper()
	v, err := store.NewVersioned[payload]("weather", 1, testTTL, session, discard())
	if err != nil {
		t.Fatalf("new versioned: %v", err)
	}
	return v
}

func ms(v int64) *int64 { return &v }

func TestNewVersionedRejectsFallbackNotShorter(t *testing.T) {
	_, err := store.NewVersioned[payload]("x", 1, store.TTL{Full: time.Minute, Fallback: time.Minute}, nil, discard())
	if err == nil {
		t.Fatal("expected error when fallback ttl is not shorter")
	}
}

func TestIsExpiredBoundaries(t *testing.T) {
	v := newSlot(t, nil)
	base := time.UnixMilli(1_000_000)

	cases := []struct {
		name     string
		rec      store.Record[payload]
		elapsed  time.Duration
		expected bool
	}{
		{"empty record", store.Record[payload]{}, 0, true},
		{"fresh full", store.Record[payload]{Timestamp: ms(base.UnixMilli())}, testTTL.Full - time.Millisecond, false},
		{"full at boundary", store.Record[payload]{Timestamp: ms(base.UnixMilli())}, testTTL.Full, true},
		{"fresh degraded", store.Record[payload]{Timestamp: ms(base.UnixMilli()), Degraded: true}, testTTL.Fallback - time.Millisecond, false},
		{"degraded at boundary", store.Record[payload]{Timestamp: ms(base.UnixMilli()), Degraded: true}, testTTL.Fallback, true},
		{"degraded within full window", store.Record[payload]{Timestamp: ms(base.UnixMilli()), Degraded: true}, 5 * time.Minute, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.IsExpired(tc.rec, base.Add(tc.elapsed)); got != tc.expected {
				t.Fatalf("expected expired=%v, got %v", tc.expected, got)
			}
		})
	}

	if testTTL.For(true) >= testTTL.For(false) {
		t.Fatal("degraded ttl must be shorter")
	}
}

func TestWritePersistsAndHydratesInNewProcess(t *testing.T) {
	session := store.NewMemorySession()
	now := time.UnixMilli(5_000)

	first := newSlot(t, session)
	first.SetClock(func() time.Time { return now })
	first.Write(&payload{Value: "sunny"}, true)

	second := newSlot(t, session)
	rec := second.Read()
	if rec.Payload == nil || rec.Payload.Value != "sunny" {
		t.Fatalf("expected hydrated payload, got %+v", rec.Payload)
	}
	if !rec.Degraded || rec.Timestamp == nil || *rec.Timestamp != 5_000 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestHydrateRunsOnce(t *testing.T) {
	session := store.NewMemorySession()
	v := newSlot(t, session)
	v.Hydrate()

	// A later write by someone else is not picked up again.
	other := newSlot(t, session)
	other.Write(&payload{Value: "late"}, false)

	v.Hydrate()
	if rec := v.Read(); rec.Payload != nil {
		t.Fatalf("expected hydrate latch to skip second read, got %+v", rec.Payload)
	}
}

func TestMalformedRecordIsCacheMiss(t *testing.T) {
	session := store.NewMemorySession()
	_ = session.Put("weather:v1", []byte("{not json"))

	v := newSlot(t, session)
	rec := v.Read()
	if rec.Payload != nil || rec.Timestamp != nil {
		t.Fatalf("expected empty record, got %+v", rec)
	}
	if !v.IsExpired(rec, time.Now()) {
		t.Fatal("empty record must be expired")
	}
}

func TestRecordWithoutTimestampDropsPayload(t *testing.T) {
	session := store.NewMemorySession()
	_ = session.Put("weather:v1", []byte(`{"payload":{"value":"x"},"timestamp":null}`))

	rec := newSlot(t, session).Read()
	if rec.Payload != nil {
		t.Fatal("payload without timestamp must be discarded")
	}
}

func TestVersionBumpIgnoresOldShape(t *testing.T) {
	session := store.NewMemorySession()
	newSlot(t, session).Write(&payload{Value: "v1"}, false)

	v2, err := store.NewVersioned[payload]("weather", 2, testTTL, session, discard())
	if err != nil {
		t.Fatal(err)
	}
	if rec := v2.Read(); rec.Payload != nil {
		t.Fatal("expected v2 slot to start empty")
	}
}

type failingSession struct{ store.MemorySession }

func (failingSession) Put(string, []byte) error { return errors.New("quota exceeded") }
func (failingSession) Get(string) ([]byte, error) {
	return nil, store.ErrNotFound
}

func TestWriteFailureKeepsMemoryRecord(t *testing.T) {
	v := newSlot(t, &failingSession{})
	v.Write(&payload{Value: "kept"}, false)

	rec, fresh := v.Fresh()
	if !fresh || rec.Payload == nil || rec.Payload.Value != "kept" {
		t.Fatalf("expected memory-only record to survive, got %+v fresh=%v", rec, fresh)
	}
}

func TestLevelSessionRoundTrip(t *testing.T) {
	s, err := store.NewLevelSessionMem()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Get("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	v := newSlot(t, s)
	v.WriteAt(&payload{Value: "disk"}, false, time.UnixMilli(42))

	rec := newSlot(t, s).Read()
	if rec.Payload == nil || rec.Payload.Value != "disk" || *rec.Timestamp != 42 {
		t.Fatalf("unexpected record from leveldb: %+v", rec)
	}
}

func TestOpenSessionFallsBackToMemory(t *testing.T) {
	if _, ok := store.OpenSession("", discard()).(*store.MemorySession); !ok {
		t.Fatal("expected memory session for empty path")
	}
}

// gatedSession holds the first Put until release is closed.
type gatedSession struct {
	*store.MemorySession
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSession) Put(key string, value []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.MemorySession.Put(key, value)
}

func TestConcurrentWritesPersistLastRecord(t *testing.T) {
	session := &gatedSession{
		MemorySession: store.NewMemorySession(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	v := newSlot(t, session)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		v.WriteAt(&payload{Value: "older"}, false, time.UnixMilli(1_000))
	}()
	<-session.entered
	go func() {
		defer wg.Done()
		v.WriteAt(&payload{Value: "newer"}, false, time.UnixMilli(2_000))
	}()
	time.Sleep(20 * time.Millisecond)
	close(session.release)
	wg.Wait()

	mem := v.Read()
	persisted := newSlot(t, session).Read()
	if mem.Payload == nil || persisted.Payload == nil {
		t.Fatalf("expected both records set, got %+v / %+v", mem, persisted)
	}
	if mem.Payload.Value != persisted.Payload.Value || *mem.Timestamp != *persisted.Timestamp {
		t.Fatalf("session holds %q but memory holds %q", persisted.Payload.Value, mem.Payload.Value)
	}
	if mem.Payload.Value != "newer" {
		t.Fatalf("expected the second writer to win, got %q", mem.Payload.Value)
	}
}
