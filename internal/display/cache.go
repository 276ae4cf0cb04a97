package display

import (
	"context"
	"log/slog"
	"time"

	"github.com/raffaelramalhorosa/smart-display/internal/store"
)

// Cache windows for the polled sources.
var (
	WeatherTTL   = store.TTL{Full: 10 * time.Minute, Fallback: 2 * time.Minute}
	DayInfoTTL   = store.TTL{Full: time.Hour, Fallback: 10 * time.Minute}
	HeadlinesTTL = store.TTL{Full: 10 * time.Minute, Fallback: 2 * time.Minute}
)

// readThrough returns the cached record, refreshing it with fetch when it is
// expired at now. A failed refresh keeps the last payload but marks it
// degraded, so it is retried on the short window instead of every poll.
func readThrough[T any](
	ctx context.Context,
	slot *store.Versioned[T],
	now time.Time,
	fetch func(context.Context) (T, error),
	logger *slog.Logger,
) store.Record[T] {
	rec := slot.Read()
	if !slot.IsExpired(rec, now) {
		return rec
	}

	v, err := fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return rec
		}
		logger.Warn("refresh failed, serving last known value", "key", slot.Key(), "error", err)
		return slot.WriteAt(rec.Payload, true, now)
	}
	return slot.WriteAt(&v, false, now)
}
