// Package journal keeps an in-process, append-only record of loan events.
// Each item is an aggregate with its own version sequence; appends use
// optimistic concurrency on that version.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
	ErrEmptyAppend         = errors.New("no events to append")
)

// DefaultCapacity bounds how many events are retained.
const DefaultCapacity = 1000

// Event is one recorded loan transition.
type Event struct {
	Seq       int64           `json:"seq"`
	ID        uuid.UUID       `json:"id"`
	ItemID    int             `json:"item_id"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
}

// Journal is the in-memory event log. Versions survive trimming; only the
// oldest event bodies are dropped once capacity is exceeded.
type Journal struct {
	mu       sync.RWMutex
	events   []Event
	versions map[int]int
	nextSeq  int64
	capacity int
	now      func() time.Time
	tracer   trace.Tracer
}

// New creates a journal retaining at most capacity events.
func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{
		versions: make(map[int]int),
		capacity: capacity,
		now:      time.Now,
		tracer:   otel.Tracer("libracatalog/journal"),
	}
}

// AppendEvents appends events for itemID if its current version equals
// expectedVersion. Versions, ids and timestamps are assigned here.
func (j *Journal) AppendEvents(ctx context.Context, itemID int, expectedVersion int, events []Event) error {
	_, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.Int("item.id", itemID),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}
	if len(events) == 0 {
		return ErrEmptyAppend
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	currentVersion := j.versions[itemID]
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	for i, event := range events {
		j.nextSeq++
		event.Seq = j.nextSeq
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		event.ItemID = itemID
		event.Version = expectedVersion + i + 1
		event.CreatedAt = j.now().UTC()
		j.events = append(j.events, event)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.seq", event.Seq),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}
	j.versions[itemID] = expectedVersion + len(events)

	if overflow := len(j.events) - j.capacity; overflow > 0 {
		j.events = append([]Event(nil), j.events[overflow:]...)
	}
	return nil
}

// LoadEvents returns the retained events of itemID with fromVersion <= version
// and, when toVersion > 0, version <= toVersion.
func (j *Journal) LoadEvents(ctx context.Context, itemID int, fromVersion, toVersion int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(
			attribute.Int("item.id", itemID),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	j.mu.RLock()
	defer j.mu.RUnlock()

	events := make([]Event, 0)
	for _, event := range j.events {
		if event.ItemID != itemID || event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			continue
		}
		events = append(events, cloneEvent(event))
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// CurrentVersion returns the latest version recorded for itemID, 0 if none.
func (j *Journal) CurrentVersion(_ context.Context, itemID int) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.versions[itemID]
}

// StreamEvents returns up to batchSize events with a sequence number above afterSeq.
func (j *Journal) StreamEvents(ctx context.Context, afterSeq int64, batchSize int) []Event {
	_, span := j.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("from.seq", afterSeq),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	j.mu.RLock()
	defer j.mu.RUnlock()

	events := make([]Event, 0)
	for _, event := range j.events {
		if event.Seq <= afterSeq {
			continue
		}
		if batchSize > 0 && len(events) >= batchSize {
			break
		}
		events = append(events, cloneEvent(event))
	}

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events
}

func cloneEvent(e Event) Event {
	if e.EventData != nil {
		e.EventData = append(json.RawMessage(nil), e.EventData...)
	}
	return e
}
