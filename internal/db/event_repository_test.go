package db

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencode-ai/animseq/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if _, err := database.MigrateUp(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	applied, err := database.MigrateUp(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no pending migrations, got %d", applied)
	}
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "animseq.db")

	database, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if database.Path() != path {
		t.Fatalf("expected path %q, got %q", path, database.Path())
	}
}

func TestEventRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	payload, _ := json.Marshal(models.SequencePayload{SequenceID: "seq-1", Command: models.CommandForward, ActiveCount: 1})
	event := &models.Event{
		Type:       models.EventTypeSequenceEnqueued,
		EntityType: models.EntityTypeSequence,
		EntityID:   "seq-1",
		Payload:    payload,
		Metadata:   map[string]string{"sprite": "hero"},
	}
	if err := repo.Create(ctx, event); err != nil {
		t.Fatalf("create: %v", err)
	}
	if event.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := repo.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Type != event.Type || got.EntityID != "seq-1" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Metadata["sprite"] != "hero" {
		t.Fatalf("expected metadata to round-trip, got %v", got.Metadata)
	}
	if !got.Timestamp.Equal(event.Timestamp) {
		t.Fatalf("expected timestamp %v, got %v", event.Timestamp, got.Timestamp)
	}
}

func TestEventRepository_GetMissing(t *testing.T) {
	repo := NewEventRepository(openTestDB(t))

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventRepository_AppendValidates(t *testing.T) {
	repo := NewEventRepository(openTestDB(t))

	err := repo.Append(context.Background(), &models.Event{Type: models.EventTypeStepApplied})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestEventRepository_QueryPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var batch []*models.Event
	for i := 0; i < 5; i++ {
		batch = append(batch, &models.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Millisecond),
			Type:       models.EventTypeStepApplied,
			EntityType: models.EntityTypeSprite,
			EntityID:   "hero",
		})
	}
	batch = append(batch, &models.Event{
		Timestamp:  base,
		Type:       models.EventTypeSequencerStarted,
		EntityType: models.EntityTypeSequencer,
		EntityID:   "main",
	})
	if err := repo.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	stepType := models.EventTypeStepApplied
	page, err := repo.Query(ctx, EventQuery{Type: &stepType, Limit: 3})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(page.Events) != 3 || page.NextCursor == "" {
		t.Fatalf("expected 3 events and a cursor, got %d %q", len(page.Events), page.NextCursor)
	}
	if page.Events[0].ID != batch[0].ID || page.Events[2].ID != batch[2].ID {
		t.Fatal("expected events in timestamp order")
	}

	page, err = repo.Query(ctx, EventQuery{Type: &stepType, Limit: 3, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("query next: %v", err)
	}
	if len(page.Events) != 2 || page.NextCursor != "" {
		t.Fatalf("expected final page of 2, got %d %q", len(page.Events), page.NextCursor)
	}
	if page.Events[0].ID != batch[3].ID {
		t.Fatal("expected cursor to resume after the third event")
	}

	count, err := repo.Count(ctx, "")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected 6 events, got %d", count)
	}
}

func TestEventRepository_ListByEntityAndPrune(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	old := time.Now().Add(-48 * time.Hour)
	for _, ts := range []time.Time{old, time.Now()} {
		if err := repo.Create(ctx, &models.Event{
			Timestamp:  ts,
			Type:       models.EventTypeSequenceCompleted,
			EntityType: models.EntityTypeSequence,
			EntityID:   "seq-9",
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	events, err := repo.ListByEntity(ctx, models.EntityTypeSequence, "seq-9", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted event, got %d", deleted)
	}

	completed := models.EventTypeSequenceCompleted
	count, err := repo.Count(ctx, completed)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 remaining event, got %d", count)
	}
}
