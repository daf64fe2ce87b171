package store_test

import (
	"testing"

	"github.com/21Gxme/Agnos/internal/store"
	"github.com/21Gxme/Agnos/models"
)

func TestUpsertMintsUniqueIDs(t *testing.T) {
	s := store.New()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		rec := s.Upsert(models.Record{Fields: map[string]any{"n": i}})
		if rec.ID == "" {
			t.Fatal("upsert did not assign an id")
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id assigned: %s", rec.ID)
		}
		seen[rec.ID] = true
	}
	if s.Len() != 100 {
		t.Fatalf("expected 100 records, got %d", s.Len())
	}
}

func TestUpsertDefaultsLifecycleFields(t *testing.T) {
	s := store.New()

	rec := s.Upsert(models.Record{Fields: map[string]any{"firstName": "Anek"}})
	if rec.Status != models.StatusSubmitted {
		t.Fatalf("expected status submitted, got %q", rec.Status)
	}
	if rec.SubmittedAt == "" {
		t.Fatal("submittedAt not set on first persistence")
	}
}

func TestUpsertPreservesSubmittedAt(t *testing.T) {
	s := store.New()

	first := s.Upsert(models.Record{Fields: map[string]any{"firstName": "Anek"}})

	updated := first
	updated.SubmittedAt = "2030-01-01T00:00:00Z"
	updated.Status = models.StatusActive
	got := s.Upsert(updated)

	if got.SubmittedAt != first.SubmittedAt {
		t.Fatalf("submittedAt overwritten: %q != %q", got.SubmittedAt, first.SubmittedAt)
	}
	if got.Status != models.StatusActive {
		t.Fatalf("expected status active, got %q", got.Status)
	}
}

func TestUpsertIdempotentOnSameID(t *testing.T) {
	s := store.New()

	var events []string
	s.SetEmitter(store.EmitterFunc(func(typ string, rec models.Record) {
		events = append(events, typ)
	}))

	first := s.Upsert(models.Record{Fields: map[string]any{"firstName": "Anek"}})
	second := s.Upsert(first)
	third := s.Upsert(first)

	if second.ID != first.ID || third.ID != first.ID {
		t.Fatal("id changed across identical upserts")
	}
	if len(s.List()) != 1 {
		t.Fatalf("duplicate entries in list: %d", len(s.List()))
	}
	want := []string{"record:new", "record:updated", "record:updated"}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), events)
	}
	for i, typ := range want {
		if events[i] != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, events[i])
		}
	}
}

func TestUpsertFullReplace(t *testing.T) {
	s := store.New()

	first := s.Upsert(models.Record{Fields: map[string]any{"firstName": "Anek", "phone": "123"}})

	replacement := models.Record{ID: first.ID, Status: first.Status,
		Fields: map[string]any{"firstName": "Anek"}}
	got := s.Upsert(replacement)

	if _, still := got.Fields["phone"]; still {
		t.Fatal("full replace kept a field the replacement did not carry")
	}
}

func TestUpsertWithUnseenIDInserts(t *testing.T) {
	s := store.New()

	var events []string
	s.SetEmitter(store.EmitterFunc(func(typ string, rec models.Record) {
		events = append(events, typ)
	}))

	got := s.Upsert(models.Record{ID: "offline-1", Fields: map[string]any{"firstName": "Anek"}})
	if got.ID != "offline-1" {
		t.Fatalf("provided id replaced: %s", got.ID)
	}
	if len(events) != 1 || events[0] != "record:new" {
		t.Fatalf("expected one record:new, got %v", events)
	}
}

func TestEmitHappensAfterCommit(t *testing.T) {
	s := store.New()

	s.SetEmitter(store.EmitterFunc(func(typ string, rec models.Record) {
		// The broadcast state must already be readable: no phantom
		// events for not-yet-stored records.
		if _, err := s.Get(rec.ID); err != nil {
			t.Fatalf("event emitted before commit: %v", err)
		}
	}))
	s.Upsert(models.Record{Fields: map[string]any{"firstName": "Anek"}})
}

func TestGetNotFound(t *testing.T) {
	s := store.New()
	if _, err := s.Get("nope"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListInsertionOrder(t *testing.T) {
	s := store.New()

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.Upsert(models.Record{Fields: map[string]any{"n": i}}).ID)
	}
	s.Upsert(models.Record{ID: ids[0], Fields: map[string]any{"n": 99}})

	list := s.List()
	if len(list) != 5 {
		t.Fatalf("expected 5 records, got %d", len(list))
	}
	for i, rec := range list {
		if rec.ID != ids[i] {
			t.Fatalf("order changed at %d: %s != %s", i, rec.ID, ids[i])
		}
	}
}
