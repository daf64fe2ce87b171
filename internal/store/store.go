// Package store holds the authoritative in-memory record store.
package store

import (
	"errors"

	"github.com/google/uuid"

	"github.com/21Gxme/Agnos/models"
)

// ErrNotFound is returned when no record matches the requested ID.
var ErrNotFound = errors.New("record not found")

// Emitter receives one event per committed mutation. The store calls it
// strictly after the in-memory state has been updated, so subscribers never
// observe a broadcast for state that does not exist yet.
type Emitter interface {
	Emit(typ string, rec models.Record)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(typ string, rec models.Record)

func (f EmitterFunc) Emit(typ string, rec models.Record) { f(typ, rec) }

// Store owns all records for the lifetime of the process. It has no internal
// locking: every mutation is performed on the hub's run loop, which processes
// one inbound message to completion before the next.
type Store struct {
	recs    map[string]models.Record
	order   []string
	emitter Emitter
}

func New() *Store {
	return &Store{recs: make(map[string]models.Record)}
}

// SetEmitter wires the broadcast sink. A nil emitter disables emission,
// which the tests use to inspect state without a hub.
func (s *Store) SetEmitter(e Emitter) { s.emitter = e }

// Upsert inserts or full-replaces a record and returns the stored value.
//
// A record without an ID gets a fresh uuid, status "submitted" and a
// submission timestamp. A record with a known ID replaces the stored one
// wholesale except for SubmittedAt, which is set once and never overwritten.
// Applying the same payload twice is idempotent: the second call emits
// another record:updated but changes nothing.
func (s *Store) Upsert(rec models.Record) models.Record {
	rec = rec.Clone()

	prev, exists := s.recs[rec.ID]
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		exists = false
	}
	if !exists {
		if rec.Status == "" {
			rec.Status = models.StatusSubmitted
		}
		if rec.SubmittedAt == "" {
			rec.SubmittedAt = models.Now()
		}
		s.order = append(s.order, rec.ID)
	} else {
		rec.SubmittedAt = prev.SubmittedAt
		if rec.Status == "" {
			rec.Status = prev.Status
		}
	}
	s.recs[rec.ID] = rec

	if s.emitter != nil {
		typ := models.TypeRecordUpdated
		if !exists {
			typ = models.TypeRecordNew
		}
		s.emitter.Emit(typ, rec.Clone())
	}
	return rec.Clone()
}

// Get returns the record with the given ID or ErrNotFound.
func (s *Store) Get(id string) (models.Record, error) {
	rec, ok := s.recs[id]
	if !ok {
		return models.Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns all records in insertion order. Used for the sync:init
// snapshot and the GET /records catch-up path.
func (s *Store) List() []models.Record {
	out := make([]models.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.recs[id].Clone())
	}
	return out
}

// Len reports the number of stored records.
func (s *Store) Len() int { return len(s.recs) }
