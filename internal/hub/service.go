package hub

import (
	"encoding/json"
	"log"

	"github.com/21Gxme/Agnos/internal/session"
	"github.com/21Gxme/Agnos/internal/store"
	"github.com/21Gxme/Agnos/models"
)

// Service routes client actions to the record store and session registry and
// implements the fan-out rules. It runs entirely on the hub's run loop and
// is the only writer of either component.
type Service struct {
	hub      *Hub
	store    *store.Store
	registry *session.Registry
}

// NewService wires store and registry emitters to the hub and returns the
// message router. Both components are owned explicitly and passed by
// reference; nothing is looked up through ambient state.
func NewService(h *Hub, st *store.Store, reg *session.Registry) *Service {
	s := &Service{hub: h, store: st, registry: reg}

	// Record events reach every connected session, including the one that
	// caused them. Emitted only after the store mutation is committed.
	st.SetEmitter(store.EmitterFunc(func(typ string, rec models.Record) {
		env, err := models.NewEnvelope(typ, rec)
		if err != nil {
			log.Printf("Warning: encode %s event: %v", typ, err)
			return
		}
		h.Broadcast(env, 0)
	}))

	// Draft events carry a per-event audience: draft:updated excludes the
	// originating session, draft:closed reaches everyone.
	reg.SetEmitter(session.EmitterFunc(func(typ string, d models.Draft, exceptID int64) {
		var data any = d
		if typ == models.TypeDraftClosed {
			data = models.DraftClosed{SessionID: d.SessionID}
		}
		env, err := models.NewEnvelope(typ, data)
		if err != nil {
			log.Printf("Warning: encode %s event: %v", typ, err)
			return
		}
		h.Broadcast(env, exceptID)
	}))

	return s
}

// Route handles one inbound message. Called from Hub.Run.
func (s *Service) Route(m *Msg) {
	switch m.Type {
	case subjSignon:
		s.sendSnapshot(m.From)
	case subjSignoff:
		// Session death is authoritative: drop the draft and notify
		// reviewers, unconditionally and synchronously.
		s.registry.Drop(m.From.ID())
	case models.TypeDraftEdit:
		payload, err := decodePayload(m)
		if err != nil {
			log.Printf("Warning: bad draft:edit from %d: %v", m.From.ID(), err)
			return
		}
		s.registry.Edit(m.From.ID(), payload)
	case SubjRecordList:
		m.From.Chan() <- &Msg{Type: m.Type, Data: s.store.List()}
	case SubjRecordGet:
		id, _ := m.Data.(string)
		rec, err := s.store.Get(id)
		if err != nil {
			m.From.Chan() <- &Msg{Type: m.Type, Data: err}
			return
		}
		m.From.Chan() <- &Msg{Type: m.Type, Data: rec}
	case models.TypeRecordSubmit, models.TypeRecordApply:
		rec, err := decodeRecord(m)
		if err != nil {
			log.Printf("Warning: bad %s from %d: %v", m.Type, m.From.ID(), err)
			return
		}
		stored := s.store.Upsert(rec)
		// The submitted form is no longer in progress. No draft:closed:
		// reviewers reconcile the draft away from the record event.
		s.registry.Discard(m.From.ID())
		s.reply(m, stored)
	default:
		log.Printf("Warning: unhandled message type %q from %d", m.Type, m.From.ID())
	}
}

// sendSnapshot delivers the sync:init snapshot to a newly connected session.
// This is the only point a reviewer catches up on records it missed.
func (s *Service) sendSnapshot(c Conn) {
	env, err := models.NewEnvelope(models.TypeSyncInit, models.SyncInit{Records: s.store.List()})
	if err != nil {
		log.Printf("Warning: encode sync:init: %v", err)
		return
	}
	raw, err := encodeEnvelope(env)
	if err != nil {
		return
	}
	c.Chan() <- &Msg{Type: env.Type, Raw: raw, Data: env}
}

// reply acknowledges a submit or apply to the originating connection.
// Transient request/response callers receive the stored record itself.
func (s *Service) reply(m *Msg, stored models.Record) {
	if m.From.ID() < 0 {
		m.From.Chan() <- &Msg{Type: m.Type, Data: stored}
		return
	}
	env, err := models.NewEnvelope(models.TypeRecordAck, models.RecordAck{ID: stored.ID})
	if err != nil {
		return
	}
	raw, err := encodeEnvelope(env)
	if err != nil {
		return
	}
	m.From.Chan() <- &Msg{Type: env.Type, Raw: raw, Data: env}
}

func decodeRecord(m *Msg) (models.Record, error) {
	if rec, ok := m.Data.(models.Record); ok {
		return rec, nil
	}
	var rec models.Record
	err := json.Unmarshal(m.Raw, &rec)
	return rec, err
}

func decodePayload(m *Msg) (map[string]any, error) {
	if p, ok := m.Data.(map[string]any); ok {
		return p, nil
	}
	var p map[string]any
	err := json.Unmarshal(m.Raw, &p)
	return p, err
}

func encodeEnvelope(env models.Envelope) ([]byte, error) {
	return json.Marshal(env)
}
